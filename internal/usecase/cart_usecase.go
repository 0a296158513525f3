package usecase

import (
	"context"
	"net/http"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// price は追加時点ではなく現在の販売価格。カートは見積もりでしかなく、
// 価格が確定するのはチェックアウト予約のとき。
type CartItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Status    string `json:"status"`
}

type CartResponse struct {
	Items      []CartItemResponse `json:"items"`
	SavedItems []CartItemResponse `json:"saved_items"`
	//割引前の合計
	ActualPrice int64 `json:"actual_price"`
	//割引後の合計（ACTIVEのみ）
	Total int64 `json:"total"`
	//割引額
	Discount int64 `json:"discount"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
	Status    string
}

type UpdateCartItemInput struct {
	Quantity *int64
	Status   *string
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// AddToCart はカートに追加（同一(商品,status)は数量加算）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	status, ok := parseCartItemStatus(in.Status)
	if !ok {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	// カート取得（無ければ作成）
	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}

	// 既存数量と合わせて在庫を超えないか確認
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var existingQty int64 = 0
	for _, it := range items {
		if it.ProductID == in.ProductID && it.Status == status {
			existingQty = it.Quantity
			break
		}
	}

	newQty := existingQty + in.Quantity
	if newQty > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusConflict, "stock exceeded")
	}

	if err := u.cartItemRepo.UpsertByCartProductStatus(ctx, cart.ID, in.ProductID, in.Quantity, status); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更・status切り替え（所有チェック＋在庫チェック）。数量0は削除扱い。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if in.Quantity != nil {
		if *in.Quantity <= 0 {
			//数量0は削除
			if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
				return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			return u.buildCartResponse(ctx, item.CartID)
		}

		//商品の在庫チェック
		p, err := u.productRepo.FindByID(ctx, item.ProductID)
		if err == repo.ErrNotFound || (err == nil && !p.IsActive) {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if *in.Quantity > p.Stock {
			return CartResponse{}, NewHTTPError(http.StatusConflict, "stock exceeded")
		}

		if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, *in.Quantity); err != nil {
			if err == repo.ErrNotFound {
				return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
			}
			return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	if in.Status != nil {
		status, ok := parseCartItemStatus(*in.Status)
		if !ok {
			return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}

		if err := u.cartItemRepo.UpdateStatus(ctx, cartItemID, status); err != nil {
			if err == repo.ErrNotFound {
				return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
			}
			//同じ(商品,status)の行が既にあるとunique違反
			return CartResponse{}, NewHTTPError(http.StatusConflict, "already in that state")
		}
	}

	return u.buildCartResponse(ctx, item.CartID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, item.CartID)
}

// cartIDの明細をまとめてCartResponseを作る。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	resp := CartResponse{
		Items:      make([]CartItemResponse, 0, len(items)),
		SavedItems: make([]CartItemResponse, 0),
	}

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err != nil {
			continue
		}
		if !p.IsActive {
			continue
		}

		out := CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     p.EffectivePrice(),
			Quantity:  it.Quantity,
			Status:    string(it.Status),
		}

		if it.Status == model.CartItemStatusSaved {
			resp.SavedItems = append(resp.SavedItems, out)
			continue
		}

		resp.Items = append(resp.Items, out)
		resp.ActualPrice += p.Price * it.Quantity
		resp.Total += p.EffectivePrice() * it.Quantity
	}

	resp.Discount = resp.ActualPrice - resp.Total
	return resp, nil
}

func parseCartItemStatus(s string) (model.CartItemStatus, bool) {
	switch s {
	case "", string(model.CartItemStatusActive):
		return model.CartItemStatusActive, true
	case string(model.CartItemStatusSaved):
		return model.CartItemStatusSaved, true
	default:
		return "", false
	}
}
