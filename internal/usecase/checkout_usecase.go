package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
)

// 時刻はテストで差し替えられるように注入する
type Clock interface {
	Now() time.Time
}

// CheckoutUsecase は在庫の取り置き（一時チェックアウト）のライフサイクルを扱う。
//
// 予約〜終端までの流れ:
//
//	CreateCheckout: 在庫を減らして PENDING を作る（全部成功 or 全部なし）
//	CompleteCheckout: PENDING -> COMPLETED、注文を作る（在庫は触らない）
//	CancelCheckout: PENDING -> CANCELED、在庫を戻す
//	掃除ジョブ: 期限切れの PENDING -> EXPIRED、在庫を戻す
//
// 終端化はすべて「status=PENDINGのときだけ」の条件付きUPDATEなので、
// ユーザー操作と掃除ジョブが同じチェックアウトで競合しても、
// 在庫を戻すのは必ず勝者1人だけ。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	clock     Clock
	ttl       time.Duration
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	clock Clock,
	ttl time.Duration,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:        tx,
		addresses: addresses,
		clock:     clock,
		ttl:       ttl,
	}
}

type CreateCheckoutInput struct {
	AddressID   int64
	CartItemIDs []int64
}

type CheckoutItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type CheckoutOutput struct {
	ID               int64                `json:"id"`
	Status           string               `json:"status"`
	ExpiresAt        time.Time            `json:"expires_at"`
	SecondsRemaining int64                `json:"seconds_remaining"`
	Total            int64                `json:"total"`
	Items            []CheckoutItemOutput `json:"items"`
}

// CreateCheckout はカートのACTIVE明細から取り置きを作る。
// 全明細の在庫減算とチェックアウト作成は1トランザクション。
// どれか1つでも在庫が足りなければ全体をロールバックする。
func (u *CheckoutUsecase) CreateCheckout(ctx context.Context, userID int64, in CreateCheckoutInput) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.AddressID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid address_id")
	}
	if len(in.CartItemIDs) == 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "cart_item_ids required")
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		if err == repo.ErrNotFound {
			return CheckoutOutput{}, NewHTTPError(http.StatusNotFound, "address not found")
		}
		return CheckoutOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if addr.UserID != userID {
		return CheckoutOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	now := u.clock.Now()
	expiresAt := now.Add(u.ttl)

	var out CheckoutOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//ACTIVEの明細だけが対象。「あとで買う」は予約しない。
		cartItems, err := r.CartItems().ListActiveByIDs(ctx, cart.ID, in.CartItemIDs)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "no valid cart items")
		}

		checkoutItems := make([]model.CheckoutItem, 0, len(cartItems))
		outItems := make([]CheckoutItemOutput, 0, len(cartItems))
		reservedIDs := make([]int64, 0, len(cartItems))
		var total int64 = 0

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !p.IsActive {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}

			//在庫減算は「stock >= qty のときだけ」の条件付きUPDATE。
			//falseならトランザクションごと巻き戻すので、先に減らした分も戻る。
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("insufficient stock: %s", p.Name))
			}

			//予約時点の販売価格で固定
			price := p.EffectivePrice()
			checkoutItems = append(checkoutItems, model.CheckoutItem{
				ProductID:         ci.ProductID,
				Quantity:          ci.Quantity,
				UnitPriceSnapshot: price,
				CreatedAt:         now,
			})
			outItems = append(outItems, CheckoutItemOutput{
				ProductID: ci.ProductID,
				Name:      p.Name,
				Price:     price,
				Quantity:  ci.Quantity,
			})
			reservedIDs = append(reservedIDs, ci.ID)
			total += price * ci.Quantity
		}

		checkoutID, err := r.Checkouts().Create(ctx, model.Checkout{
			UserID:    userID,
			AddressID: in.AddressID,
			Status:    model.CheckoutStatusPending,
			ExpiresAt: expiresAt,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.CheckoutItems().CreateBulk(ctx, checkoutID, checkoutItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//予約した明細はカートから外す
		if err := r.CartItems().DeleteByIDs(ctx, reservedIDs); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = CheckoutOutput{
			ID:               checkoutID,
			Status:           string(model.CheckoutStatusPending),
			ExpiresAt:        expiresAt,
			SecondsRemaining: int64(u.ttl.Seconds()),
			Total:            total,
			Items:            outItems,
		}
		return nil
	})

	if err != nil {
		return CheckoutOutput{}, err
	}
	return out, nil
}

// GetCheckout は取り置きの現在の状態を返す（読み取り専用）。
// 期限切れでもここでは在庫を戻さない。戻すのはCancel/Complete/掃除ジョブだけ。
func (u *CheckoutUsecase) GetCheckout(ctx context.Context, userID int64, checkoutID int64) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if checkoutID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CheckoutOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Checkouts().FindByIDForUser(ctx, checkoutID, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.CheckoutItems().ListByCheckoutID(ctx, checkoutID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outItems := make([]CheckoutItemOutput, 0, len(items))
		var total int64 = 0
		for _, it := range items {
			name := ""
			if p, err := r.Products().FindByID(ctx, it.ProductID); err == nil {
				name = p.Name
			}
			outItems = append(outItems, CheckoutItemOutput{
				ProductID: it.ProductID,
				Name:      name,
				Price:     it.UnitPriceSnapshot,
				Quantity:  it.Quantity,
			})
			total += it.UnitPriceSnapshot * it.Quantity
		}

		out = CheckoutOutput{
			ID:               c.ID,
			Status:           string(c.Status),
			ExpiresAt:        c.ExpiresAt,
			SecondsRemaining: c.SecondsRemaining(u.clock.Now()),
			Total:            total,
			Items:            outItems,
		}
		return nil
	})

	if err != nil {
		return CheckoutOutput{}, err
	}
	return out, nil
}

// CancelCheckout は取り置きをキャンセルして在庫を戻す。
// 掃除ジョブと同時に走っても、条件付きUPDATEに勝った方だけが在庫を戻す。
func (u *CheckoutUsecase) CancelCheckout(ctx context.Context, userID int64, checkoutID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if checkoutID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Checkouts().FindByIDForUser(ctx, checkoutID, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		won, err := r.Checkouts().UpdateStatusIfPending(ctx, c.ID, model.CheckoutStatusCanceled)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !won {
			//complete/cancel/期限切れのどれかが先に終端化した
			return NewHTTPError(http.StatusConflict, "checkout already finalized")
		}

		if err := releaseCheckoutStock(ctx, r, c.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

// CompleteCheckout は取り置きを注文に変換する。
// 在庫は予約時に減らしてあるので、ここでは触らない。
func (u *CheckoutUsecase) CompleteCheckout(ctx context.Context, userID int64, checkoutID int64, notes string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if checkoutID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	now := u.clock.Now()

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Checkouts().FindByIDForUser(ctx, checkoutID, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if c.Status != model.CheckoutStatusPending {
			//終端化済みのものは「存在しない扱い」
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		//expires_atを過ぎていたら、掃除ジョブを待たずにここで期限切れにする。
		//ガードに勝った場合だけ在庫を戻す（掃除ジョブと二重に戻さない）。
		if c.IsExpired(now) {
			won, err := r.Checkouts().UpdateStatusIfPending(ctx, c.ID, model.CheckoutStatusExpired)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if won {
				if err := releaseCheckoutStock(ctx, r, c.ID); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			return NewHTTPError(http.StatusGone, "checkout expired")
		}

		won, err := r.Checkouts().UpdateStatusIfPending(ctx, c.ID, model.CheckoutStatusCompleted)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !won {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.CheckoutItems().ListByCheckoutID(ctx, c.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//スナップショットをそのまま注文明細へ
		orderItems := make([]model.OrderItem, 0, len(items))
		var total int64 = 0
		for _, it := range items {
			name := ""
			if p, err := r.Products().FindByID(ctx, it.ProductID); err == nil {
				name = p.Name
			}
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           it.ProductID,
				ProductNameSnapshot: name,
				UnitPriceSnapshot:   it.UnitPriceSnapshot,
				Quantity:            it.Quantity,
				CreatedAt:           now,
			})
			total += it.UnitPriceSnapshot * it.Quantity
		}

		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:        userID,
			AddressID:     c.AddressID,
			Status:        model.OrderStatusPending,
			PaymentStatus: model.PaymentStatusUnpaid,
			TotalPrice:    total,
			Notes:         notes,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//QR表示用の支払いデータ
		ref := generatePaymentRef(total, orderID)
		if err := r.Orders().UpdatePaymentRef(ctx, orderID, ref); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(model.Order{
			ID:            orderID,
			UserID:        userID,
			AddressID:     c.AddressID,
			Status:        model.OrderStatusPending,
			PaymentStatus: model.PaymentStatusUnpaid,
			TotalPrice:    total,
			PaymentRef:    ref,
			CreatedAt:     now,
		}, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 取り置き分の在庫を商品ごとに戻す。
// 呼び出し側が条件付きUPDATEに勝ったときにだけ呼ぶこと。
func releaseCheckoutStock(ctx context.Context, r repo.TxRepos, checkoutID int64) error {
	items, err := r.CheckoutItems().ListByCheckoutID(ctx, checkoutID)
	if err != nil {
		return err
	}

	for _, it := range items {
		if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// UPIのディープリンク文字列（QR表示用。決済連携はしない）
func generatePaymentRef(amount int64, orderID int64) string {
	return fmt.Sprintf("upi://pay?pa=merchant@upi&pn=Store&am=%d&tn=Order#%d&cu=INR", amount, orderID)
}
