package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
	"storebackend/internal/usecase"
)

// =====================
// Mocks
// =====================

type CrtCartRepoMock struct{ mock.Mock }

func (m *CrtCartRepoMock) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CrtCartRepoMock) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	panic("not used in CartUsecase tests")
}

type CrtCartItemRepoMock struct{ mock.Mock }

func (m *CrtCartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CrtCartItemRepoMock) ListActiveByIDs(ctx context.Context, cartID int64, cartItemIDs []int64) ([]model.CartItem, error) {
	panic("not used in CartUsecase tests")
}

func (m *CrtCartItemRepoMock) UpsertByCartProductStatus(ctx context.Context, cartID int64, productID int64, addQty int64, status model.CartItemStatus) error {
	args := m.Called(ctx, cartID, productID, addQty, status)
	return args.Error(0)
}

func (m *CrtCartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CrtCartItemRepoMock) UpdateStatus(ctx context.Context, cartItemID int64, status model.CartItemStatus) error {
	args := m.Called(ctx, cartItemID, status)
	return args.Error(0)
}

func (m *CrtCartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CrtCartItemRepoMock) DeleteByIDs(ctx context.Context, cartItemIDs []int64) error {
	panic("not used in CartUsecase tests")
}

func (m *CrtCartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CrtCartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type CrtProductRepoMock struct{ mock.Mock }

func (m *CrtProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in CartUsecase tests")
}

func (m *CrtProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *CrtProductRepoMock) ListImagesByProductID(ctx context.Context, productID int64) ([]model.ProductImage, error) {
	panic("not used in CartUsecase tests")
}

func (m *CrtProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in CartUsecase tests")
}

func (m *CrtProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used in CartUsecase tests")
}

func (m *CrtProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	panic("not used in CartUsecase tests")
}

func newCartUC() (*usecase.CartUsecase, *CrtCartRepoMock, *CrtCartItemRepoMock, *CrtProductRepoMock) {
	cRepo := new(CrtCartRepoMock)
	ciRepo := new(CrtCartItemRepoMock)
	pRepo := new(CrtProductRepoMock)
	return usecase.NewCartUsecase(cRepo, ciRepo, pRepo), cRepo, ciRepo, pRepo
}

// =====================
// 追加
// =====================

func TestCartUsecase_AddToCart_NewLine(t *testing.T) {
	uc, cRepo, ciRepo, pRepo := newCartUC()

	cRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5, UserID: 1}, nil)
	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Name: "mug", Price: 500, Stock: 10, IsActive: true}, nil)

	// 1回目：在庫チェック用、2回目：レスポンス組み立て用
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{}, nil).Once()
	ciRepo.On("UpsertByCartProductStatus", mock.Anything, int64(5), int64(100), int64(2), model.CartItemStatusActive).Return(nil)
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusActive},
	}, nil).Once()

	resp, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 2})
	assert.NoError(t, err)
	assert.Equal(t, 1, len(resp.Items))
	assert.Equal(t, int64(1000), resp.Total)

	ciRepo.AssertExpectations(t)
}

// 同一(商品,status)は数量が加算され、在庫を超えると409。
func TestCartUsecase_AddToCart_StockExceeded(t *testing.T) {
	uc, cRepo, ciRepo, pRepo := newCartUC()

	cRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5, UserID: 1}, nil)
	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Price: 500, Stock: 3, IsActive: true}, nil)

	// 既に2個入っている。+2で在庫3を超える
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusActive},
	}, nil)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 2})
	assertErrContains(t, err, "stock exceeded")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)

	ciRepo.AssertNotCalled(t, "UpsertByCartProductStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// SAVED_FOR_LATER の同一商品はACTIVE行とは別カウント。
func TestCartUsecase_AddToCart_SavedLineIsSeparate(t *testing.T) {
	uc, cRepo, ciRepo, pRepo := newCartUC()

	cRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5, UserID: 1}, nil)
	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Price: 500, Stock: 3, IsActive: true}, nil)

	// SAVED行の2個はACTIVEへの追加をブロックしない
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusSaved},
	}, nil)
	ciRepo.On("UpsertByCartProductStatus", mock.Anything, int64(5), int64(100), int64(3), model.CartItemStatusActive).Return(nil)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 3})
	assert.NoError(t, err)
}

func TestCartUsecase_AddToCart_InactiveProduct(t *testing.T) {
	uc, cRepo, _, pRepo := newCartUC()

	cRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5, UserID: 1}, nil)
	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, IsActive: false}, nil)

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 1})
	assertErrContains(t, err, "product not found")
}

func TestCartUsecase_AddToCart_InvalidStatus(t *testing.T) {
	uc, _, _, _ := newCartUC()

	_, err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 100, Quantity: 1, Status: "WISHLIST"})
	assertErrContains(t, err, "invalid status")
}

// =====================
// 更新
// =====================

func TestCartUsecase_UpdateCartItem_FlipToSaved(t *testing.T) {
	uc, _, ciRepo, pRepo := newCartUC()

	ciRepo.On("IsOwnedByUser", mock.Anything, int64(7), int64(1)).Return(true, nil)
	ciRepo.On("FindByID", mock.Anything, int64(7)).Return(model.CartItem{ID: 7, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusActive}, nil)
	ciRepo.On("UpdateStatus", mock.Anything, int64(7), model.CartItemStatusSaved).Return(nil)
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 7, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusSaved},
	}, nil)
	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Name: "mug", Price: 500, Stock: 10, IsActive: true}, nil)

	saved := "SAVED_FOR_LATER"
	resp, err := uc.UpdateCartItem(context.Background(), 1, 7, usecase.UpdateCartItemInput{Status: &saved})
	assert.NoError(t, err)

	// SAVED行は合計に入らない
	assert.Equal(t, 0, len(resp.Items))
	assert.Equal(t, 1, len(resp.SavedItems))
	assert.Equal(t, int64(0), resp.Total)
}

func TestCartUsecase_UpdateCartItem_QuantityZeroDeletes(t *testing.T) {
	uc, _, ciRepo, _ := newCartUC()

	ciRepo.On("IsOwnedByUser", mock.Anything, int64(7), int64(1)).Return(true, nil)
	ciRepo.On("FindByID", mock.Anything, int64(7)).Return(model.CartItem{ID: 7, CartID: 5, ProductID: 100, Quantity: 2}, nil)
	ciRepo.On("DeleteByID", mock.Anything, int64(7)).Return(nil)
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{}, nil)

	var zero int64 = 0
	_, err := uc.UpdateCartItem(context.Background(), 1, 7, usecase.UpdateCartItemInput{Quantity: &zero})
	assert.NoError(t, err)

	ciRepo.AssertCalled(t, "DeleteByID", mock.Anything, int64(7))
	ciRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartUsecase_UpdateCartItem_NotOwned(t *testing.T) {
	uc, _, ciRepo, _ := newCartUC()

	ciRepo.On("IsOwnedByUser", mock.Anything, int64(7), int64(2)).Return(false, nil)

	var qty int64 = 1
	_, err := uc.UpdateCartItem(context.Background(), 2, 7, usecase.UpdateCartItemInput{Quantity: &qty})
	assertErrContains(t, err, "not found")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestCartUsecase_UpdateCartItem_DuplicateStatusConflict(t *testing.T) {
	uc, _, ciRepo, _ := newCartUC()

	ciRepo.On("IsOwnedByUser", mock.Anything, int64(7), int64(1)).Return(true, nil)
	ciRepo.On("FindByID", mock.Anything, int64(7)).Return(model.CartItem{ID: 7, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusActive}, nil)
	// 同一(商品,status)行が既にある → unique違反
	ciRepo.On("UpdateStatus", mock.Anything, int64(7), model.CartItemStatusSaved).Return(errors.New("duplicate key"))

	saved := "SAVED_FOR_LATER"
	_, err := uc.UpdateCartItem(context.Background(), 1, 7, usecase.UpdateCartItemInput{Status: &saved})
	assertErrContains(t, err, "already in that state")
}

// =====================
// 取得・削除
// =====================

func TestCartUsecase_GetCart_TotalsWithDiscount(t *testing.T) {
	uc, cRepo, ciRepo, pRepo := newCartUC()

	cRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5, UserID: 1}, nil)
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusActive},
		{ID: 2, CartID: 5, ProductID: 200, Quantity: 1, Status: model.CartItemStatusSaved},
	}, nil)
	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Name: "mug", Price: 500, Discount: 100, Stock: 10, IsActive: true}, nil)
	pRepo.On("FindByID", mock.Anything, int64(200)).Return(model.Product{ID: 200, Name: "tee", Price: 1200, Stock: 4, IsActive: true}, nil)

	resp, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)

	assert.Equal(t, 1, len(resp.Items))
	assert.Equal(t, 1, len(resp.SavedItems))
	assert.Equal(t, int64(1000), resp.ActualPrice)
	assert.Equal(t, int64(800), resp.Total)
	assert.Equal(t, int64(200), resp.Discount)
}

// 非公開になった商品は表示からも合計からも消える。
func TestCartUsecase_GetCart_SkipsInactiveProducts(t *testing.T) {
	uc, cRepo, ciRepo, pRepo := newCartUC()

	cRepo.On("GetOrCreateByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 5, UserID: 1}, nil)
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{
		{ID: 1, CartID: 5, ProductID: 100, Quantity: 2, Status: model.CartItemStatusActive},
		{ID: 2, CartID: 5, ProductID: 200, Quantity: 1, Status: model.CartItemStatusActive},
	}, nil)
	pRepo.On("FindByID", mock.Anything, int64(100)).Return(model.Product{ID: 100, Price: 500, Stock: 10, IsActive: true}, nil)
	pRepo.On("FindByID", mock.Anything, int64(200)).Return(model.Product{ID: 200, IsActive: false}, nil)

	resp, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(resp.Items))
	assert.Equal(t, int64(1000), resp.Total)
}

func TestCartUsecase_DeleteCartItem_Success(t *testing.T) {
	uc, _, ciRepo, _ := newCartUC()

	ciRepo.On("IsOwnedByUser", mock.Anything, int64(7), int64(1)).Return(true, nil)
	ciRepo.On("FindByID", mock.Anything, int64(7)).Return(model.CartItem{ID: 7, CartID: 5, ProductID: 100, Quantity: 1}, nil)
	ciRepo.On("DeleteByID", mock.Anything, int64(7)).Return(nil)
	ciRepo.On("ListByCartID", mock.Anything, int64(5)).Return([]model.CartItem{}, nil)

	resp, err := uc.DeleteCartItem(context.Background(), 1, 7)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(resp.Items))
}
