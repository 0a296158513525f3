package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
	"storebackend/internal/usecase"
)

func TestCleanupUsecase_Sweep_ExpiresAndReleases(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := newTxStub()
	uc := usecase.NewCleanupUsecase(&txManagerStub{repos: s}, s.checkouts)

	s.checkouts.On("ListExpiredPending", mock.Anything, now, 100).Return([]model.Checkout{
		{ID: 1, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-2 * time.Minute)},
		{ID: 2, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-1 * time.Minute)},
	}, nil)

	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(1), model.CheckoutStatusExpired).Return(true, nil)
	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(2), model.CheckoutStatusExpired).Return(true, nil)

	s.checkoutItems.On("ListByCheckoutID", mock.Anything, int64(1)).Return([]model.CheckoutItem{
		{CheckoutID: 1, ProductID: 10, Quantity: 2},
	}, nil)
	s.checkoutItems.On("ListByCheckoutID", mock.Anything, int64(2)).Return([]model.CheckoutItem{
		{CheckoutID: 2, ProductID: 11, Quantity: 1},
	}, nil)

	s.inventory.On("IncreaseStock", mock.Anything, int64(10), int64(2)).Return(nil)
	s.inventory.On("IncreaseStock", mock.Anything, int64(11), int64(1)).Return(nil)

	n, err := uc.SweepExpiredCheckouts(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	s.checkouts.AssertExpectations(t)
	s.inventory.AssertExpectations(t)
}

// 掃除中にユーザーがcomplete/cancelした行はスキップされる。
func TestCleanupUsecase_Sweep_SkipsRacedRow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := newTxStub()
	uc := usecase.NewCleanupUsecase(&txManagerStub{repos: s}, s.checkouts)

	s.checkouts.On("ListExpiredPending", mock.Anything, now, 100).Return([]model.Checkout{
		{ID: 1, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-2 * time.Minute)},
		{ID: 2, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-1 * time.Minute)},
	}, nil)

	//ID=1はリスト取得後にユーザーが終端化した
	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(1), model.CheckoutStatusExpired).Return(false, nil)
	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(2), model.CheckoutStatusExpired).Return(true, nil)

	s.checkoutItems.On("ListByCheckoutID", mock.Anything, int64(2)).Return([]model.CheckoutItem{
		{CheckoutID: 2, ProductID: 11, Quantity: 3},
	}, nil)
	s.inventory.On("IncreaseStock", mock.Anything, int64(11), int64(3)).Return(nil)

	n, err := uc.SweepExpiredCheckouts(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	//負けた行の在庫は戻さない
	s.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, int64(10), mock.Anything)
	s.checkoutItems.AssertNotCalled(t, "ListByCheckoutID", mock.Anything, int64(1))
}

// 1件失敗しても残りは処理を続ける。
func TestCleanupUsecase_Sweep_ContinuesPastRowFailure(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := newTxStub()
	uc := usecase.NewCleanupUsecase(&txManagerStub{repos: s}, s.checkouts)

	s.checkouts.On("ListExpiredPending", mock.Anything, now, 100).Return([]model.Checkout{
		{ID: 1, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-2 * time.Minute)},
		{ID: 2, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-1 * time.Minute)},
	}, nil)

	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(1), model.CheckoutStatusExpired).Return(false, errors.New("db down"))
	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(2), model.CheckoutStatusExpired).Return(true, nil)

	s.checkoutItems.On("ListByCheckoutID", mock.Anything, int64(2)).Return([]model.CheckoutItem{
		{CheckoutID: 2, ProductID: 11, Quantity: 1},
	}, nil)
	s.inventory.On("IncreaseStock", mock.Anything, int64(11), int64(1)).Return(nil)

	n, err := uc.SweepExpiredCheckouts(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

// コールバックは成功したのにcommitで落ちるトランザクション
type commitFailTxStub struct {
	repos    *txReposStub
	failLeft int
}

func (t *commitFailTxStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := fn(t.repos); err != nil {
		return err
	}
	if t.failLeft > 0 {
		t.failLeft--
		return errors.New("commit failed")
	}
	return nil
}

// commitに失敗した行は処理済みに数えない。
func TestCleanupUsecase_Sweep_CommitFailureNotCounted(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := newTxStub()
	//1件目のtxだけcommitで落ちる
	uc := usecase.NewCleanupUsecase(&commitFailTxStub{repos: s, failLeft: 1}, s.checkouts)

	s.checkouts.On("ListExpiredPending", mock.Anything, now, 100).Return([]model.Checkout{
		{ID: 1, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-2 * time.Minute)},
		{ID: 2, Status: model.CheckoutStatusPending, ExpiresAt: now.Add(-1 * time.Minute)},
	}, nil)

	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(1), model.CheckoutStatusExpired).Return(true, nil)
	s.checkouts.On("UpdateStatusIfPending", mock.Anything, int64(2), model.CheckoutStatusExpired).Return(true, nil)

	s.checkoutItems.On("ListByCheckoutID", mock.Anything, int64(1)).Return([]model.CheckoutItem{
		{CheckoutID: 1, ProductID: 10, Quantity: 2},
	}, nil)
	s.checkoutItems.On("ListByCheckoutID", mock.Anything, int64(2)).Return([]model.CheckoutItem{
		{CheckoutID: 2, ProductID: 11, Quantity: 1},
	}, nil)

	s.inventory.On("IncreaseStock", mock.Anything, int64(10), int64(2)).Return(nil)
	s.inventory.On("IncreaseStock", mock.Anything, int64(11), int64(1)).Return(nil)

	n, err := uc.SweepExpiredCheckouts(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCleanupUsecase_Sweep_ListError(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s := newTxStub()
	uc := usecase.NewCleanupUsecase(&txManagerStub{repos: s}, s.checkouts)

	s.checkouts.On("ListExpiredPending", mock.Anything, now, 100).Return(nil, errors.New("db down"))

	n, err := uc.SweepExpiredCheckouts(context.Background(), now)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
