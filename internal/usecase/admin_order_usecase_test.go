package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
	"storebackend/internal/usecase"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type AdmOrderRepoMock struct{ mock.Mock }

func (m *AdmOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *AdmOrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *AdmOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in order tests")
}

func (m *AdmOrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *AdmOrderRepoMock) UpdatePaymentStatusIfCurrent(ctx context.Context, orderID int64, from model.PaymentStatus, to model.PaymentStatus) (bool, error) {
	args := m.Called(ctx, orderID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *AdmOrderRepoMock) UpdatePaymentRef(ctx context.Context, orderID int64, ref string) error {
	panic("not used in order tests")
}

func (m *AdmOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type AdmOrderItemRepoMock struct{ mock.Mock }

func (m *AdmOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in order tests")
}

func (m *AdmOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type AdmUserRepoMock struct{ mock.Mock }

func (m *AdmUserRepoMock) Create(ctx context.Context, user *model.User) error {
	panic("not used in order tests")
}

func (m *AdmUserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *AdmUserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	panic("not used in order tests")
}

func (m *AdmUserRepoMock) Update(ctx context.Context, user *model.User) error {
	panic("not used in order tests")
}

func (m *AdmUserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	panic("not used in order tests")
}

type AdmAuditRepoMock struct{ mock.Mock }

func (m *AdmAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AdmAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	panic("not used in order tests")
}

func newAdminOrderUC() (*usecase.AdminOrderUsecase, *AdmOrderRepoMock, *AdmUserRepoMock, *AdmAuditRepoMock) {
	oRepo := new(AdmOrderRepoMock)
	uRepo := new(AdmUserRepoMock)
	aRepo := new(AdmAuditRepoMock)
	uc := usecase.NewAdminOrderUsecase(oRepo, new(AdmOrderItemRepoMock), uRepo, aRepo)
	return uc, oRepo, uRepo, aRepo
}

func adminUser(id int64) *model.User {
	return &model.User{ID: id, Role: model.RoleAdmin, IsActive: true}
}

// =====================
// 権限チェック
// =====================

func TestAdminOrderUsecase_NonAdminForbidden(t *testing.T) {
	uc, _, uRepo, _ := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(2)).Return(&model.User{ID: 2, Role: model.RoleUser, IsActive: true}, nil)

	err := uc.AdminUpdatePaymentStatus(context.Background(), 2, 10, "PAID")
	assertErrContains(t, err, "admin only")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 403, he.Status)
}

// =====================
// 支払いステータスの遷移
// =====================

func TestAdminOrderUsecase_UpdatePaymentStatus_UnpaidToPaid(t *testing.T) {
	uc, oRepo, uRepo, aRepo := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
	oRepo.On("FindByID", mock.Anything, int64(10)).Return(model.Order{ID: 10, PaymentStatus: model.PaymentStatusUnpaid}, nil)
	oRepo.On("UpdatePaymentStatusIfCurrent", mock.Anything, int64(10), model.PaymentStatusUnpaid, model.PaymentStatusPaid).Return(true, nil)

	aRepo.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.ActorUserID == 1 &&
			l.Action == model.AuditActionUpdatePaymentStatus &&
			l.ResourceType == model.AuditResourceOrder &&
			l.ResourceID == 10 &&
			l.BeforeJSON == `{"payment_status":"UNPAID"}` &&
			l.AfterJSON == `{"payment_status":"PAID"}`
	})).Return(nil)

	err := uc.AdminUpdatePaymentStatus(context.Background(), 1, 10, "PAID")
	assert.NoError(t, err)

	oRepo.AssertExpectations(t)
	aRepo.AssertExpectations(t)
}

func TestAdminOrderUsecase_UpdatePaymentStatus_UnpaidToFailed(t *testing.T) {
	uc, oRepo, uRepo, aRepo := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
	oRepo.On("FindByID", mock.Anything, int64(10)).Return(model.Order{ID: 10, PaymentStatus: model.PaymentStatusUnpaid}, nil)
	oRepo.On("UpdatePaymentStatusIfCurrent", mock.Anything, int64(10), model.PaymentStatusUnpaid, model.PaymentStatusFailed).Return(true, nil)
	aRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := uc.AdminUpdatePaymentStatus(context.Background(), 1, 10, "FAILED")
	assert.NoError(t, err)
}

func TestAdminOrderUsecase_UpdatePaymentStatus_PaidToRefunded(t *testing.T) {
	uc, oRepo, uRepo, aRepo := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
	oRepo.On("FindByID", mock.Anything, int64(10)).Return(model.Order{ID: 10, PaymentStatus: model.PaymentStatusPaid}, nil)
	oRepo.On("UpdatePaymentStatusIfCurrent", mock.Anything, int64(10), model.PaymentStatusPaid, model.PaymentStatusRefunded).Return(true, nil)
	aRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	err := uc.AdminUpdatePaymentStatus(context.Background(), 1, 10, "REFUNDED")
	assert.NoError(t, err)
}

// 表に無い遷移は422で拒否される。
func TestAdminOrderUsecase_UpdatePaymentStatus_InvalidTransitions(t *testing.T) {
	cases := []struct {
		name string
		from model.PaymentStatus
		to   string
	}{
		{"unpaid to refunded", model.PaymentStatusUnpaid, "REFUNDED"},
		{"refunded to paid", model.PaymentStatusRefunded, "PAID"},
		{"failed to paid", model.PaymentStatusFailed, "PAID"},
		{"paid to unpaid", model.PaymentStatusPaid, "UNPAID"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, oRepo, uRepo, _ := newAdminOrderUC()

			uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
			oRepo.On("FindByID", mock.Anything, int64(10)).Return(model.Order{ID: 10, PaymentStatus: tc.from}, nil)

			err := uc.AdminUpdatePaymentStatus(context.Background(), 1, 10, tc.to)
			assertErrContains(t, err, "invalid transition")

			he, ok := usecase.AsHTTPError(err)
			assert.True(t, ok)
			assert.Equal(t, 422, he.Status)

			oRepo.AssertNotCalled(t, "UpdatePaymentStatusIfCurrent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// 読み取り後に別の管理者が先に更新した場合は409で、監査ログも残らない。
func TestAdminOrderUsecase_UpdatePaymentStatus_LostRaceConflicts(t *testing.T) {
	uc, oRepo, uRepo, aRepo := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
	//読み取り時点ではUNPAIDだが、UPDATE時には別の更新が先に入っている
	oRepo.On("FindByID", mock.Anything, int64(10)).Return(model.Order{ID: 10, PaymentStatus: model.PaymentStatusUnpaid}, nil)
	oRepo.On("UpdatePaymentStatusIfCurrent", mock.Anything, int64(10), model.PaymentStatusUnpaid, model.PaymentStatusFailed).Return(false, nil)

	err := uc.AdminUpdatePaymentStatus(context.Background(), 1, 10, "FAILED")
	assertErrContains(t, err, "payment status changed")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 409, he.Status)

	aRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAdminOrderUsecase_UpdatePaymentStatus_UnknownValue(t *testing.T) {
	uc, _, uRepo, _ := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)

	err := uc.AdminUpdatePaymentStatus(context.Background(), 1, 10, "BANANA")
	assertErrContains(t, err, "invalid payment status")
}

// =====================
// 注文ステータスの更新
// =====================

func TestAdminOrderUsecase_UpdateOrderStatus_Success(t *testing.T) {
	uc, oRepo, uRepo, aRepo := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
	oRepo.On("FindByID", mock.Anything, int64(10)).Return(model.Order{ID: 10, Status: model.OrderStatusPending}, nil)
	oRepo.On("UpdateStatus", mock.Anything, int64(10), model.OrderStatusShipped).Return(nil)

	aRepo.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateOrderStatus &&
			l.BeforeJSON == `{"status":"PENDING"}` &&
			l.AfterJSON == `{"status":"SHIPPED"}`
	})).Return(nil)

	err := uc.AdminUpdateOrderStatus(context.Background(), 1, 10, "SHIPPED")
	assert.NoError(t, err)

	oRepo.AssertExpectations(t)
	aRepo.AssertExpectations(t)
}

func TestAdminOrderUsecase_UpdateOrderStatus_InvalidStatus(t *testing.T) {
	uc, _, uRepo, _ := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)

	err := uc.AdminUpdateOrderStatus(context.Background(), 1, 10, "TELEPORTED")
	assertErrContains(t, err, "invalid status")
}

func TestAdminOrderUsecase_UpdateOrderStatus_NotFound(t *testing.T) {
	uc, oRepo, uRepo, _ := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)
	oRepo.On("FindByID", mock.Anything, int64(99)).Return(model.Order{}, repo.ErrNotFound)

	err := uc.AdminUpdateOrderStatus(context.Background(), 1, 99, "SHIPPED")
	assertErrContains(t, err, "order not found")
}

// =====================
// 一覧
// =====================

func TestAdminOrderUsecase_ListOrders_Success(t *testing.T) {
	uc, oRepo, uRepo, _ := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)

	oRepo.On("ListAdmin", mock.Anything, mock.MatchedBy(func(f repo.AdminOrderListFilter) bool {
		return f.Page == 1 && f.Limit == 20 && f.Status == "PENDING"
	})).Return([]model.Order{{ID: 10}, {ID: 11}}, int64(2), nil)

	out, err := uc.AdminListOrders(context.Background(), 1, usecase.AdminListOrdersInput{Status: "PENDING"})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	assert.Equal(t, 2, len(out.Orders))
}

func TestAdminOrderUsecase_ListOrders_InvalidStatus(t *testing.T) {
	uc, _, uRepo, _ := newAdminOrderUC()

	uRepo.On("FindByID", mock.Anything, int64(1)).Return(adminUser(1), nil)

	_, err := uc.AdminListOrders(context.Background(), 1, usecase.AdminListOrdersInput{Status: "NOT_A_STATUS"})
	assertErrContains(t, err, "invalid status")
}
