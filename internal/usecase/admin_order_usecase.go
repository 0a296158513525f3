package usecase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
)

// AdminOrderUsecase は管理者の注文操作。
// ロールはミドルウェアで弾いているが、ここでも二重に確認する。
type AdminOrderUsecase struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	users      repo.UserRepository
	auditRepo  repo.AuditLogRepository
}

func NewAdminOrderUsecase(
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	users repo.UserRepository,
	auditRepo repo.AuditLogRepository,
) *AdminOrderUsecase {
	return &AdminOrderUsecase{
		orders:     orders,
		orderItems: orderItems,
		users:      users,
		auditRepo:  auditRepo,
	}
}

type AdminListOrdersInput struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

var validOrderStatuses = map[model.OrderStatus]bool{
	model.OrderStatusPending:   true,
	model.OrderStatusConfirmed: true,
	model.OrderStatusShipped:   true,
	model.OrderStatusDelivered: true,
	model.OrderStatusCanceled:  true,
}

// 支払いステータスの遷移表。ここに無い組み合わせは422。
var paymentTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusUnpaid: {model.PaymentStatusPaid, model.PaymentStatusFailed},
	model.PaymentStatusPaid:   {model.PaymentStatusRefunded},
}

func canTransitPayment(from, to model.PaymentStatus) bool {
	for _, t := range paymentTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func (u *AdminOrderUsecase) requireAdmin(ctx context.Context, adminUserID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	actor, err := u.users.FindByID(ctx, adminUserID)
	if err != nil || actor == nil {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.IsAdmin() {
		return NewHTTPError(http.StatusForbidden, "admin only")
	}
	return nil
}

// AdminListOrders は全ユーザーの注文一覧（絞り込み付き）。
func (u *AdminOrderUsecase) AdminListOrders(ctx context.Context, adminUserID int64, in AdminListOrdersInput) (OrderListOutput, error) {
	if err := u.requireAdmin(ctx, adminUserID); err != nil {
		return OrderListOutput{}, err
	}
	if in.Page <= 0 {
		in.Page = 1
	}
	if in.Limit <= 0 || in.Limit > 100 {
		in.Limit = 20
	}
	if in.Status != "" && !validOrderStatuses[model.OrderStatus(in.Status)] {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	orders, total, err := u.orders.ListAdmin(ctx, repo.AdminOrderListFilter{
		Page:   in.Page,
		Limit:  in.Limit,
		Status: in.Status,
		UserID: in.UserID,
		From:   in.From,
		To:     in.To,
	})
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toOrderOutput(o, nil))
	}
	return OrderListOutput{
		Orders: outs,
		Total:  total,
		Page:   in.Page,
		Limit:  in.Limit,
	}, nil
}

// AdminGetOrderDetail は任意ユーザーの注文詳細。
func (u *AdminOrderUsecase) AdminGetOrderDetail(ctx context.Context, adminUserID int64, orderID int64) (OrderOutput, error) {
	if err := u.requireAdmin(ctx, adminUserID); err != nil {
		return OrderOutput{}, err
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toOrderOutput(o, items), nil
}

// AdminUpdateOrderStatus は配送ステータスの更新。
// 配送側の遷移は制限しない（どのステータスへも変更できる）。
func (u *AdminOrderUsecase) AdminUpdateOrderStatus(ctx context.Context, adminUserID int64, orderID int64, next string) error {
	if err := u.requireAdmin(ctx, adminUserID); err != nil {
		return err
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	status := model.OrderStatus(next)
	if !validOrderStatuses[status] {
		return NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//監査ログを作成（注文ステータス更新）
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
		AfterJSON:    fmt.Sprintf(`{"status":%q}`, status),
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// AdminUpdatePaymentStatus は支払いステータスの更新。
// 許可される遷移は UNPAID->PAID / UNPAID->FAILED / PAID->REFUNDED のみ。
// それ以外（REFUNDED->PAID や直接 UNPAID->REFUNDED など）は422で拒否。
func (u *AdminOrderUsecase) AdminUpdatePaymentStatus(ctx context.Context, adminUserID int64, orderID int64, next string) error {
	if err := u.requireAdmin(ctx, adminUserID); err != nil {
		return err
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	status := model.PaymentStatus(next)
	switch status {
	case model.PaymentStatusUnpaid, model.PaymentStatusPaid, model.PaymentStatusFailed, model.PaymentStatusRefunded:
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid payment status")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !canTransitPayment(o.PaymentStatus, status) {
		return NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("invalid transition: %s -> %s", o.PaymentStatus, status))
	}

	//読み取ったステータスを条件にしたUPDATE。別の管理者に先を越されたら409。
	won, err := u.orders.UpdatePaymentStatusIfCurrent(ctx, orderID, o.PaymentStatus, status)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !won {
		return NewHTTPError(http.StatusConflict, "payment status changed, retry")
	}

	//監査ログを作成（支払いステータス更新）
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdatePaymentStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   fmt.Sprintf(`{"payment_status":%q}`, o.PaymentStatus),
		AfterJSON:    fmt.Sprintf(`{"payment_status":%q}`, status),
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
