package repository

import (
	"context"
	"time"

	"storebackend/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	//現在のpayment_statusがfromの場合だけtoへ更新する。更新できたらtrue。
	UpdatePaymentStatusIfCurrent(ctx context.Context, orderID int64, from model.PaymentStatus, to model.PaymentStatus) (bool, error)
	UpdatePaymentRef(ctx context.Context, orderID int64, ref string) error

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
