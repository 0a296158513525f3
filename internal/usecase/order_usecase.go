package usecase

import (
	"context"
	"net/http"
	"time"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
)

type OrderUsecase struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	addresses  repo.AddressRepository
}

func NewOrderUsecase(
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	addresses repo.AddressRepository,
) *OrderUsecase {
	return &OrderUsecase{
		orders:     orders,
		orderItems: orderItems,
		addresses:  addresses,
	}
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	TotalPrice    int64             `json:"total_price"`
	PaymentRef    string            `json:"payment_ref,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items,omitempty"`
}

type OrderListOutput struct {
	Orders []OrderOutput `json:"orders"`
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

// ListMyOrders は自分の注文を新しい順で返す。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		//一覧では明細を展開しない
		outs = append(outs, toOrderOutput(o, nil))
	}

	return OrderListOutput{
		Orders: outs,
		Total:  total,
		Page:   page,
		Limit:  limit,
	}, nil
}

// GetMyOrderDetail は明細込みの注文詳細。
// 他人の注文は存在ごと隠す（404）。
func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
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
	if o.UserID != userID {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toOrderOutput(o, items), nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	out := OrderOutput{
		ID:            o.ID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalPrice:    o.TotalPrice,
		PaymentRef:    o.PaymentRef,
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
	}
	if items != nil {
		outItems := make([]OrderItemOutput, 0, len(items))
		for _, it := range items {
			outItems = append(outItems, OrderItemOutput{
				ProductID: it.ProductID,
				Name:      it.ProductNameSnapshot,
				Price:     it.UnitPriceSnapshot,
				Quantity:  it.Quantity,
				Subtotal:  it.UnitPriceSnapshot * it.Quantity,
			})
		}
		out.Items = outItems
	}
	return out
}
