package repository

import (
	"context"
	"time"

	"storebackend/internal/domain/model"
)

type CheckoutRepository interface {
	Create(ctx context.Context, c model.Checkout) (int64, error)
	FindByIDForUser(ctx context.Context, checkoutID int64, userID int64) (model.Checkout, error)

	// PENDINGのときだけstatusを更新する条件付きUPDATE。
	// falseは「すでに誰かが終端化した」の意味で、呼び出し側は在庫を触ってはいけない。
	UpdateStatusIfPending(ctx context.Context, checkoutID int64, next model.CheckoutStatus) (bool, error)

	// 掃除ジョブ用：期限切れのPENDING一覧
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Checkout, error)
}

type CheckoutItemRepository interface {
	CreateBulk(ctx context.Context, checkoutID int64, items []model.CheckoutItem) error
	ListByCheckoutID(ctx context.Context, checkoutID int64) ([]model.CheckoutItem, error)
}
