package repository

import (
	"context"

	"storebackend/internal/domain/model"
)

type CartRepository interface {
	// 初回アクセス時にカートを作る
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
}
