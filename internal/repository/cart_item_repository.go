package repository

import (
	"context"

	"storebackend/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// チェックアウト対象の取得。ACTIVEの明細だけを返す（「あとで買う」は対象外）
	ListActiveByIDs(ctx context.Context, cartID int64, cartItemIDs []int64) ([]model.CartItem, error)
	// 同一(商品,status)はプラス
	UpsertByCartProductStatus(ctx context.Context, cartID int64, productID int64, addQty int64, status model.CartItemStatus) error
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	UpdateStatus(ctx context.Context, cartItemID int64, status model.CartItemStatus) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	DeleteByIDs(ctx context.Context, cartItemIDs []int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
