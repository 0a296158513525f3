package model

import "time"

type CartItemStatus string

const (
	CartItemStatusActive CartItemStatus = "ACTIVE"
	CartItemStatusSaved  CartItemStatus = "SAVED_FOR_LATER"
)

// カートの明細
// 同じ商品でもstatusが違えば別の行（「あとで買う」に移せる）
type CartItem struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64          `gorm:"not null;index;uniqueIndex:uq_cart_product_status" json:"cart_id"`
	ProductID int64          `gorm:"not null;index;uniqueIndex:uq_cart_product_status" json:"product_id"`
	Quantity  int64          `gorm:"not null" json:"quantity"`
	Status    CartItemStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';uniqueIndex:uq_cart_product_status" json:"status"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
