package model

import "time"

// 取り置き中の明細。価格は予約時点の販売価格を保存する。
type CheckoutItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CheckoutID        int64     `gorm:"not null;index" json:"checkout_id"`
	ProductID         int64     `gorm:"not null;index" json:"product_id"`
	Quantity          int64     `gorm:"not null" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
