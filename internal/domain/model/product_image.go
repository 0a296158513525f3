package model

import "time"

// 商品画像（URL参照のみ。アップロードは対象外）
type ProductImage struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	URL       string    `gorm:"type:varchar(512);not null" json:"url"`
	AltText   string    `gorm:"type:varchar(150)" json:"alt_text"`
	SortOrder int64     `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
