package model

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  int64          `gorm:"not null;index" json:"category_id"`
	Name        string         `gorm:"type:varchar(200);not null;index" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	Discount    int64          `gorm:"not null;default:0" json:"discount"`
	Stock       int64          `gorm:"not null" json:"stock"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// 割引後の販売価格（マイナスにはしない）
func (p *Product) EffectivePrice() int64 {
	v := p.Price - p.Discount
	if v < 0 {
		return 0
	}
	return v
}
