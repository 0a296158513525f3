package model

import "time"

type CheckoutStatus string

const (
	CheckoutStatusPending   CheckoutStatus = "PENDING"
	CheckoutStatusCompleted CheckoutStatus = "COMPLETED"
	CheckoutStatusExpired   CheckoutStatus = "EXPIRED"
	CheckoutStatusCanceled  CheckoutStatus = "CANCELED"
)

// 一時的なチェックアウト（在庫の取り置き）
// PENDINGの間だけ在庫を確保し、expires_atを過ぎたら掃除ジョブが在庫を戻す。
// PENDING以外は終端状態で、二度と変わらない。
type Checkout struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64          `gorm:"not null;index" json:"user_id"`
	AddressID int64          `gorm:"not null" json:"address_id"`
	Status    CheckoutStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ExpiresAt time.Time      `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (c *Checkout) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// 期限までの残り秒数（過ぎていれば0）
func (c *Checkout) SecondsRemaining(now time.Time) int64 {
	if c.IsExpired(now) {
		return 0
	}
	return int64(c.ExpiresAt.Sub(now).Seconds())
}
