package repository

import (
	"context"
	"errors"
	"time"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"

	"gorm.io/gorm"
)

type CheckoutGormRepository struct {
	db *gorm.DB
}

func NewCheckoutGormRepository(db *gorm.DB) *CheckoutGormRepository {
	return &CheckoutGormRepository{db: db}
}

func (r *CheckoutGormRepository) Create(ctx context.Context, c model.Checkout) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (r *CheckoutGormRepository) FindByIDForUser(ctx context.Context, checkoutID int64, userID int64) (model.Checkout, error) {
	var c model.Checkout
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", checkoutID, userID).
		First(&c).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Checkout{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Checkout{}, err
	}
	return c, nil
}

// PENDINGのときだけstatusを更新する。
// RowsAffected==0 は「別の遷移が先に勝った」。complete/cancel/期限切れ掃除のうち
// 勝者は必ず1つだけになる。
func (r *CheckoutGormRepository) UpdateStatusIfPending(ctx context.Context, checkoutID int64, next model.CheckoutStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Checkout{}).
		Where("id = ? AND status = ?", checkoutID, model.CheckoutStatusPending).
		Update("status", next)

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 期限切れのPENDINGを古い順に返す
func (r *CheckoutGormRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]model.Checkout, error) {
	if limit <= 0 {
		limit = 100
	}

	var list []model.Checkout
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", model.CheckoutStatusPending, now).
		Order("expires_at asc").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return []model.Checkout{}, err
	}
	return list, nil
}

type CheckoutItemGormRepository struct {
	db *gorm.DB
}

func NewCheckoutItemGormRepository(db *gorm.DB) *CheckoutItemGormRepository {
	return &CheckoutItemGormRepository{db: db}
}

func (r *CheckoutItemGormRepository) CreateBulk(ctx context.Context, checkoutID int64, items []model.CheckoutItem) error {
	if len(items) == 0 {
		return nil
	}

	for i := range items {
		items[i].CheckoutID = checkoutID
	}

	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *CheckoutItemGormRepository) ListByCheckoutID(ctx context.Context, checkoutID int64) ([]model.CheckoutItem, error) {
	var items []model.CheckoutItem
	if err := r.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CheckoutItem{}, err
	}
	return items, nil
}
