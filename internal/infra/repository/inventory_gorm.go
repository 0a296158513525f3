package repository

import (
	"context"

	"gorm.io/gorm"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
)

// InventoryGormRepository はproducts.stockへの書き込みを一手に引き受ける。
// 減算は必ず条件付きUPDATE1本で行い、読み→書きの隙間を作らない。
type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

// DecreaseStockIfEnough は stock >= qty の行だけ減らす。
// RowsAffected==0 なら在庫不足（他の予約に先を越されたケースを含む）。
func (r *InventoryGormRepository) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncreaseStock は取り置き解除の在庫戻し。減算と違って条件は要らない。
func (r *InventoryGormRepository) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	return r.applyToProduct(ctx, productID, gorm.Expr("stock + ?", qty))
}

// SetStock は管理者の棚卸しで絶対値を入れる。
func (r *InventoryGormRepository) SetStock(ctx context.Context, productID int64, newStock int64) error {
	return r.applyToProduct(ctx, productID, newStock)
}

func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(&adj).Error
}

func (r *InventoryGormRepository) applyToProduct(ctx context.Context, productID int64, stockValue any) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		Update("stock", stockValue)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
