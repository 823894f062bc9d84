package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teahaven/teahaven-backend/pkg/db/models"
	"github.com/teahaven/teahaven-backend/pkg/pagination"
)

// Repository exposes product persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	AddStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindActiveByIDs loads the active products among the provided ids. Callers
// compare the result count against the request to detect missing listings.
func (r *repository) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	return r.page(query, cursor, limit)
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	return r.page(query, cursor, limit)
}

func (r *repository) page(query *gorm.DB, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var items []models.Product
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DecrementStock atomically subtracts qty and recomputes is_active in one
// guarded UPDATE. A false return means the row no longer had qty units, so
// the caller must treat the attempt as lost to a concurrent purchase.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND is_active = ? AND stock >= ?", id, true, qty).
		Updates(map[string]any{
			"stock":     gorm.Expr("stock - ?", qty),
			"is_active": gorm.Expr("(stock - ?) > 0", qty),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AddStock restocks a listing and reactivates it when the new level is positive.
func (r *repository) AddStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":     gorm.Expr("stock + ?", qty),
			"is_active": gorm.Expr("(stock + ?) > 0", qty),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
