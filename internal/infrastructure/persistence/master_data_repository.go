package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	purchasingapp "github.com/hardstock/backend/internal/application/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

// Supplier is a master data record snapshotted into orders at creation
type Supplier struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Name         string    `gorm:"type:varchar(200);not null"`
	ContactPhone string    `gorm:"type:varchar(50)"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// Product is a master data record snapshotted into order items at creation
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SKU       string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// GormMasterDataRepository serves read-only supplier and product lookups.
// The purchasing core only snapshots names from these tables; it never
// mutates master data.
type GormMasterDataRepository struct {
	db *gorm.DB
}

// NewGormMasterDataRepository creates a new master data repository
func NewGormMasterDataRepository(db *gorm.DB) *GormMasterDataRepository {
	return &GormMasterDataRepository{db: db}
}

// GetSupplier looks up an active supplier by ID
func (r *GormMasterDataRepository) GetSupplier(ctx context.Context, id uuid.UUID) (*purchasingapp.SupplierInfo, error) {
	var supplier Supplier
	if err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &purchasingapp.SupplierInfo{ID: supplier.ID, Name: supplier.Name}, nil
}

// GetProduct looks up an active product by ID
func (r *GormMasterDataRepository) GetProduct(ctx context.Context, id uuid.UUID) (*purchasingapp.ProductInfo, error) {
	var product Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &purchasingapp.ProductInfo{ID: product.ID, Name: product.Name}, nil
}

var (
	_ purchasingapp.SupplierDirectory = (*GormMasterDataRepository)(nil)
	_ purchasingapp.ProductCatalog    = (*GormMasterDataRepository)(nil)
)
