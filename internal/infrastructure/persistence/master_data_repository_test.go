package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardstock/backend/internal/domain/shared"
)

func TestGormMasterDataRepository_Lookups(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&Supplier{}, &Product{}))
	repo := NewGormMasterDataRepository(db)
	ctx := context.Background()

	supplier := Supplier{
		ID:        uuid.New(),
		Name:      "Acme Fasteners Ltd",
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&supplier).Error)

	product := Product{
		ID:        uuid.New(),
		SKU:       "HAM-016",
		Name:      "Claw Hammer 16oz",
		Active:    true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&product).Error)

	inactive := Product{
		ID:        uuid.New(),
		SKU:       "DISC-001",
		Name:      "Discontinued Widget",
		Active:    false,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.Create(&inactive).Error)

	info, err := repo.GetSupplier(ctx, supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Fasteners Ltd", info.Name)

	_, err = repo.GetSupplier(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	prod, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Claw Hammer 16oz", prod.Name)

	_, err = repo.GetProduct(ctx, inactive.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "inactive products are not orderable")
}
