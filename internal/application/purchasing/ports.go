package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierInfo is the denormalized supplier data captured at order creation
type SupplierInfo struct {
	ID   uuid.UUID
	Name string
}

// SupplierDirectory looks up supplier master data. The purchasing core never
// owns or mutates supplier records; it only snapshots names at creation time.
type SupplierDirectory interface {
	GetSupplier(ctx context.Context, id uuid.UUID) (*SupplierInfo, error)
}

// ProductInfo is the denormalized product data captured at order creation
type ProductInfo struct {
	ID   uuid.UUID
	Name string
}

// ProductCatalog looks up product master data, read-only
type ProductCatalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductInfo, error)
}

// InventorySync applies stock increases downstream of committed receiving
// events. Delivery is at-least-once: the idempotency key makes repeated
// delivery a no-op on the inventory side.
type InventorySync interface {
	ApplyStockIncrease(ctx context.Context, productID uuid.UUID, quantity decimal.Decimal, idempotencyKey string) error
}
