package integration

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	purchasingapp "github.com/hardstock/backend/internal/application/purchasing"
)

// NoopInventorySync logs stock increases without applying them anywhere.
// Used in development when no inventory service URL is configured.
type NoopInventorySync struct {
	logger *zap.Logger
}

// NewNoopInventorySync creates a no-op inventory adapter
func NewNoopInventorySync(logger *zap.Logger) *NoopInventorySync {
	return &NoopInventorySync{logger: logger}
}

// ApplyStockIncrease logs the increase and succeeds
func (s *NoopInventorySync) ApplyStockIncrease(ctx context.Context, productID uuid.UUID, quantity decimal.Decimal, idempotencyKey string) error {
	s.logger.Info("stock increase (noop)",
		zap.String("product_id", productID.String()),
		zap.String("quantity", quantity.String()),
		zap.String("idempotency_key", idempotencyKey),
	)
	return nil
}

var _ purchasingapp.InventorySync = (*NoopInventorySync)(nil)
