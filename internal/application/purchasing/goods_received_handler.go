package purchasing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hardstock/backend/internal/domain/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

// GoodsReceivedHandler pushes committed receiving events to inventory.
// Dispatch happens strictly after the order mutation commits; a failed stock
// increase never rolls back the receiving event, it is retried out of band by
// the outbox. Each line carries its own idempotency key (receiving event ID
// plus item ID) so redelivery is a no-op on the inventory side.
type GoodsReceivedHandler struct {
	inventory InventorySync
	logger    *zap.Logger
}

// NewGoodsReceivedHandler creates a new GoodsReceivedHandler
func NewGoodsReceivedHandler(inventory InventorySync, logger *zap.Logger) *GoodsReceivedHandler {
	return &GoodsReceivedHandler{
		inventory: inventory,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *GoodsReceivedHandler) EventTypes() []string {
	return []string{purchasing.EventTypeGoodsReceived}
}

// Handle applies the stock increase for every received line
func (h *GoodsReceivedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	received, ok := event.(*purchasing.GoodsReceivedEvent)
	if !ok {
		h.logger.Warn("unexpected event type for goods received handler",
			zap.String("event_type", event.EventType()))
		return nil
	}

	h.logger.Info("syncing received goods to inventory",
		zap.String("order_number", received.OrderNumber),
		zap.String("receiving_event_id", received.LogEventID.String()),
		zap.Int("lines", len(received.Lines)))

	var lastErr error
	failed := 0
	for _, line := range received.Lines {
		key := fmt.Sprintf("%s:%s", received.LogEventID, line.ItemID)
		if err := h.inventory.ApplyStockIncrease(ctx, line.ProductID, line.QuantityReceived, key); err != nil {
			// Keep going: lines are independent, and the whole event is
			// redelivered on failure with per-line idempotency keys.
			failed++
			lastErr = err
			h.logger.Error("failed to apply stock increase",
				zap.String("order_number", received.OrderNumber),
				zap.String("product_id", line.ProductID.String()),
				zap.String("idempotency_key", key),
				zap.Error(err))
		}
	}

	if lastErr != nil {
		return fmt.Errorf("inventory sync failed for %d of %d lines: %w", failed, len(received.Lines), lastErr)
	}

	h.logger.Info("inventory sync completed",
		zap.String("order_number", received.OrderNumber),
		zap.String("receiving_event_id", received.LogEventID.String()))

	return nil
}
