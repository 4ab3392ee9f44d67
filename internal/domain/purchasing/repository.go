package purchasing

import (
	"context"

	"github.com/google/uuid"

	"github.com/hardstock/backend/internal/domain/shared"
)

// PurchaseOrderRepository defines persistence for the purchase order aggregate
type PurchaseOrderRepository interface {
	// FindByID retrieves an order with its items by ID
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	// FindByOrderNumber retrieves an order with its items by order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)
	// FindAll retrieves orders matching the filter with pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]PurchaseOrder, int64, error)
	// Save persists a new order with its items
	Save(ctx context.Context, order *PurchaseOrder) error
	// SaveWithLockAndEvents persists a mutated order with optimistic locking,
	// flushing pending event log entries and saving domain events to the
	// outbox in the same transaction. Returns a CONCURRENCY_CONFLICT domain
	// error if the stored version advanced since the order was loaded.
	SaveWithLockAndEvents(ctx context.Context, order *PurchaseOrder, events []shared.DomainEvent) error
	// ExistsByOrderNumber checks if an order number is already taken
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
	// GenerateOrderNumber generates the next sequential order number
	GenerateOrderNumber(ctx context.Context) (string, error)
	// CountByReceivingStatus returns order counts per receiving status
	CountByReceivingStatus(ctx context.Context) (map[ReceivingStatus]int64, error)
}

// EventLogRepository reads the append-only event history of an order
type EventLogRepository interface {
	// FindReceivingEvents retrieves all receiving events for an order, oldest first
	FindReceivingEvents(ctx context.Context, orderID uuid.UUID) ([]ReceivingEvent, error)
	// FindPaymentEvents retrieves all payment events for an order, oldest first
	FindPaymentEvents(ctx context.Context, orderID uuid.UUID) ([]PaymentEvent, error)
}
