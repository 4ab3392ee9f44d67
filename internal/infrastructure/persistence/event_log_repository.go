package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hardstock/backend/internal/domain/purchasing"
)

// GormEventLogRepository reads the append-only receiving and payment event
// logs. Writes happen only through the aggregate save path; this repository
// is read-only on purpose.
type GormEventLogRepository struct {
	db *gorm.DB
}

// NewGormEventLogRepository creates a new event log repository
func NewGormEventLogRepository(db *gorm.DB) *GormEventLogRepository {
	return &GormEventLogRepository{db: db}
}

// FindReceivingEvents retrieves all receiving events for an order, oldest first
func (r *GormEventLogRepository) FindReceivingEvents(ctx context.Context, orderID uuid.UUID) ([]purchasing.ReceivingEvent, error) {
	var events []purchasing.ReceivingEvent
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("purchase_order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

// FindPaymentEvents retrieves all payment events for an order, oldest first
func (r *GormEventLogRepository) FindPaymentEvents(ctx context.Context, orderID uuid.UUID) ([]purchasing.PaymentEvent, error) {
	var events []purchasing.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("purchase_order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}

var _ purchasing.EventLogRepository = (*GormEventLogRepository)(nil)
