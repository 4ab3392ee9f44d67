package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hardstock/backend/internal/domain/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM.
// The domain aggregate carries its own column mapping, so it is persisted
// directly without an intermediate model layer.
type GormPurchaseOrderRepository struct {
	db                *gorm.DB
	orderNumberPrefix string
	outboxSaver       shared.OutboxEventSaver // optional, for transactional outbox
}

// NewGormPurchaseOrderRepository creates a new repository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{
		db:                db,
		orderNumberPrefix: "PO",
	}
}

// SetOutboxEventSaver enables transactional outbox event publishing
func (r *GormPurchaseOrderRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// SetOrderNumberPrefix overrides the order number prefix
func (r *GormPurchaseOrderRepository) SetOrderNumberPrefix(prefix string) {
	if prefix != "" {
		r.orderNumberPrefix = prefix
	}
}

// FindByID retrieves an order with its items
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	var order purchasing.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByOrderNumber retrieves an order with its items by order number
func (r *GormPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*purchasing.PurchaseOrder, error) {
	var order purchasing.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindAll retrieves orders matching the filter with the total count
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]purchasing.PurchaseOrder, int64, error) {
	var total int64
	countQuery := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&purchasing.PurchaseOrder{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []purchasing.PurchaseOrder
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&purchasing.PurchaseOrder{}), filter)
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// Save persists a new order with its items
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *purchasing.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(order).Error; err != nil {
			return err
		}

		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if err := tx.Save(&order.Items[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// SaveWithLockAndEvents persists a mutated order with optimistic locking.
// The aggregate has already incremented its version for the command being
// committed, so the stored row must still carry the pre-command version.
// Pending event log entries and outbox events are flushed in the same
// transaction, which is what makes the log append atomic with the snapshot.
func (r *GormPurchaseOrderRepository) SaveWithLockAndEvents(ctx context.Context, order *purchasing.PurchaseOrder, events []shared.DomainEvent) error {
	baseVersion := order.GetVersion() - 1

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&purchasing.PurchaseOrder{}).
			Where("id = ?", order.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if currentVersion == 0 {
			return shared.ErrNotFound
		}

		if currentVersion != baseVersion {
			return conflictError()
		}

		order.UpdatedAt = time.Now()

		result := tx.Model(&purchasing.PurchaseOrder{}).
			Where("id = ? AND version = ?", order.ID, baseVersion).
			Updates(map[string]interface{}{
				"supplier_id":            order.SupplierID,
				"supplier_name":          order.SupplierName,
				"expected_delivery_date": order.ExpectedDeliveryDate,
				"payment_terms":          order.PaymentTerms,
				"notes":                  order.Notes,
				"total_amount":           order.TotalAmount,
				"paid_amount":            order.PaidAmount,
				"receiving_status":       order.ReceivingStatus,
				"payment_status":         order.PaymentStatus,
				"event_count":            order.EventCount,
				"closed_at":              order.ClosedAt,
				"closed_by":              order.ClosedBy,
				"cancelled":              order.Cancelled,
				"cancelled_at":           order.CancelledAt,
				"cancel_reason":          order.CancelReason,
				"version":                order.GetVersion(),
				"updated_at":             order.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return conflictError()
		}

		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if err := tx.Save(&order.Items[i]).Error; err != nil {
				return err
			}
		}

		// Append new event log entries
		for _, recv := range order.PendingReceivingEvents() {
			if err := tx.Create(recv).Error; err != nil {
				return fmt.Errorf("failed to append receiving event: %w", err)
			}
		}
		for _, pay := range order.PendingPaymentEvents() {
			if err := tx.Create(pay).Error; err != nil {
				return fmt.Errorf("failed to append payment event: %w", err)
			}
		}

		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return fmt.Errorf("failed to save events to outbox: %w", err)
			}
		}

		return nil
	})
}

// ExistsByOrderNumber checks if an order number is already taken
func (r *GormPurchaseOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&purchasing.PurchaseOrder{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateOrderNumber generates the next sequential order number.
// Format: PO-YYYY-NNNNN, numbering restarts each year.
func (r *GormPurchaseOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("%s-%d-", r.orderNumberPrefix, year)

	var lastNumbers []string
	err := r.db.WithContext(ctx).
		Model(&purchasing.PurchaseOrder{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &lastNumbers).Error
	if err != nil {
		return "", err
	}

	var nextNum int64 = 1
	if len(lastNumbers) > 0 && lastNumbers[0] != "" {
		parts := strings.Split(lastNumbers[0], "-")
		var num int64
		if _, parseErr := fmt.Sscanf(parts[len(parts)-1], "%d", &num); parseErr == nil {
			nextNum = num + 1
		}
	}

	orderNumber := fmt.Sprintf("%s%05d", prefix, nextNum)

	exists, err := r.ExistsByOrderNumber(ctx, orderNumber)
	if err != nil {
		return "", err
	}
	for i := 0; exists && i < 100; i++ {
		nextNum++
		orderNumber = fmt.Sprintf("%s%05d", prefix, nextNum)
		exists, err = r.ExistsByOrderNumber(ctx, orderNumber)
		if err != nil {
			return "", err
		}
	}

	return orderNumber, nil
}

// CountByReceivingStatus returns order counts per receiving status
func (r *GormPurchaseOrderRepository) CountByReceivingStatus(ctx context.Context) (map[purchasing.ReceivingStatus]int64, error) {
	type statusCount struct {
		ReceivingStatus purchasing.ReceivingStatus
		Count           int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&purchasing.PurchaseOrder{}).
		Select("receiving_status, count(*) as count").
		Group("receiving_status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[purchasing.ReceivingStatus]int64)
	for _, sc := range results {
		counts[sc.ReceivingStatus] = sc.Count
	}
	return counts, nil
}

func (r *GormPurchaseOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	sortField := ValidateSortField(filter.OrderBy, PurchaseOrderSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	return query.Order(sortField + " " + sortOrder)
}

func (r *GormPurchaseOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("order_number LIKE ? OR supplier_name LIKE ?", pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "supplier_id":
			query = query.Where("supplier_id = ?", value)
		case "receiving_status":
			query = query.Where("receiving_status = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "cancelled":
			query = query.Where("cancelled = ?", value)
		case "start_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("order_date >= ?", t)
			}
		case "end_date":
			if t, ok := value.(time.Time); ok {
				query = query.Where("order_date <= ?", t)
			}
		}
	}

	return query
}

func conflictError() *shared.DomainError {
	return shared.NewDomainError("CONCURRENCY_CONFLICT", "The order has been modified since it was last read; fetch the latest version and retry")
}

var _ purchasing.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
