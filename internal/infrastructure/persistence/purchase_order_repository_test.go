package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hardstock/backend/internal/domain/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&purchasing.PurchaseOrder{},
		&purchasing.PurchaseOrderItem{},
		&purchasing.ReceivingEvent{},
		&purchasing.ReceivingLine{},
		&purchasing.PaymentEvent{},
		&shared.OutboxEntry{},
	))

	return db
}

func newStoredOrder(t *testing.T, repo *GormPurchaseOrderRepository, orderNumber string) *purchasing.PurchaseOrder {
	t.Helper()

	order, err := purchasing.NewPurchaseOrder(
		orderNumber,
		uuid.New(),
		"Acme Fasteners Ltd",
		time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		purchasing.PaymentTermsNet30,
		"",
	)
	require.NoError(t, err)
	require.NoError(t, order.AddItem(uuid.New(), "Claw Hammer 16oz", decimal.NewFromInt(10), decimal.NewFromInt(10)))
	require.NoError(t, order.AddItem(uuid.New(), "Tape Measure 5m", decimal.NewFromInt(5), decimal.NewFromInt(10)))
	order.ClearDomainEvents()

	require.NoError(t, repo.Save(context.Background(), order))
	return order
}

func receiveQuantity(t *testing.T, order *purchasing.PurchaseOrder, itemID uuid.UUID, qty int64) *purchasing.ReceivingEvent {
	t.Helper()
	event, err := order.Receive(purchasing.ReceiveCommand{
		ReceivedDate: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		ReceivedBy:   "warehouse",
		Lines: []purchasing.ReceiveLine{
			{ItemID: itemID, Quantity: decimal.NewFromInt(qty)},
		},
	})
	require.NoError(t, err)
	return event
}

func TestGormPurchaseOrderRepository_SaveAndFindByID(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)

	order := newStoredOrder(t, repo, "PO-2026-00001")

	found, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "PO-2026-00001", found.OrderNumber)
	assert.Equal(t, 1, found.GetVersion())
	assert.Len(t, found.Items, 2)
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, purchasing.ReceivingStatusOpen, found.ReceivingStatus)
}

func TestGormPurchaseOrderRepository_FindByID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormPurchaseOrderRepository_FindByOrderNumber(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)

	order := newStoredOrder(t, repo, "PO-2026-00007")

	found, err := repo.FindByOrderNumber(context.Background(), "PO-2026-00007")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByOrderNumber(context.Background(), "PO-2026-99999")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormPurchaseOrderRepository_SaveWithLockAndEvents(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)
	logRepo := NewGormEventLogRepository(db)

	order := newStoredOrder(t, repo, "PO-2026-00002")
	itemID := order.Items[0].ID

	receiveQuantity(t, order, itemID, 4)
	require.Equal(t, 2, order.GetVersion())

	err := repo.SaveWithLockAndEvents(context.Background(), order, order.GetDomainEvents())
	require.NoError(t, err)
	order.ClearPendingEvents()
	order.ClearDomainEvents()

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.GetVersion())
	assert.Equal(t, purchasing.ReceivingStatusPartial, stored.ReceivingStatus)
	assert.Equal(t, 1, stored.EventCount)
	assert.True(t, stored.FindItem(itemID).ReceivedQuantity.Equal(decimal.NewFromInt(4)))

	events, err := logRepo.FindReceivingEvents(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Lines, 1)
	assert.True(t, events[0].Lines[0].QuantityReceived.Equal(decimal.NewFromInt(4)))
}

func TestGormPurchaseOrderRepository_StaleVersionRejected(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)

	order := newStoredOrder(t, repo, "PO-2026-00003")
	itemID := order.Items[0].ID

	// Two copies loaded at version 1
	first, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)

	receiveQuantity(t, first, itemID, 2)
	require.NoError(t, repo.SaveWithLockAndEvents(context.Background(), first, nil))

	receiveQuantity(t, second, itemID, 3)
	err = repo.SaveWithLockAndEvents(context.Background(), second, nil)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONCURRENCY_CONFLICT", domainErr.Code)

	stored, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.GetVersion(), "loser's changes must not be persisted")
	assert.True(t, stored.FindItem(itemID).ReceivedQuantity.Equal(decimal.NewFromInt(2)))
}

func TestGormPurchaseOrderRepository_SaveWithLockAndEvents_WritesOutbox(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)
	repo.SetOutboxEventSaver(&recordingOutboxSaver{db: db})

	order := newStoredOrder(t, repo, "PO-2026-00004")
	receiveQuantity(t, order, order.Items[0].ID, 1)

	require.NoError(t, repo.SaveWithLockAndEvents(context.Background(), order, order.GetDomainEvents()))

	var count int64
	require.NoError(t, db.Model(&shared.OutboxEntry{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// recordingOutboxSaver writes bare outbox rows without JSON serialization
type recordingOutboxSaver struct {
	db *gorm.DB
}

func (s *recordingOutboxSaver) SaveEvents(ctx context.Context, txProvider interface{}, events ...shared.DomainEvent) error {
	tx, ok := txProvider.(*gorm.DB)
	if !ok {
		return fmt.Errorf("expected *gorm.DB, got %T", txProvider)
	}
	for _, evt := range events {
		if err := tx.Create(shared.NewOutboxEntry(evt, []byte("{}"))).Error; err != nil {
			return err
		}
	}
	return nil
}

func TestGormPurchaseOrderRepository_GenerateOrderNumber(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)

	year := time.Now().Year()

	first, err := repo.GenerateOrderNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("PO-%d-00001", year), first)

	newStoredOrder(t, repo, first)

	second, err := repo.GenerateOrderNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("PO-%d-00002", year), second)
}

func TestGormPurchaseOrderRepository_FindAll(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)

	for i := 1; i <= 3; i++ {
		newStoredOrder(t, repo, fmt.Sprintf("PO-2026-%05d", i))
	}
	cancelled := newStoredOrder(t, repo, "PO-2026-00099")
	require.NoError(t, cancelled.Cancel("ordered twice"))
	require.NoError(t, repo.SaveWithLockAndEvents(context.Background(), cancelled, nil))

	filter := shared.DefaultFilter()
	filter.Filters = map[string]interface{}{"cancelled": false}
	orders, total, err := repo.FindAll(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 3)

	filter.PageSize = 2
	orders, total, err = repo.FindAll(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "total ignores pagination")
	assert.Len(t, orders, 2)
}

func TestGormPurchaseOrderRepository_CountByReceivingStatus(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)

	newStoredOrder(t, repo, "PO-2026-00001")
	partial := newStoredOrder(t, repo, "PO-2026-00002")
	receiveQuantity(t, partial, partial.Items[0].ID, 1)
	require.NoError(t, repo.SaveWithLockAndEvents(context.Background(), partial, nil))

	counts, err := repo.CountByReceivingStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[purchasing.ReceivingStatusOpen])
	assert.Equal(t, int64(1), counts[purchasing.ReceivingStatusPartial])
}

func TestGormEventLogRepository_OldestFirst(t *testing.T) {
	db := openTestDB(t)
	repo := NewGormPurchaseOrderRepository(db)
	logRepo := NewGormEventLogRepository(db)

	order := newStoredOrder(t, repo, "PO-2026-00001")
	itemID := order.Items[0].ID

	for i := 0; i < 3; i++ {
		receiveQuantity(t, order, itemID, 1)
		require.NoError(t, repo.SaveWithLockAndEvents(context.Background(), order, nil))
		order.ClearPendingEvents()
	}

	_, err := order.RecordPayment(decimal.NewFromInt(50), purchasing.PaymentMethodCheck, "", time.Now(), false)
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLockAndEvents(context.Background(), order, nil))
	order.ClearPendingEvents()

	receiving, err := logRepo.FindReceivingEvents(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, receiving, 3)

	payments, err := logRepo.FindPaymentEvents(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromInt(50)))
}
