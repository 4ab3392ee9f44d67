package purchasing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hardstock/backend/internal/domain/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

type recordingInventory struct {
	applied map[string]decimal.Decimal
	failFor map[uuid.UUID]error
}

func newRecordingInventory() *recordingInventory {
	return &recordingInventory{
		applied: make(map[string]decimal.Decimal),
		failFor: make(map[uuid.UUID]error),
	}
}

func (r *recordingInventory) ApplyStockIncrease(_ context.Context, productID uuid.UUID, quantity decimal.Decimal, idempotencyKey string) error {
	if err := r.failFor[productID]; err != nil {
		return err
	}
	// Idempotent: a key already applied is a no-op.
	if _, done := r.applied[idempotencyKey]; done {
		return nil
	}
	r.applied[idempotencyKey] = quantity
	return nil
}

func (r *recordingInventory) total() decimal.Decimal {
	sum := decimal.Zero
	for _, q := range r.applied {
		sum = sum.Add(q)
	}
	return sum
}

func buildGoodsReceivedEvent(t *testing.T) (*purchasing.GoodsReceivedEvent, *purchasing.PurchaseOrder) {
	t.Helper()
	order, err := purchasing.NewPurchaseOrder("PO-2026-00042", uuid.New(), "Acme Fasteners Ltd", time.Now(), purchasing.PaymentTermsNet30, "")
	require.NoError(t, err)
	require.NoError(t, order.AddItem(uuid.New(), "Claw Hammer", decimal.NewFromInt(10), decimal.NewFromInt(10)))
	require.NoError(t, order.AddItem(uuid.New(), "Tape Measure 5m", decimal.NewFromInt(5), decimal.NewFromInt(10)))
	order.ClearDomainEvents()

	_, err = order.Receive(purchasing.ReceiveCommand{
		ReceivedDate: time.Now(),
		ReceivedBy:   "jordan",
		Lines: []purchasing.ReceiveLine{
			{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(4)},
			{ItemID: order.Items[1].ID, Quantity: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	events := order.GetDomainEvents()
	require.Len(t, events, 1)
	received, ok := events[0].(*purchasing.GoodsReceivedEvent)
	require.True(t, ok)
	return received, order
}

func TestGoodsReceivedHandler_EventTypes(t *testing.T) {
	handler := NewGoodsReceivedHandler(newRecordingInventory(), zap.NewNop())
	assert.Equal(t, []string{purchasing.EventTypeGoodsReceived}, handler.EventTypes())
}

func TestGoodsReceivedHandler_AppliesEveryLine(t *testing.T) {
	event, _ := buildGoodsReceivedEvent(t)
	inventory := newRecordingInventory()
	handler := NewGoodsReceivedHandler(inventory, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))

	assert.Len(t, inventory.applied, 2)
	assert.True(t, inventory.total().Equal(decimal.NewFromInt(9)))
}

func TestGoodsReceivedHandler_RedeliveryIsNoOp(t *testing.T) {
	event, _ := buildGoodsReceivedEvent(t)
	inventory := newRecordingInventory()
	handler := NewGoodsReceivedHandler(inventory, zap.NewNop())

	require.NoError(t, handler.Handle(context.Background(), event))
	require.NoError(t, handler.Handle(context.Background(), event))

	// Same idempotency keys the second time around: no double increment.
	assert.Len(t, inventory.applied, 2)
	assert.True(t, inventory.total().Equal(decimal.NewFromInt(9)))
}

func TestGoodsReceivedHandler_PartialFailureReported(t *testing.T) {
	event, order := buildGoodsReceivedEvent(t)
	inventory := newRecordingInventory()
	inventory.failFor[order.Items[0].ProductID] = errors.New("inventory service unavailable")
	handler := NewGoodsReceivedHandler(inventory, zap.NewNop())

	err := handler.Handle(context.Background(), event)
	require.Error(t, err)

	// The healthy line was still applied; the failed one is retried via redelivery.
	assert.Len(t, inventory.applied, 1)
}

func TestGoodsReceivedHandler_IgnoresForeignEvents(t *testing.T) {
	handler := NewGoodsReceivedHandler(newRecordingInventory(), zap.NewNop())

	base := shared.NewBaseDomainEvent("something.else", "Other", uuid.New())
	err := handler.Handle(context.Background(), &base)
	assert.NoError(t, err)
}
