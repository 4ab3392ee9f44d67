package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardstock/backend/internal/domain/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

func TestPurchasingEventSerializer_RegistersAllEventTypes(t *testing.T) {
	s := NewPurchasingEventSerializer()

	for _, eventType := range []string{
		purchasing.EventTypePurchaseOrderCreated,
		purchasing.EventTypeGoodsReceived,
		purchasing.EventTypePaymentRecorded,
		purchasing.EventTypePurchaseOrderClosed,
		purchasing.EventTypePurchaseOrderCancelled,
	} {
		assert.True(t, s.IsRegistered(eventType), eventType)
	}
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := NewPurchasingEventSerializer()

	orderID := uuid.New()
	original := &purchasing.GoodsReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			purchasing.EventTypeGoodsReceived,
			purchasing.AggregateTypePurchaseOrder,
			orderID,
		),
		OrderNumber:  "PO-2026-00042",
		LogEventID:   uuid.New(),
		ReceivedDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		ReceivedBy:   "warehouse",
		Lines: []purchasing.ReceivedLineInfo{
			{
				ItemID:           uuid.New(),
				ProductID:        uuid.New(),
				ProductName:      "Claw Hammer 16oz",
				QuantityReceived: decimal.NewFromInt(4),
			},
		},
		ReceivingStatus: purchasing.ReceivingStatusPartial,
	}

	payload, err := s.Serialize(original)
	require.NoError(t, err)

	restored, err := s.Deserialize(purchasing.EventTypeGoodsReceived, payload)
	require.NoError(t, err)

	received, ok := restored.(*purchasing.GoodsReceivedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), received.EventID())
	assert.Equal(t, orderID, received.AggregateID())
	assert.Equal(t, original.OrderNumber, received.OrderNumber)
	assert.Equal(t, original.LogEventID, received.LogEventID)
	require.Len(t, received.Lines, 1)
	assert.True(t, received.Lines[0].QuantityReceived.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, purchasing.ReceivingStatusPartial, received.ReceivingStatus)
}

func TestEventSerializer_UnknownType(t *testing.T) {
	s := NewEventSerializer()

	_, err := s.Deserialize("purchasing.unknown", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestEventSerializer_InvalidPayload(t *testing.T) {
	s := NewPurchasingEventSerializer()

	_, err := s.Deserialize(purchasing.EventTypePaymentRecorded, []byte("not json"))
	require.Error(t, err)
}
