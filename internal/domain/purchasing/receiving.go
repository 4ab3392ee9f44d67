package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceivingEvent is an append-only record of physical goods arrival against a
// purchase order. Events are immutable once committed; corrections are new
// events, never edits.
type ReceivingEvent struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReceivedDate    time.Time       `gorm:"not null"`
	ReceivedBy      string          `gorm:"type:varchar(100);not null"`
	Notes           string          `gorm:"type:varchar(1000)"`
	Lines           []ReceivingLine `gorm:"foreignKey:ReceivingEventID"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceivingEvent) TableName() string {
	return "receiving_events"
}

// ReceivingLine is one item-level quantity increase within a receiving event.
// ActualUnitPrice captures the price on the delivery note when it differs
// from the PO unit price; it is informational only and never changes the
// line total.
type ReceivingLine struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	ReceivingEventID uuid.UUID        `gorm:"type:uuid;not null;index"`
	ItemID           uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID        `gorm:"type:uuid;not null"`
	QuantityReceived decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ActualUnitPrice  *decimal.Decimal `gorm:"type:decimal(18,4)"`
	CreatedAt        time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceivingLine) TableName() string {
	return "receiving_event_lines"
}

// ReceiveLine is one requested quantity increase in a receive command
type ReceiveLine struct {
	ItemID          uuid.UUID
	Quantity        decimal.Decimal
	ActualUnitPrice *decimal.Decimal
}

// ReceiveCommand is a batch receiving request against a purchase order
type ReceiveCommand struct {
	ReceivedDate time.Time
	ReceivedBy   string
	Notes        string
	Lines        []ReceiveLine
}

// processReceiving validates and applies a receive command as one atomic
// unit. Validation runs over the whole batch first; if any line fails the
// order is left untouched. Duplicate lines for the same item are validated
// against the remaining quantity jointly, not line by line.
func processReceiving(order *PurchaseOrder, cmd ReceiveCommand) (*ReceivingEvent, error) {
	if len(cmd.Lines) == 0 {
		return nil, NewValidationError("receive lines cannot be empty")
	}
	if cmd.ReceivedBy == "" {
		return nil, NewValidationError("received by cannot be empty")
	}
	if cmd.ReceivedDate.IsZero() {
		return nil, NewValidationError("received date cannot be empty")
	}

	requested := make(map[uuid.UUID]decimal.Decimal)
	for _, line := range cmd.Lines {
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, NewValidationError("receive quantity must be positive")
		}
		if line.ActualUnitPrice != nil && line.ActualUnitPrice.LessThanOrEqual(decimal.Zero) {
			return nil, NewValidationError("actual unit price must be positive")
		}
		requested[line.ItemID] = requested[line.ItemID].Add(line.Quantity)
	}

	for itemID, quantity := range requested {
		item := order.FindItem(itemID)
		if item == nil {
			return nil, NewValidationError("item %s is not on this order", itemID)
		}
		if quantity.GreaterThan(item.RemainingQuantity()) {
			return nil, NewOverReceiptError(
				"cannot receive %s of %s: only %s of %s remaining",
				quantity, item.ProductName, item.RemainingQuantity(), item.OrderedQuantity,
			)
		}
	}

	// Whole batch validated; apply all deltas.
	now := time.Now()
	event := &ReceivingEvent{
		ID:              uuid.New(),
		PurchaseOrderID: order.ID,
		ReceivedDate:    cmd.ReceivedDate,
		ReceivedBy:      cmd.ReceivedBy,
		Notes:           cmd.Notes,
		CreatedAt:       now,
	}

	for _, line := range cmd.Lines {
		item := order.FindItem(line.ItemID)
		item.ReceivedQuantity = item.ReceivedQuantity.Add(line.Quantity)
		item.UpdatedAt = now

		event.Lines = append(event.Lines, ReceivingLine{
			ID:               uuid.New(),
			ReceivingEventID: event.ID,
			ItemID:           item.ID,
			ProductID:        item.ProductID,
			QuantityReceived: line.Quantity,
			ActualUnitPrice:  line.ActualUnitPrice,
			CreatedAt:        now,
		})
	}

	return event, nil
}
