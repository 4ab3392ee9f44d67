package purchasing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardstock/backend/internal/domain/shared/valueobject"
)

// ReceivingStatus tracks how much of the ordered goods has physically arrived.
// The chain OPEN -> PARTIAL -> RECEIVED -> CLOSED is strictly monotonic:
// received quantities only increase, so a later status never regresses.
type ReceivingStatus string

const (
	ReceivingStatusOpen     ReceivingStatus = "OPEN"
	ReceivingStatusPartial  ReceivingStatus = "PARTIAL"
	ReceivingStatusReceived ReceivingStatus = "RECEIVED"
	ReceivingStatusClosed   ReceivingStatus = "CLOSED"
)

var receivingStatusRank = map[ReceivingStatus]int{
	ReceivingStatusOpen:     0,
	ReceivingStatusPartial:  1,
	ReceivingStatusReceived: 2,
	ReceivingStatusClosed:   3,
}

// IsValid checks if the status is a valid receiving status
func (s ReceivingStatus) IsValid() bool {
	_, ok := receivingStatusRank[s]
	return ok
}

// CanTransitionTo checks if a transition to the target status moves forward in the chain
func (s ReceivingStatus) CanTransitionTo(target ReceivingStatus) bool {
	from, ok := receivingStatusRank[s]
	if !ok {
		return false
	}
	to, ok := receivingStatusRank[target]
	if !ok {
		return false
	}
	return to >= from
}

// PaymentStatus tracks how much of the invoiced amount has been paid
type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "UNPAID"
	PaymentStatusPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentStatusPaid          PaymentStatus = "PAID"
)

// IsValid checks if the status is a valid payment status
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartiallyPaid, PaymentStatusPaid:
		return true
	}
	return false
}

// DeriveReceivingStatus computes the receiving status from the item snapshot.
// Item received quantities are themselves the fold of the receiving event log,
// so this is equivalent to deriving from the log directly.
func DeriveReceivingStatus(items []PurchaseOrderItem) ReceivingStatus {
	if len(items) == 0 {
		return ReceivingStatusOpen
	}

	anyReceived := false
	allReceived := true
	for i := range items {
		if items[i].ReceivedQuantity.IsPositive() {
			anyReceived = true
		}
		if items[i].ReceivedQuantity.LessThan(items[i].OrderedQuantity) {
			allReceived = false
		}
	}

	switch {
	case allReceived:
		return ReceivingStatusReceived
	case anyReceived:
		return ReceivingStatusPartial
	default:
		return ReceivingStatusOpen
	}
}

// DerivePaymentStatus computes the payment status from the paid sum and order total
func DerivePaymentStatus(paid, total valueobject.Money) PaymentStatus {
	switch {
	case paid.IsZero() || paid.IsNegative():
		return PaymentStatusUnpaid
	case paid.Amount().GreaterThanOrEqual(total.Amount()):
		return PaymentStatusPaid
	default:
		return PaymentStatusPartiallyPaid
	}
}

// DeriveStatuses recomputes both status dimensions from the event log alone.
// It is pure and deterministic: the item snapshot contributes only ordered
// quantities and line totals, while progress comes entirely from the events.
// This is the recovery path when a cached snapshot is suspected to be stale.
func DeriveStatuses(
	items []PurchaseOrderItem,
	receivingEvents []ReceivingEvent,
	paymentEvents []PaymentEvent,
) (ReceivingStatus, PaymentStatus) {
	received := ReceivedQuantities(receivingEvents)

	derived := make([]PurchaseOrderItem, len(items))
	total := valueobject.ZeroUSD()
	for i := range items {
		derived[i] = items[i]
		derived[i].ReceivedQuantity = received[items[i].ID]
		total = total.MustAdd(items[i].LineTotal())
	}

	return DeriveReceivingStatus(derived), DerivePaymentStatus(PaidTotal(paymentEvents), total)
}

// ReceivedQuantities folds the receiving event log into per-item received quantities
func ReceivedQuantities(events []ReceivingEvent) map[uuid.UUID]decimal.Decimal {
	quantities := make(map[uuid.UUID]decimal.Decimal)
	for i := range events {
		for _, line := range events[i].Lines {
			quantities[line.ItemID] = quantities[line.ItemID].Add(line.QuantityReceived)
		}
	}
	return quantities
}
