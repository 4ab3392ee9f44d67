package purchasing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardstock/backend/internal/domain/shared/valueobject"
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodStoreCredit  PaymentMethod = "STORE_CREDIT"
)

// IsValid checks if the method is a known payment method
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodStoreCredit:
		return true
	}
	return false
}

// PaymentTerms represents the agreed payment terms for an order
type PaymentTerms string

const (
	PaymentTermsCOD   PaymentTerms = "COD"
	PaymentTermsNet15 PaymentTerms = "NET_15"
	PaymentTermsNet30 PaymentTerms = "NET_30"
	PaymentTermsNet60 PaymentTerms = "NET_60"
)

// IsValid checks if the terms are known payment terms
func (t PaymentTerms) IsValid() bool {
	switch t {
	case PaymentTermsCOD, PaymentTermsNet15, PaymentTermsNet30, PaymentTermsNet60:
		return true
	}
	return false
}

// NetDays returns the number of days until payment is due
func (t PaymentTerms) NetDays() int {
	switch t {
	case PaymentTermsNet15:
		return 15
	case PaymentTermsNet30:
		return 30
	case PaymentTermsNet60:
		return 60
	default:
		return 0
	}
}

// DueDate returns the payment due date for an order placed on orderDate
func (t PaymentTerms) DueDate(orderDate time.Time) time.Time {
	return orderDate.AddDate(0, 0, t.NetDays())
}

// DueLabel derives a presentational label from the terms and the current
// date. It is computed at read time and never persisted; a stored label
// would go stale as time passes.
func (t PaymentTerms) DueLabel(orderDate, now time.Time) string {
	due := t.DueDate(orderDate)
	switch {
	case now.After(due):
		return "Overdue"
	case due.Year() == now.Year() && due.Month() == now.Month():
		return "Due this month"
	default:
		return fmt.Sprintf("Due %s", due.Format("Jan 2006"))
	}
}

// PaymentEvent is an append-only record of money paid against a purchase
// order. A refund is a payment event with negative amount; prior events are
// never deleted or mutated.
type PaymentEvent struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Positive payment, negative refund
	Method          PaymentMethod   `gorm:"type:varchar(20);not null"`
	Notes           string          `gorm:"type:varchar(1000)"`
	PaidAt          time.Time       `gorm:"not null"`
	CreatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentEvent) TableName() string {
	return "payment_events"
}

// PaidTotal folds the payment event log into the total paid amount
func PaidTotal(events []PaymentEvent) valueobject.Money {
	total := decimal.Zero
	for i := range events {
		total = total.Add(events[i].Amount)
	}
	return valueobject.NewMoneyUSD(total)
}

// applyPayment validates a payment or refund against the running balance and
// applies it to the order. Payments must not exceed the outstanding balance
// unless overpayment is explicitly allowed; refunds must not drive the
// balance above the order total.
func applyPayment(order *PurchaseOrder, amount decimal.Decimal, method PaymentMethod, notes string, paidAt time.Time, allowOverpayment bool) (*PaymentEvent, error) {
	if amount.IsZero() {
		return nil, NewValidationError("payment amount cannot be zero")
	}
	if !method.IsValid() {
		return nil, NewValidationError("invalid payment method: %s", method)
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	if amount.IsPositive() {
		balance := order.TotalAmount.Sub(order.PaidAmount)
		if amount.GreaterThan(balance) && !allowOverpayment {
			return nil, NewOverpaymentError(
				"payment of %s exceeds outstanding balance of %s",
				amount.StringFixed(2), balance.StringFixed(2),
			)
		}
	} else {
		// Refund: paid sum must never go negative.
		if amount.Abs().GreaterThan(order.PaidAmount) {
			return nil, NewOverpaymentError(
				"refund of %s exceeds paid amount of %s",
				amount.Abs().StringFixed(2), order.PaidAmount.StringFixed(2),
			)
		}
	}

	now := time.Now()
	event := &PaymentEvent{
		ID:              uuid.New(),
		PurchaseOrderID: order.ID,
		Amount:          amount,
		Method:          method,
		Notes:           notes,
		PaidAt:          paidAt,
		CreatedAt:       now,
	}

	order.PaidAmount = order.PaidAmount.Add(amount)

	return event, nil
}
