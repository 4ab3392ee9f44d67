package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardstock/backend/internal/domain/purchasing"
)

// CreateItemRequest is one requested line item at order creation
type CreateItemRequest struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// CreatePurchaseOrderRequest carries the create command
type CreatePurchaseOrderRequest struct {
	SupplierID           uuid.UUID
	OrderDate            time.Time
	ExpectedDeliveryDate *time.Time
	PaymentTerms         purchasing.PaymentTerms
	Notes                string
	Items                []CreateItemRequest
}

// ReceiveLineRequest is one requested quantity increase
type ReceiveLineRequest struct {
	ItemID          uuid.UUID
	Quantity        decimal.Decimal
	ActualUnitPrice *decimal.Decimal
}

// ReceiveRequest carries the receive command. ExpectedVersion is the version
// the caller last observed; a mismatch rejects the command.
type ReceiveRequest struct {
	OrderID         uuid.UUID
	ExpectedVersion int
	ReceivedDate    time.Time
	ReceivedBy      string
	Notes           string
	Lines           []ReceiveLineRequest
}

// PaymentRequest carries the pay command. A negative amount records a refund.
type PaymentRequest struct {
	OrderID         uuid.UUID
	ExpectedVersion int
	Amount          decimal.Decimal
	Method          purchasing.PaymentMethod
	Notes           string
	PaidAt          time.Time
}

// CloseRequest carries the close command. AllowUnpaid permits closing with an
// outstanding balance, e.g. when the store extends credit.
type CloseRequest struct {
	OrderID         uuid.UUID
	ExpectedVersion int
	ClosedBy        string
	AllowUnpaid     bool
}

// ChangeItemPriceRequest carries an item price correction. Only allowed
// before the order has accumulated any event.
type ChangeItemPriceRequest struct {
	OrderID         uuid.UUID
	ItemID          uuid.UUID
	ExpectedVersion int
	UnitPrice       decimal.Decimal
}

// CancelRequest carries the cancel command
type CancelRequest struct {
	OrderID         uuid.UUID
	ExpectedVersion int
	Reason          string
}

// ListFilter carries list query options
type ListFilter struct {
	Page            int
	PageSize        int
	OrderBy         string
	OrderDir        string
	Search          string
	SupplierID      *uuid.UUID
	ReceivingStatus *purchasing.ReceivingStatus
	PaymentStatus   *purchasing.PaymentStatus
	IncludeCancelled bool
}

// OrderHistory bundles an order snapshot with its full event history
type OrderHistory struct {
	Order           *purchasing.PurchaseOrder
	ReceivingEvents []purchasing.ReceivingEvent
	PaymentEvents   []purchasing.PaymentEvent
}

// OutstandingSummary is the balance view of an order
type OutstandingSummary struct {
	OrderID     uuid.UUID
	OrderNumber string
	TotalAmount decimal.Decimal
	PaidAmount  decimal.Decimal
	Balance     decimal.Decimal
	DueDate     time.Time
	DueLabel    string
}
