package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardstock/backend/internal/domain/shared"
	"github.com/hardstock/backend/internal/domain/shared/valueobject"
)

// PurchaseOrderItem represents a line item in a purchase order.
// Ordered quantity and unit price are fixed once the order has accumulated
// any receiving or payment event.
type PurchaseOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName      string          `gorm:"type:varchar(200);not null"` // Snapshot at creation, not live-joined
	OrderedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// NewPurchaseOrderItem creates a new purchase order item
func NewPurchaseOrderItem(orderID, productID uuid.UUID, productName string, quantity, unitPrice decimal.Decimal) (*PurchaseOrderItem, error) {
	if productID == uuid.Nil {
		return nil, NewValidationError("product ID cannot be empty")
	}
	if productName == "" {
		return nil, NewValidationError("product name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("ordered quantity must be positive")
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, NewValidationError("unit price must be positive")
	}

	now := time.Now()
	return &PurchaseOrderItem{
		ID:               uuid.New(),
		OrderID:          orderID,
		ProductID:        productID,
		ProductName:      productName,
		OrderedQuantity:  quantity,
		ReceivedQuantity: decimal.Zero,
		UnitPrice:        unitPrice,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// LineTotal returns ordered quantity * unit price
func (i *PurchaseOrderItem) LineTotal() valueobject.Money {
	return valueobject.NewMoneyUSD(i.OrderedQuantity.Mul(i.UnitPrice))
}

// RemainingQuantity returns the quantity still awaiting delivery
func (i *PurchaseOrderItem) RemainingQuantity() decimal.Decimal {
	return i.OrderedQuantity.Sub(i.ReceivedQuantity)
}

// IsFullyReceived returns true if all ordered quantity has been received
func (i *PurchaseOrderItem) IsFullyReceived() bool {
	return i.ReceivedQuantity.GreaterThanOrEqual(i.OrderedQuantity)
}

// PurchaseOrder is the aggregate root for the purchase order lifecycle.
// It is the single writer per order: commands are validated against the
// current snapshot, applied, and committed together with the new event log
// entry in one transaction. Both status dimensions are always recomputed
// from progress, never written independently.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	OrderNumber          string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	SupplierID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	SupplierName         string     `gorm:"type:varchar(200);not null"` // Snapshot at creation
	OrderDate            time.Time  `gorm:"not null"`
	ExpectedDeliveryDate *time.Time `gorm:""`
	PaymentTerms         PaymentTerms
	Notes                string `gorm:"type:varchar(1000)"`

	Items []PurchaseOrderItem `gorm:"foreignKey:OrderID"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaidAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`

	ReceivingStatus ReceivingStatus `gorm:"type:varchar(20);not null;index"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;index"`

	// EventCount counts committed receiving and payment events. It guards the
	// immutability rules: order number, quantities and prices are frozen once
	// the first event exists.
	EventCount int `gorm:"not null;default:0"`

	ClosedAt     *time.Time
	ClosedBy     string `gorm:"type:varchar(100)"`
	Cancelled    bool   `gorm:"not null;default:false;index"`
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(500)"`

	// Uncommitted event log entries, flushed by the repository in the same
	// transaction as the snapshot update.
	pendingReceivingEvents []*ReceivingEvent
	pendingPaymentEvents   []*PaymentEvent
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a new purchase order in the Open/Unpaid state
func NewPurchaseOrder(orderNumber string, supplierID uuid.UUID, supplierName string, orderDate time.Time, terms PaymentTerms, notes string) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, NewValidationError("order number cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, NewValidationError("supplier ID cannot be empty")
	}
	if supplierName == "" {
		return nil, NewValidationError("supplier name cannot be empty")
	}
	if orderDate.IsZero() {
		return nil, NewValidationError("order date cannot be empty")
	}
	if !terms.IsValid() {
		return nil, NewValidationError("invalid payment terms: %s", terms)
	}

	order := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		SupplierID:        supplierID,
		SupplierName:      supplierName,
		OrderDate:         orderDate,
		PaymentTerms:      terms,
		Notes:             notes,
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		ReceivingStatus:   ReceivingStatusOpen,
		PaymentStatus:     PaymentStatusUnpaid,
	}

	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))

	return order, nil
}

// SetExpectedDeliveryDate sets the expected delivery date
func (o *PurchaseOrder) SetExpectedDeliveryDate(date time.Time) error {
	if date.Before(o.OrderDate) {
		return NewValidationError("expected delivery date cannot be before order date")
	}
	o.ExpectedDeliveryDate = &date
	o.UpdatedAt = time.Now()
	return nil
}

// AddItem adds a line item to the order
// Only allowed before any receiving or payment event exists
func (o *PurchaseOrder) AddItem(productID uuid.UUID, productName string, quantity, unitPrice decimal.Decimal) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}

	for idx := range o.Items {
		if o.Items[idx].ProductID == productID {
			return NewValidationError("product %s already on order", productName)
		}
	}

	item, err := NewPurchaseOrderItem(o.ID, productID, productName, quantity, unitPrice)
	if err != nil {
		return err
	}

	o.Items = append(o.Items, *item)
	o.recalculateTotal()
	o.UpdatedAt = time.Now()

	return nil
}

// ChangeItemPrice updates the unit price of a line item.
// Permitted only while the order has no events: once goods arrived or money
// moved, the agreed price is part of the historical record.
func (o *PurchaseOrder) ChangeItemPrice(itemID uuid.UUID, unitPrice decimal.Decimal) error {
	if err := o.ensureMutable(); err != nil {
		return err
	}
	if unitPrice.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("unit price must be positive")
	}

	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			o.Items[idx].UnitPrice = unitPrice
			o.Items[idx].UpdatedAt = time.Now()
			o.recalculateTotal()
			o.UpdatedAt = time.Now()
			o.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Order item not found")
}

// Receive applies a batch of line-level quantity increases as one atomic unit.
// Either every line passes validation and all deltas are applied, or the
// entire batch is rejected and no item is mutated.
func (o *PurchaseOrder) Receive(cmd ReceiveCommand) (*ReceivingEvent, error) {
	if err := o.ensureActive("receive goods"); err != nil {
		return nil, err
	}

	event, err := processReceiving(o, cmd)
	if err != nil {
		return nil, err
	}

	o.EventCount++
	o.ReceivingStatus = DeriveReceivingStatus(o.Items)
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	o.pendingReceivingEvents = append(o.pendingReceivingEvents, event)
	o.AddDomainEvent(NewGoodsReceivedEvent(o, event))

	return event, nil
}

// RecordPayment appends a payment (positive amount) or refund (negative
// amount) event against the running balance.
func (o *PurchaseOrder) RecordPayment(amount decimal.Decimal, method PaymentMethod, notes string, paidAt time.Time, allowOverpayment bool) (*PaymentEvent, error) {
	if err := o.ensureActive("record a payment"); err != nil {
		return nil, err
	}

	event, err := applyPayment(o, amount, method, notes, paidAt, allowOverpayment)
	if err != nil {
		return nil, err
	}

	o.EventCount++
	o.PaymentStatus = DerivePaymentStatus(o.paidMoney(), o.totalMoney())
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	o.pendingPaymentEvents = append(o.pendingPaymentEvents, event)
	o.AddDomainEvent(NewPaymentRecordedEvent(o, event))

	return event, nil
}

// Close moves the order to the terminal Closed state. Closing is always an
// explicit user action so trailing invoice adjustments remain possible, and
// it requires receiving to be complete. An unpaid balance blocks closing
// unless allowUnpaid is set (e.g. the store extends credit).
func (o *PurchaseOrder) Close(closedBy string, allowUnpaid bool) error {
	if o.Cancelled {
		return NewInvalidTransitionError("cannot close a cancelled order")
	}
	if o.ReceivingStatus == ReceivingStatusClosed {
		return NewInvalidTransitionError("order %s is already closed", o.OrderNumber)
	}
	if o.ReceivingStatus != ReceivingStatusReceived {
		return NewInvalidTransitionError("cannot close order %s before all goods are received (receiving status %s)", o.OrderNumber, o.ReceivingStatus)
	}
	if o.PaymentStatus != PaymentStatusPaid && !allowUnpaid {
		return NewInvalidTransitionError("cannot close order %s with outstanding balance %s", o.OrderNumber, o.Balance().StringFixed(2))
	}

	now := time.Now()
	o.ReceivingStatus = ReceivingStatusClosed
	o.ClosedAt = &now
	o.ClosedBy = closedBy
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderClosedEvent(o))

	return nil
}

// Cancel flags the order as cancelled. Orders are never deleted; an order
// created in error is cancelled via this flag. Only allowed while no goods
// have been received and no payment has been recorded.
func (o *PurchaseOrder) Cancel(reason string) error {
	if o.Cancelled {
		return NewInvalidTransitionError("order %s is already cancelled", o.OrderNumber)
	}
	if o.ReceivingStatus == ReceivingStatusClosed {
		return NewInvalidTransitionError("cannot cancel a closed order")
	}
	if o.EventCount > 0 {
		return NewInvalidTransitionError("cannot cancel order %s: receiving or payment events exist", o.OrderNumber)
	}

	now := time.Now()
	o.Cancelled = true
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderCancelledEvent(o))

	return nil
}

// Rebuild recomputes the snapshot from the event log. The log is the source
// of truth: if a snapshot is ever found inconsistent with it, the recovery is
// to fold the log again, never to patch the snapshot directly. The terminal
// Closed state is preserved since closing is a command, not a derived fact.
func (o *PurchaseOrder) Rebuild(receivingEvents []ReceivingEvent, paymentEvents []PaymentEvent) {
	received := ReceivedQuantities(receivingEvents)
	for idx := range o.Items {
		o.Items[idx].ReceivedQuantity = received[o.Items[idx].ID]
	}

	o.PaidAmount = PaidTotal(paymentEvents).Amount()
	o.EventCount = len(receivingEvents) + len(paymentEvents)
	o.recalculateTotal()

	if o.ReceivingStatus != ReceivingStatusClosed {
		o.ReceivingStatus = DeriveReceivingStatus(o.Items)
	}
	o.PaymentStatus = DerivePaymentStatus(o.paidMoney(), o.totalMoney())
	o.UpdatedAt = time.Now()
}

// Balance returns the outstanding amount: total - sum of payment events
func (o *PurchaseOrder) Balance() valueobject.Money {
	return valueobject.NewMoneyUSD(o.TotalAmount.Sub(o.PaidAmount))
}

// IsClosed returns true if the order reached the terminal Closed state
func (o *PurchaseOrder) IsClosed() bool {
	return o.ReceivingStatus == ReceivingStatusClosed
}

// HasEvents returns true if any receiving or payment event exists
func (o *PurchaseOrder) HasEvents() bool {
	return o.EventCount > 0
}

// FindItem returns the line item with the given ID, or nil
func (o *PurchaseOrder) FindItem(itemID uuid.UUID) *PurchaseOrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}

// ReceiveProgress returns the overall receiving progress as a percentage
func (o *PurchaseOrder) ReceiveProgress() decimal.Decimal {
	ordered := decimal.Zero
	received := decimal.Zero
	for idx := range o.Items {
		ordered = ordered.Add(o.Items[idx].OrderedQuantity)
		received = received.Add(o.Items[idx].ReceivedQuantity)
	}
	if ordered.IsZero() {
		return decimal.Zero
	}
	return received.Div(ordered).Mul(decimal.NewFromInt(100)).Round(2)
}

// PendingReceivingEvents returns uncommitted receiving event log entries
func (o *PurchaseOrder) PendingReceivingEvents() []*ReceivingEvent {
	return o.pendingReceivingEvents
}

// PendingPaymentEvents returns uncommitted payment event log entries
func (o *PurchaseOrder) PendingPaymentEvents() []*PaymentEvent {
	return o.pendingPaymentEvents
}

// ClearPendingEvents clears the uncommitted event log entries after a flush
func (o *PurchaseOrder) ClearPendingEvents() {
	o.pendingReceivingEvents = nil
	o.pendingPaymentEvents = nil
}

// Validate checks the order state for consistency
func (o *PurchaseOrder) Validate() error {
	if len(o.Items) == 0 {
		return NewValidationError("order must have at least one item")
	}
	if !o.ReceivingStatus.IsValid() {
		return NewValidationError("invalid receiving status: %s", o.ReceivingStatus)
	}
	if !o.PaymentStatus.IsValid() {
		return NewValidationError("invalid payment status: %s", o.PaymentStatus)
	}
	for idx := range o.Items {
		if o.Items[idx].ReceivedQuantity.IsNegative() {
			return NewValidationError("item %s has negative received quantity", o.Items[idx].ProductName)
		}
		if o.Items[idx].ReceivedQuantity.GreaterThan(o.Items[idx].OrderedQuantity) {
			return NewValidationError("item %s received quantity exceeds ordered quantity", o.Items[idx].ProductName)
		}
	}
	return nil
}

// ensureActive rejects mutating commands against closed or cancelled orders
func (o *PurchaseOrder) ensureActive(action string) error {
	if o.Cancelled {
		return NewInvalidTransitionError("cannot %s on cancelled order %s", action, o.OrderNumber)
	}
	if o.IsClosed() {
		return NewInvalidTransitionError("cannot %s on closed order %s", action, o.OrderNumber)
	}
	return nil
}

// ensureMutable rejects structural changes once the event log is non-empty
func (o *PurchaseOrder) ensureMutable() error {
	if err := o.ensureActive("modify items"); err != nil {
		return err
	}
	if o.HasEvents() {
		return NewInvalidTransitionError("order %s has receiving or payment history; items are immutable", o.OrderNumber)
	}
	return nil
}

func (o *PurchaseOrder) recalculateTotal() {
	total := decimal.Zero
	for idx := range o.Items {
		total = total.Add(o.Items[idx].OrderedQuantity.Mul(o.Items[idx].UnitPrice))
	}
	o.TotalAmount = total
}

func (o *PurchaseOrder) totalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.TotalAmount)
}

func (o *PurchaseOrder) paidMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.PaidAmount)
}

var _ shared.AggregateRoot = (*PurchaseOrder)(nil)
