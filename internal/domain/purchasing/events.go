package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hardstock/backend/internal/domain/shared"
)

// AggregateTypePurchaseOrder is the aggregate type for purchase order events
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event types for the purchasing domain
const (
	EventTypePurchaseOrderCreated   = "purchasing.purchase_order.created"
	EventTypeGoodsReceived          = "purchasing.purchase_order.goods_received"
	EventTypePaymentRecorded        = "purchasing.purchase_order.payment_recorded"
	EventTypePurchaseOrderClosed    = "purchasing.purchase_order.closed"
	EventTypePurchaseOrderCancelled = "purchasing.purchase_order.cancelled"
)

// PurchaseOrderCreatedEvent is published when a new purchase order is created
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber  string          `json:"order_number"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	OrderDate    time.Time       `json:"order_date"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ItemCount    int             `json:"item_count"`
}

// NewPurchaseOrderCreatedEvent creates a new purchase order created event
func NewPurchaseOrderCreatedEvent(order *PurchaseOrder) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCreated, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		OrderDate:       order.OrderDate,
		TotalAmount:     order.TotalAmount,
		ItemCount:       len(order.Items),
	}
}

// EventType returns the event type
func (e *PurchaseOrderCreatedEvent) EventType() string {
	return EventTypePurchaseOrderCreated
}

// ReceivedLineInfo carries one received line for downstream consumers
type ReceivedLineInfo struct {
	ItemID           uuid.UUID       `json:"item_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
}

// GoodsReceivedEvent is published after a receiving event commits. It feeds
// the inventory stock increase; LogEventID is the committed receiving event
// ID and forms the idempotency key together with each line's item ID.
type GoodsReceivedEvent struct {
	shared.BaseDomainEvent
	OrderNumber     string             `json:"order_number"`
	LogEventID      uuid.UUID          `json:"log_event_id"`
	ReceivedDate    time.Time          `json:"received_date"`
	ReceivedBy      string             `json:"received_by"`
	Lines           []ReceivedLineInfo `json:"lines"`
	ReceivingStatus ReceivingStatus    `json:"receiving_status"`
}

// NewGoodsReceivedEvent creates a new goods received event
func NewGoodsReceivedEvent(order *PurchaseOrder, logEvent *ReceivingEvent) *GoodsReceivedEvent {
	lines := make([]ReceivedLineInfo, 0, len(logEvent.Lines))
	for _, line := range logEvent.Lines {
		productName := ""
		if item := order.FindItem(line.ItemID); item != nil {
			productName = item.ProductName
		}
		lines = append(lines, ReceivedLineInfo{
			ItemID:           line.ItemID,
			ProductID:        line.ProductID,
			ProductName:      productName,
			QuantityReceived: line.QuantityReceived,
		})
	}

	return &GoodsReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGoodsReceived, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		LogEventID:      logEvent.ID,
		ReceivedDate:    logEvent.ReceivedDate,
		ReceivedBy:      logEvent.ReceivedBy,
		Lines:           lines,
		ReceivingStatus: order.ReceivingStatus,
	}
}

// EventType returns the event type
func (e *GoodsReceivedEvent) EventType() string {
	return EventTypeGoodsReceived
}

// PaymentRecordedEvent is published after a payment or refund commits
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string          `json:"order_number"`
	LogEventID    uuid.UUID       `json:"log_event_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	Balance       decimal.Decimal `json:"balance"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewPaymentRecordedEvent creates a new payment recorded event
func NewPaymentRecordedEvent(order *PurchaseOrder, logEvent *PaymentEvent) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		LogEventID:      logEvent.ID,
		Amount:          logEvent.Amount,
		Method:          logEvent.Method,
		PaidAmount:      order.PaidAmount,
		Balance:         order.TotalAmount.Sub(order.PaidAmount),
		PaymentStatus:   order.PaymentStatus,
	}
}

// EventType returns the event type
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// PurchaseOrderClosedEvent is published when an order is explicitly closed
type PurchaseOrderClosedEvent struct {
	shared.BaseDomainEvent
	OrderNumber   string          `json:"order_number"`
	ClosedBy      string          `json:"closed_by"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Balance       decimal.Decimal `json:"balance"`
}

// NewPurchaseOrderClosedEvent creates a new purchase order closed event
func NewPurchaseOrderClosedEvent(order *PurchaseOrder) *PurchaseOrderClosedEvent {
	return &PurchaseOrderClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderClosed, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		ClosedBy:        order.ClosedBy,
		PaymentStatus:   order.PaymentStatus,
		Balance:         order.TotalAmount.Sub(order.PaidAmount),
	}
}

// EventType returns the event type
func (e *PurchaseOrderClosedEvent) EventType() string {
	return EventTypePurchaseOrderClosed
}

// PurchaseOrderCancelledEvent is published when an order is cancelled
type PurchaseOrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderNumber string `json:"order_number"`
	Reason      string `json:"reason"`
}

// NewPurchaseOrderCancelledEvent creates a new purchase order cancelled event
func NewPurchaseOrderCancelledEvent(order *PurchaseOrder) *PurchaseOrderCancelledEvent {
	return &PurchaseOrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCancelled, AggregateTypePurchaseOrder, order.ID),
		OrderNumber:     order.OrderNumber,
		Reason:          order.CancelReason,
	}
}

// EventType returns the event type
func (e *PurchaseOrderCancelledEvent) EventType() string {
	return EventTypePurchaseOrderCancelled
}
