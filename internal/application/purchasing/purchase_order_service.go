package purchasing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hardstock/backend/internal/domain/purchasing"
	"github.com/hardstock/backend/internal/domain/shared"
)

// PurchaseOrderService handles purchase order commands and queries. It is
// the single entry point for mutations: every command loads the aggregate,
// checks the caller's expected version, applies the command and commits the
// snapshot together with new event log entries and outbox events.
type PurchaseOrderService struct {
	orderRepo        purchasing.PurchaseOrderRepository
	eventLogRepo     purchasing.EventLogRepository
	suppliers        SupplierDirectory
	catalog          ProductCatalog
	eventPublisher   shared.EventPublisher
	allowOverpayment bool
	logger           *zap.Logger
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	orderRepo purchasing.PurchaseOrderRepository,
	eventLogRepo purchasing.EventLogRepository,
	suppliers SupplierDirectory,
	catalog ProductCatalog,
	logger *zap.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		orderRepo:    orderRepo,
		eventLogRepo: eventLogRepo,
		suppliers:    suppliers,
		catalog:      catalog,
		logger:       logger,
	}
}

// SetEventPublisher sets the publisher used for events of newly created orders
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAllowOverpayment enables the overpayment policy for payments
func (s *PurchaseOrderService) SetAllowOverpayment(allow bool) {
	s.allowOverpayment = allow
}

// Create creates a new purchase order in the Open/Unpaid state
func (s *PurchaseOrderService) Create(ctx context.Context, req CreatePurchaseOrderRequest) (*purchasing.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, purchasing.NewValidationError("order must have at least one item")
	}

	supplier, err := s.suppliers.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}

	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	orderDate := req.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}

	order, err := purchasing.NewPurchaseOrder(orderNumber, supplier.ID, supplier.Name, orderDate, req.PaymentTerms, req.Notes)
	if err != nil {
		return nil, err
	}

	if req.ExpectedDeliveryDate != nil {
		if err := order.SetExpectedDeliveryDate(*req.ExpectedDeliveryDate); err != nil {
			return nil, err
		}
	}

	for _, item := range req.Items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if err := order.AddItem(product.ID, product.Name, item.Quantity, item.UnitPrice); err != nil {
			return nil, err
		}
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	s.logger.Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("supplier", order.SupplierName),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)))

	return order, nil
}

// Receive applies a batch receiving event against an order
func (s *PurchaseOrderService) Receive(ctx context.Context, req ReceiveRequest) (*purchasing.PurchaseOrder, error) {
	order, err := s.loadForUpdate(ctx, req.OrderID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	cmd := purchasing.ReceiveCommand{
		ReceivedDate: req.ReceivedDate,
		ReceivedBy:   req.ReceivedBy,
		Notes:        req.Notes,
	}
	for _, line := range req.Lines {
		cmd.Lines = append(cmd.Lines, purchasing.ReceiveLine{
			ItemID:          line.ItemID,
			Quantity:        line.Quantity,
			ActualUnitPrice: line.ActualUnitPrice,
		})
	}

	logEvent, err := order.Receive(cmd)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("goods received",
		zap.String("order_number", order.OrderNumber),
		zap.String("receiving_event_id", logEvent.ID.String()),
		zap.Int("lines", len(logEvent.Lines)),
		zap.String("receiving_status", string(order.ReceivingStatus)))

	return order, nil
}

// Pay records a payment or refund against an order
func (s *PurchaseOrderService) Pay(ctx context.Context, req PaymentRequest) (*purchasing.PurchaseOrder, error) {
	order, err := s.loadForUpdate(ctx, req.OrderID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	logEvent, err := order.RecordPayment(req.Amount, req.Method, req.Notes, req.PaidAt, s.allowOverpayment)
	if err != nil {
		return nil, err
	}

	if err := s.commit(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("order_number", order.OrderNumber),
		zap.String("payment_event_id", logEvent.ID.String()),
		zap.String("amount", logEvent.Amount.StringFixed(2)),
		zap.String("payment_status", string(order.PaymentStatus)))

	return order, nil
}

// Close moves an order to the terminal Closed state
func (s *PurchaseOrderService) Close(ctx context.Context, req CloseRequest) (*purchasing.PurchaseOrder, error) {
	order, err := s.loadForUpdate(ctx, req.OrderID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	if err := order.Close(req.ClosedBy, req.AllowUnpaid); err != nil {
		return nil, err
	}

	if err := s.commit(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("purchase order closed",
		zap.String("order_number", order.OrderNumber),
		zap.Bool("allow_unpaid", req.AllowUnpaid),
		zap.String("closed_by", req.ClosedBy))

	return order, nil
}

// ChangeItemPrice corrects a line item unit price before any event exists
func (s *PurchaseOrderService) ChangeItemPrice(ctx context.Context, req ChangeItemPriceRequest) (*purchasing.PurchaseOrder, error) {
	order, err := s.loadForUpdate(ctx, req.OrderID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	if err := order.ChangeItemPrice(req.ItemID, req.UnitPrice); err != nil {
		return nil, err
	}

	if err := s.commit(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("item price changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("item_id", req.ItemID.String()),
		zap.String("unit_price", req.UnitPrice.StringFixed(2)))

	return order, nil
}

// Cancel flags an order as cancelled
func (s *PurchaseOrderService) Cancel(ctx context.Context, req CancelRequest) (*purchasing.PurchaseOrder, error) {
	order, err := s.loadForUpdate(ctx, req.OrderID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	if err := order.Cancel(req.Reason); err != nil {
		return nil, err
	}

	if err := s.commit(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("purchase order cancelled",
		zap.String("order_number", order.OrderNumber),
		zap.String("reason", req.Reason))

	return order, nil
}

// GetByID retrieves an order snapshot with its full event history
func (s *PurchaseOrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderHistory, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.withHistory(ctx, order)
}

// GetByOrderNumber retrieves an order snapshot with its history by business key
func (s *PurchaseOrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*OrderHistory, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.withHistory(ctx, order)
}

// List retrieves a page of orders matching the filter
func (s *PurchaseOrderService) List(ctx context.Context, filter ListFilter) (shared.Paginated[purchasing.PurchaseOrder], error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	f.Search = filter.Search
	if filter.SupplierID != nil {
		f.Filters["supplier_id"] = *filter.SupplierID
	}
	if filter.ReceivingStatus != nil {
		f.Filters["receiving_status"] = *filter.ReceivingStatus
	}
	if filter.PaymentStatus != nil {
		f.Filters["payment_status"] = *filter.PaymentStatus
	}
	if !filter.IncludeCancelled {
		f.Filters["cancelled"] = false
	}

	orders, total, err := s.orderRepo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[purchasing.PurchaseOrder]{}, err
	}
	return shared.NewPaginated(orders, total, f.Page, f.PageSize), nil
}

// Outstanding returns the balance summary for an order
func (s *PurchaseOrderService) Outstanding(ctx context.Context, orderID uuid.UUID) (*OutstandingSummary, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &OutstandingSummary{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		PaidAmount:  order.PaidAmount,
		Balance:     order.TotalAmount.Sub(order.PaidAmount),
		DueDate:     order.PaymentTerms.DueDate(order.OrderDate),
		DueLabel:    order.PaymentTerms.DueLabel(order.OrderDate, now),
	}, nil
}

// Rebuild recomputes an order snapshot from its event log. This is the
// recovery path when the snapshot is suspected to diverge from the log.
func (s *PurchaseOrderService) Rebuild(ctx context.Context, orderID uuid.UUID) (*purchasing.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	receivingEvents, err := s.eventLogRepo.FindReceivingEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}
	paymentEvents, err := s.eventLogRepo.FindPaymentEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}

	order.Rebuild(receivingEvents, paymentEvents)
	order.IncrementVersion()

	if err := s.commit(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("purchase order snapshot rebuilt from event log",
		zap.String("order_number", order.OrderNumber),
		zap.Int("receiving_events", len(receivingEvents)),
		zap.Int("payment_events", len(paymentEvents)))

	return order, nil
}

// loadForUpdate loads an order and verifies the caller's expected version.
// Rejecting stale writes up front means no automatic retry can slip a
// command past re-validation against fresh quantities.
func (s *PurchaseOrderService) loadForUpdate(ctx context.Context, orderID uuid.UUID, expectedVersion int) (*purchasing.PurchaseOrder, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.GetVersion() != expectedVersion {
		return nil, shared.NewDomainError("CONCURRENCY_CONFLICT",
			"The order has been modified since it was last read; fetch the latest version and retry")
	}

	return order, nil
}

// commit persists a mutated order with optimistic locking, flushing pending
// event log entries and outbox events in one transaction
func (s *PurchaseOrderService) commit(ctx context.Context, order *purchasing.PurchaseOrder) error {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.SaveWithLockAndEvents(ctx, order, events); err != nil {
		return err
	}

	order.ClearPendingEvents()
	return nil
}

// publish delivers events for operations that do not go through the outbox.
// Failures are logged, never surfaced: order state is already committed.
func (s *PurchaseOrderService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err))
	}
}

// withHistory attaches the full event history to an order snapshot
func (s *PurchaseOrderService) withHistory(ctx context.Context, order *purchasing.PurchaseOrder) (*OrderHistory, error) {
	receivingEvents, err := s.eventLogRepo.FindReceivingEvents(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	paymentEvents, err := s.eventLogRepo.FindPaymentEvents(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	return &OrderHistory{
		Order:           order,
		ReceivingEvents: receivingEvents,
		PaymentEvents:   paymentEvents,
	}, nil
}
