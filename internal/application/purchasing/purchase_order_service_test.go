package purchasing

import (
	"context"
	"errors"
	"fmt"
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

// ============================================================================
// In-memory fakes
// ============================================================================

type memoryOrderStore struct {
	orders      map[uuid.UUID]*purchasing.PurchaseOrder
	receiving   map[uuid.UUID][]purchasing.ReceivingEvent
	payments    map[uuid.UUID][]purchasing.PaymentEvent
	savedEvents []shared.DomainEvent
	seq         int
}

func newMemoryOrderStore() *memoryOrderStore {
	return &memoryOrderStore{
		orders:    make(map[uuid.UUID]*purchasing.PurchaseOrder),
		receiving: make(map[uuid.UUID][]purchasing.ReceivingEvent),
		payments:  make(map[uuid.UUID][]purchasing.PaymentEvent),
	}
}

func (s *memoryOrderStore) FindByID(_ context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return order, nil
}

func (s *memoryOrderStore) FindByOrderNumber(_ context.Context, orderNumber string) (*purchasing.PurchaseOrder, error) {
	for _, order := range s.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *memoryOrderStore) FindAll(_ context.Context, filter shared.Filter) ([]purchasing.PurchaseOrder, int64, error) {
	result := make([]purchasing.PurchaseOrder, 0, len(s.orders))
	for _, order := range s.orders {
		if cancelled, ok := filter.Filters["cancelled"].(bool); ok && order.Cancelled != cancelled {
			continue
		}
		result = append(result, *order)
	}
	return result, int64(len(result)), nil
}

func (s *memoryOrderStore) Save(_ context.Context, order *purchasing.PurchaseOrder) error {
	s.orders[order.ID] = order
	return nil
}

func (s *memoryOrderStore) SaveWithLockAndEvents(_ context.Context, order *purchasing.PurchaseOrder, events []shared.DomainEvent) error {
	if _, ok := s.orders[order.ID]; !ok {
		return shared.ErrNotFound
	}
	s.orders[order.ID] = order
	for _, e := range order.PendingReceivingEvents() {
		s.receiving[order.ID] = append(s.receiving[order.ID], *e)
	}
	for _, e := range order.PendingPaymentEvents() {
		s.payments[order.ID] = append(s.payments[order.ID], *e)
	}
	s.savedEvents = append(s.savedEvents, events...)
	return nil
}

func (s *memoryOrderStore) ExistsByOrderNumber(_ context.Context, orderNumber string) (bool, error) {
	for _, order := range s.orders {
		if order.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryOrderStore) GenerateOrderNumber(_ context.Context) (string, error) {
	s.seq++
	return fmt.Sprintf("PO-2026-%05d", s.seq), nil
}

func (s *memoryOrderStore) CountByReceivingStatus(_ context.Context) (map[purchasing.ReceivingStatus]int64, error) {
	counts := make(map[purchasing.ReceivingStatus]int64)
	for _, order := range s.orders {
		counts[order.ReceivingStatus]++
	}
	return counts, nil
}

func (s *memoryOrderStore) FindReceivingEvents(_ context.Context, orderID uuid.UUID) ([]purchasing.ReceivingEvent, error) {
	return s.receiving[orderID], nil
}

func (s *memoryOrderStore) FindPaymentEvents(_ context.Context, orderID uuid.UUID) ([]purchasing.PaymentEvent, error) {
	return s.payments[orderID], nil
}

type staticDirectory struct {
	suppliers map[uuid.UUID]string
	products  map[uuid.UUID]string
}

func (d *staticDirectory) GetSupplier(_ context.Context, id uuid.UUID) (*SupplierInfo, error) {
	name, ok := d.suppliers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &SupplierInfo{ID: id, Name: name}, nil
}

func (d *staticDirectory) GetProduct(_ context.Context, id uuid.UUID) (*ProductInfo, error) {
	name, ok := d.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &ProductInfo{ID: id, Name: name}, nil
}

// ============================================================================
// Test setup
// ============================================================================

type serviceFixture struct {
	service    *PurchaseOrderService
	store      *memoryOrderStore
	supplierID uuid.UUID
	hammerID   uuid.UUID
	tapeID     uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	supplierID := uuid.New()
	hammerID := uuid.New()
	tapeID := uuid.New()

	directory := &staticDirectory{
		suppliers: map[uuid.UUID]string{supplierID: "Acme Fasteners Ltd"},
		products: map[uuid.UUID]string{
			hammerID: "Claw Hammer",
			tapeID:   "Tape Measure 5m",
		},
	}

	store := newMemoryOrderStore()
	service := NewPurchaseOrderService(store, store, directory, directory, zap.NewNop())

	return &serviceFixture{
		service:    service,
		store:      store,
		supplierID: supplierID,
		hammerID:   hammerID,
		tapeID:     tapeID,
	}
}

func (f *serviceFixture) createOrder(t *testing.T) *purchasing.PurchaseOrder {
	t.Helper()
	order, err := f.service.Create(context.Background(), CreatePurchaseOrderRequest{
		SupplierID:   f.supplierID,
		OrderDate:    time.Now(),
		PaymentTerms: purchasing.PaymentTermsNet30,
		Items: []CreateItemRequest{
			{ProductID: f.hammerID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(10)},
			{ProductID: f.tapeID, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(10)},
		},
	})
	require.NoError(t, err)
	return order
}

func requireDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr), "expected a domain error, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

// ============================================================================
// Create
// ============================================================================

func TestService_Create(t *testing.T) {
	f := newServiceFixture(t)

	order := f.createOrder(t)

	assert.Equal(t, "PO-2026-00001", order.OrderNumber)
	assert.Equal(t, "Acme Fasteners Ltd", order.SupplierName)
	assert.Equal(t, purchasing.ReceivingStatusOpen, order.ReceivingStatus)
	assert.Equal(t, purchasing.PaymentStatusUnpaid, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, "Claw Hammer", order.Items[0].ProductName)

	second := f.createOrder(t)
	assert.Equal(t, "PO-2026-00002", second.OrderNumber)
}

func TestService_Create_Validation(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.Create(context.Background(), CreatePurchaseOrderRequest{
		SupplierID:   f.supplierID,
		PaymentTerms: purchasing.PaymentTermsNet30,
	})
	requireDomainErrorCode(t, err, purchasing.ErrCodeValidation)

	_, err = f.service.Create(context.Background(), CreatePurchaseOrderRequest{
		SupplierID:   uuid.New(),
		PaymentTerms: purchasing.PaymentTermsNet30,
		Items: []CreateItemRequest{
			{ProductID: f.hammerID, Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1)},
		},
	})
	requireDomainErrorCode(t, err, "NOT_FOUND")
}

// ============================================================================
// Receive
// ============================================================================

func TestService_Receive(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	updated, err := f.service.Receive(context.Background(), ReceiveRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion(),
		ReceivedDate:    time.Now(),
		ReceivedBy:      "jordan",
		Lines: []ReceiveLineRequest{
			{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(4)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, purchasing.ReceivingStatusPartial, updated.ReceivingStatus)
	assert.Equal(t, 2, updated.GetVersion())

	// Event log entry committed, outbox event saved, pending buffers drained.
	logged := f.store.receiving[order.ID]
	require.Len(t, logged, 1)
	assert.Equal(t, "jordan", logged[0].ReceivedBy)
	assert.Empty(t, updated.PendingReceivingEvents())

	require.Len(t, f.store.savedEvents, 1)
	assert.Equal(t, purchasing.EventTypeGoodsReceived, f.store.savedEvents[0].EventType())
}

func TestService_Receive_VersionConflict(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	_, err := f.service.Receive(context.Background(), ReceiveRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion() + 7,
		ReceivedDate:    time.Now(),
		ReceivedBy:      "jordan",
		Lines: []ReceiveLineRequest{
			{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(4)},
		},
	})
	requireDomainErrorCode(t, err, "CONCURRENCY_CONFLICT")

	stored := f.store.orders[order.ID]
	assert.True(t, stored.Items[0].ReceivedQuantity.IsZero())
	assert.Empty(t, f.store.receiving[order.ID])
}

func TestService_Receive_OverReceiptLeavesStateUnchanged(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	_, err := f.service.Receive(context.Background(), ReceiveRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion(),
		ReceivedDate:    time.Now(),
		ReceivedBy:      "jordan",
		Lines: []ReceiveLineRequest{
			{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(999)},
		},
	})
	requireDomainErrorCode(t, err, purchasing.ErrCodeOverReceipt)
	assert.Empty(t, f.store.receiving[order.ID])
	assert.Empty(t, f.store.savedEvents)
}

func TestService_ChangeItemPrice(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	updated, err := f.service.ChangeItemPrice(context.Background(), ChangeItemPriceRequest{
		OrderID:         order.ID,
		ItemID:          order.Items[0].ID,
		ExpectedVersion: order.GetVersion(),
		UnitPrice:       decimal.NewFromInt(12),
	})
	require.NoError(t, err)

	// 10 * 12 + 5 * 10
	assert.Equal(t, "170.00", updated.TotalAmount.StringFixed(2))
	assert.Equal(t, 2, updated.GetVersion())
}

func TestService_ChangeItemPrice_FrozenAfterFirstEvent(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	_, err := f.service.Receive(context.Background(), ReceiveRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion(),
		ReceivedDate:    time.Now(),
		ReceivedBy:      "jordan",
		Lines: []ReceiveLineRequest{
			{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(4)},
		},
	})
	require.NoError(t, err)

	_, err = f.service.ChangeItemPrice(context.Background(), ChangeItemPriceRequest{
		OrderID:         order.ID,
		ItemID:          order.Items[0].ID,
		ExpectedVersion: f.store.orders[order.ID].GetVersion(),
		UnitPrice:       decimal.NewFromInt(12),
	})
	requireDomainErrorCode(t, err, purchasing.ErrCodeInvalidTransition)
}

// ============================================================================
// Pay
// ============================================================================

func TestService_Pay(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	updated, err := f.service.Pay(context.Background(), PaymentRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion(),
		Amount:          decimal.NewFromInt(150),
		Method:          purchasing.PaymentMethodCheck,
		PaidAt:          time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, purchasing.PaymentStatusPaid, updated.PaymentStatus)
	require.Len(t, f.store.payments[order.ID], 1)
	require.Len(t, f.store.savedEvents, 1)
	assert.Equal(t, purchasing.EventTypePaymentRecorded, f.store.savedEvents[0].EventType())
}

func TestService_Pay_OverpaymentPolicy(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	req := PaymentRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion(),
		Amount:          decimal.NewFromInt(200),
		Method:          purchasing.PaymentMethodCheck,
		PaidAt:          time.Now(),
	}

	_, err := f.service.Pay(context.Background(), req)
	requireDomainErrorCode(t, err, purchasing.ErrCodeOverpayment)

	f.service.SetAllowOverpayment(true)
	updated, err := f.service.Pay(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, purchasing.PaymentStatusPaid, updated.PaymentStatus)
	assert.True(t, updated.Balance().IsNegative())
}

// ============================================================================
// Close / Cancel
// ============================================================================

func TestService_CloseAndCancel(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	// Not yet received: close rejected.
	_, err := f.service.Close(context.Background(), CloseRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion(),
		ClosedBy:        "manager",
	})
	requireDomainErrorCode(t, err, purchasing.ErrCodeInvalidTransition)

	_, err = f.service.Receive(context.Background(), ReceiveRequest{
		OrderID:         order.ID,
		ExpectedVersion: order.GetVersion(),
		ReceivedDate:    time.Now(),
		ReceivedBy:      "jordan",
		Lines: []ReceiveLineRequest{
			{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(10)},
			{ItemID: order.Items[1].ID, Quantity: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	closed, err := f.service.Close(context.Background(), CloseRequest{
		OrderID:         order.ID,
		ExpectedVersion: 2,
		ClosedBy:        "manager",
		AllowUnpaid:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, purchasing.ReceivingStatusClosed, closed.ReceivingStatus)

	// Cancelling a fresh order works; cancelling one with history does not.
	other := f.createOrder(t)
	cancelled, err := f.service.Cancel(context.Background(), CancelRequest{
		OrderID:         other.ID,
		ExpectedVersion: other.GetVersion(),
		Reason:          "duplicate entry",
	})
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)

	_, err = f.service.Cancel(context.Background(), CancelRequest{
		OrderID:         order.ID,
		ExpectedVersion: closed.GetVersion(),
		Reason:          "too late",
	})
	requireDomainErrorCode(t, err, purchasing.ErrCodeInvalidTransition)
}

// ============================================================================
// Queries and rebuild
// ============================================================================

func TestService_GetByID_WithHistory(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	_, err := f.service.Receive(context.Background(), ReceiveRequest{
		OrderID:         order.ID,
		ExpectedVersion: 1,
		ReceivedDate:    time.Now(),
		ReceivedBy:      "jordan",
		Lines:           []ReceiveLineRequest{{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(4)}},
	})
	require.NoError(t, err)

	_, err = f.service.Pay(context.Background(), PaymentRequest{
		OrderID:         order.ID,
		ExpectedVersion: 2,
		Amount:          decimal.NewFromInt(50),
		Method:          purchasing.PaymentMethodCash,
		PaidAt:          time.Now(),
	})
	require.NoError(t, err)

	history, err := f.service.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, history.ReceivingEvents, 1)
	assert.Len(t, history.PaymentEvents, 1)

	byNumber, err := f.service.GetByOrderNumber(context.Background(), order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.Order.ID)
}

func TestService_Outstanding(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	_, err := f.service.Pay(context.Background(), PaymentRequest{
		OrderID:         order.ID,
		ExpectedVersion: 1,
		Amount:          decimal.NewFromInt(60),
		Method:          purchasing.PaymentMethodCash,
		PaidAt:          time.Now(),
	})
	require.NoError(t, err)

	summary, err := f.service.Outstanding(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(150)))
	assert.True(t, summary.PaidAmount.Equal(decimal.NewFromInt(60)))
	assert.True(t, summary.Balance.Equal(decimal.NewFromInt(90)))
	assert.NotEmpty(t, summary.DueLabel)
}

func TestService_Rebuild(t *testing.T) {
	f := newServiceFixture(t)
	order := f.createOrder(t)

	_, err := f.service.Receive(context.Background(), ReceiveRequest{
		OrderID:         order.ID,
		ExpectedVersion: 1,
		ReceivedDate:    time.Now(),
		ReceivedBy:      "jordan",
		Lines: []ReceiveLineRequest{
			{ItemID: order.Items[0].ID, Quantity: decimal.NewFromInt(10)},
			{ItemID: order.Items[1].ID, Quantity: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	// Corrupt the snapshot behind the service's back.
	stored := f.store.orders[order.ID]
	stored.Items[0].ReceivedQuantity = decimal.Zero
	stored.ReceivingStatus = purchasing.ReceivingStatusOpen

	rebuilt, err := f.service.Rebuild(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, purchasing.ReceivingStatusReceived, rebuilt.ReceivingStatus)
	assert.True(t, rebuilt.Items[0].ReceivedQuantity.Equal(decimal.NewFromInt(10)))
}

func TestService_List_ExcludesCancelledByDefault(t *testing.T) {
	f := newServiceFixture(t)
	active := f.createOrder(t)
	doomed := f.createOrder(t)

	_, err := f.service.Cancel(context.Background(), CancelRequest{
		OrderID:         doomed.ID,
		ExpectedVersion: doomed.GetVersion(),
		Reason:          "entered twice",
	})
	require.NoError(t, err)

	page, err := f.service.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, active.ID, page.Items[0].ID)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)

	page, err = f.service.List(context.Background(), ListFilter{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
