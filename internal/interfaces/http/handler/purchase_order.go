package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	purchasingapp "github.com/hardstock/backend/internal/application/purchasing"
	"github.com/hardstock/backend/internal/domain/purchasing"
)

// PurchaseOrderHandler handles purchase order API endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	orderService *purchasingapp.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(orderService *purchasingapp.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		orderService: orderService,
	}
}

// RegisterRoutes registers purchase order routes on the API group
func (h *PurchaseOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.GetByID)
		orders.GET("/number/:order_number", h.GetByOrderNumber)
		orders.GET("/:id/outstanding", h.Outstanding)
		orders.POST("/:id/receive", h.Receive)
		orders.POST("/:id/payments", h.Pay)
		orders.POST("/:id/close", h.Close)
		orders.POST("/:id/cancel", h.Cancel)
		orders.POST("/:id/rebuild", h.Rebuild)
		orders.PUT("/:id/items/:item_id/price", h.ChangeItemPrice)
	}
}

// CreatePurchaseOrderItemInput represents an item in the create order request
type CreatePurchaseOrderItemInput struct {
	ProductID string  `json:"product_id" binding:"required,uuid"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
}

// CreatePurchaseOrderRequest represents a request to create a new purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID           string                         `json:"supplier_id" binding:"required,uuid"`
	OrderDate            *time.Time                     `json:"order_date"`
	ExpectedDeliveryDate *time.Time                     `json:"expected_delivery_date"`
	PaymentTerms         string                         `json:"payment_terms" binding:"required,oneof=COD NET_15 NET_30 NET_60"`
	Notes                string                         `json:"notes" binding:"max=1000"`
	Items                []CreatePurchaseOrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// ReceiveLineInput represents one line in a receive request
type ReceiveLineInput struct {
	ItemID          string   `json:"item_id" binding:"required,uuid"`
	Quantity        float64  `json:"quantity" binding:"required,gt=0"`
	ActualUnitPrice *float64 `json:"actual_unit_price" binding:"omitempty,gt=0"`
}

// ReceiveRequest represents a request to record a goods receipt
type ReceiveRequest struct {
	ExpectedVersion int                `json:"expected_version" binding:"required,min=1"`
	ReceivedDate    *time.Time         `json:"received_date"`
	ReceivedBy      string             `json:"received_by" binding:"required,min=1,max=100"`
	Notes           string             `json:"notes" binding:"max=1000"`
	Lines           []ReceiveLineInput `json:"lines" binding:"required,min=1,dive"`
}

// PaymentRequest represents a request to record a payment or refund
type PaymentRequest struct {
	ExpectedVersion int        `json:"expected_version" binding:"required,min=1"`
	Amount          float64    `json:"amount" binding:"required"`
	Method          string     `json:"method" binding:"required,oneof=CASH CHECK CARD BANK_TRANSFER STORE_CREDIT"`
	Notes           string     `json:"notes" binding:"max=1000"`
	PaidAt          *time.Time `json:"paid_at"`
}

// CloseRequest represents a request to close an order
type CloseRequest struct {
	ExpectedVersion int    `json:"expected_version" binding:"required,min=1"`
	ClosedBy        string `json:"closed_by" binding:"required,min=1,max=100"`
	AllowUnpaid     bool   `json:"allow_unpaid"`
}

// CancelRequest represents a request to cancel an order
type CancelRequest struct {
	ExpectedVersion int    `json:"expected_version" binding:"required,min=1"`
	Reason          string `json:"reason" binding:"required,min=1,max=500"`
}

// ChangeItemPriceRequest represents a request to correct an item unit price
type ChangeItemPriceRequest struct {
	ExpectedVersion int     `json:"expected_version" binding:"required,min=1"`
	UnitPrice       float64 `json:"unit_price" binding:"required,gt=0"`
}

// ListQuery represents the list endpoint query parameters
type ListQuery struct {
	Page             int    `form:"page" binding:"omitempty,min=1"`
	PageSize         int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy          string `form:"order_by"`
	OrderDir         string `form:"order_dir" binding:"omitempty,oneof=asc desc ASC DESC"`
	Search           string `form:"search"`
	SupplierID       string `form:"supplier_id" binding:"omitempty,uuid"`
	ReceivingStatus  string `form:"receiving_status" binding:"omitempty,oneof=OPEN PARTIAL RECEIVED CLOSED"`
	PaymentStatus    string `form:"payment_status" binding:"omitempty,oneof=UNPAID PARTIALLY_PAID PAID"`
	IncludeCancelled bool   `form:"include_cancelled"`
}

// PurchaseOrderItemResponse represents an order item in API responses
type PurchaseOrderItemResponse struct {
	ID                string  `json:"id"`
	ProductID         string  `json:"product_id"`
	ProductName       string  `json:"product_name"`
	OrderedQuantity   float64 `json:"ordered_quantity"`
	ReceivedQuantity  float64 `json:"received_quantity"`
	RemainingQuantity float64 `json:"remaining_quantity"`
	UnitPrice         float64 `json:"unit_price"`
	LineTotal         float64 `json:"line_total"`
	FullyReceived     bool    `json:"fully_received"`
}

// PurchaseOrderResponse represents a purchase order in API responses
type PurchaseOrderResponse struct {
	ID                   string                      `json:"id"`
	OrderNumber          string                      `json:"order_number"`
	SupplierID           string                      `json:"supplier_id"`
	SupplierName         string                      `json:"supplier_name"`
	OrderDate            time.Time                   `json:"order_date"`
	ExpectedDeliveryDate *time.Time                  `json:"expected_delivery_date,omitempty"`
	PaymentTerms         string                      `json:"payment_terms"`
	DueLabel             string                      `json:"due_label"`
	Notes                string                      `json:"notes,omitempty"`
	Items                []PurchaseOrderItemResponse `json:"items"`
	TotalAmount          float64                     `json:"total_amount"`
	PaidAmount           float64                     `json:"paid_amount"`
	Balance              float64                     `json:"balance"`
	ReceivingStatus      string                      `json:"receiving_status"`
	PaymentStatus        string                      `json:"payment_status"`
	ReceiveProgress      float64                     `json:"receive_progress"`
	EventCount           int                         `json:"event_count"`
	ClosedAt             *time.Time                  `json:"closed_at,omitempty"`
	ClosedBy             string                      `json:"closed_by,omitempty"`
	Cancelled            bool                        `json:"cancelled"`
	CancelledAt          *time.Time                  `json:"cancelled_at,omitempty"`
	CancelReason         string                      `json:"cancel_reason,omitempty"`
	Version              int                         `json:"version"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// PurchaseOrderListItemResponse represents a purchase order in list responses
type PurchaseOrderListItemResponse struct {
	ID              string     `json:"id"`
	OrderNumber     string     `json:"order_number"`
	SupplierID      string     `json:"supplier_id"`
	SupplierName    string     `json:"supplier_name"`
	OrderDate       time.Time  `json:"order_date"`
	PaymentTerms    string     `json:"payment_terms"`
	DueLabel        string     `json:"due_label"`
	TotalAmount     float64    `json:"total_amount"`
	PaidAmount      float64    `json:"paid_amount"`
	ReceivingStatus string     `json:"receiving_status"`
	PaymentStatus   string     `json:"payment_status"`
	Cancelled       bool       `json:"cancelled"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ReceivingLineResponse represents one line of a receiving event
type ReceivingLineResponse struct {
	ID               string   `json:"id"`
	ItemID           string   `json:"item_id"`
	ProductID        string   `json:"product_id"`
	QuantityReceived float64  `json:"quantity_received"`
	ActualUnitPrice  *float64 `json:"actual_unit_price,omitempty"`
}

// ReceivingEventResponse represents a receiving event in API responses
type ReceivingEventResponse struct {
	ID           string                  `json:"id"`
	ReceivedDate time.Time               `json:"received_date"`
	ReceivedBy   string                  `json:"received_by"`
	Notes        string                  `json:"notes,omitempty"`
	Lines        []ReceivingLineResponse `json:"lines"`
	CreatedAt    time.Time               `json:"created_at"`
}

// PaymentEventResponse represents a payment event in API responses
type PaymentEventResponse struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Notes     string    `json:"notes,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderHistoryResponse bundles an order with its full event history
type OrderHistoryResponse struct {
	Order           PurchaseOrderResponse    `json:"order"`
	ReceivingEvents []ReceivingEventResponse `json:"receiving_events"`
	PaymentEvents   []PaymentEventResponse   `json:"payment_events"`
}

// OutstandingResponse represents the balance view of an order
type OutstandingResponse struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	TotalAmount float64   `json:"total_amount"`
	PaidAmount  float64   `json:"paid_amount"`
	Balance     float64   `json:"balance"`
	DueDate     time.Time `json:"due_date"`
	DueLabel    string    `json:"due_label"`
}

// Create handles POST /api/v1/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		h.BadRequest(c, "Invalid supplier ID format")
		return
	}

	appReq := purchasingapp.CreatePurchaseOrderRequest{
		SupplierID:           supplierID,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		PaymentTerms:         purchasing.PaymentTerms(req.PaymentTerms),
		Notes:                req.Notes,
	}
	if req.OrderDate != nil {
		appReq.OrderDate = *req.OrderDate
	}

	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			h.BadRequest(c, "Invalid product ID format")
			return
		}
		appReq.Items = append(appReq.Items, purchasingapp.CreateItemRequest{
			ProductID: productID,
			Quantity:  decimal.NewFromFloat(item.Quantity),
			UnitPrice: decimal.NewFromFloat(item.UnitPrice),
		})
	}

	order, err := h.orderService.Create(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toPurchaseOrderResponse(order))
}

// GetByID handles GET /api/v1/purchase-orders/:id
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	history, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderHistoryResponse(history))
}

// GetByOrderNumber handles GET /api/v1/purchase-orders/number/:order_number
func (h *PurchaseOrderHandler) GetByOrderNumber(c *gin.Context) {
	orderNumber := c.Param("order_number")
	if orderNumber == "" {
		h.BadRequest(c, "Order number is required")
		return
	}

	history, err := h.orderService.GetByOrderNumber(c.Request.Context(), orderNumber)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toOrderHistoryResponse(history))
}

// List handles GET /api/v1/purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.PageSize <= 0 {
		query.PageSize = 20
	}

	filter := purchasingapp.ListFilter{
		Page:             query.Page,
		PageSize:         query.PageSize,
		OrderBy:          query.OrderBy,
		OrderDir:         query.OrderDir,
		Search:           query.Search,
		IncludeCancelled: query.IncludeCancelled,
	}
	if query.SupplierID != "" {
		supplierID, err := uuid.Parse(query.SupplierID)
		if err != nil {
			h.BadRequest(c, "Invalid supplier ID format")
			return
		}
		filter.SupplierID = &supplierID
	}
	if query.ReceivingStatus != "" {
		status := purchasing.ReceivingStatus(query.ReceivingStatus)
		filter.ReceivingStatus = &status
	}
	if query.PaymentStatus != "" {
		status := purchasing.PaymentStatus(query.PaymentStatus)
		filter.PaymentStatus = &status
	}

	page, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPurchaseOrderListItemResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// Receive handles POST /api/v1/purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := purchasingapp.ReceiveRequest{
		OrderID:         orderID,
		ExpectedVersion: req.ExpectedVersion,
		ReceivedBy:      req.ReceivedBy,
		Notes:           req.Notes,
	}
	if req.ReceivedDate != nil {
		appReq.ReceivedDate = *req.ReceivedDate
	} else {
		appReq.ReceivedDate = time.Now()
	}

	for _, line := range req.Lines {
		itemID, err := uuid.Parse(line.ItemID)
		if err != nil {
			h.BadRequest(c, "Invalid item ID format")
			return
		}
		input := purchasingapp.ReceiveLineRequest{
			ItemID:   itemID,
			Quantity: decimal.NewFromFloat(line.Quantity),
		}
		if line.ActualUnitPrice != nil {
			price := decimal.NewFromFloat(*line.ActualUnitPrice)
			input.ActualUnitPrice = &price
		}
		appReq.Lines = append(appReq.Lines, input)
	}

	order, err := h.orderService.Receive(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// Pay handles POST /api/v1/purchase-orders/:id/payments
func (h *PurchaseOrderHandler) Pay(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := purchasingapp.PaymentRequest{
		OrderID:         orderID,
		ExpectedVersion: req.ExpectedVersion,
		Amount:          decimal.NewFromFloat(req.Amount),
		Method:          purchasing.PaymentMethod(req.Method),
		Notes:           req.Notes,
	}
	if req.PaidAt != nil {
		appReq.PaidAt = *req.PaidAt
	} else {
		appReq.PaidAt = time.Now()
	}

	order, err := h.orderService.Pay(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// Close handles POST /api/v1/purchase-orders/:id/close
func (h *PurchaseOrderHandler) Close(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.Close(c.Request.Context(), purchasingapp.CloseRequest{
		OrderID:         orderID,
		ExpectedVersion: req.ExpectedVersion,
		ClosedBy:        req.ClosedBy,
		AllowUnpaid:     req.AllowUnpaid,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// Cancel handles POST /api/v1/purchase-orders/:id/cancel
func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.Cancel(c.Request.Context(), purchasingapp.CancelRequest{
		OrderID:         orderID,
		ExpectedVersion: req.ExpectedVersion,
		Reason:          req.Reason,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// ChangeItemPrice handles PUT /api/v1/purchase-orders/:id/items/:item_id/price
func (h *PurchaseOrderHandler) ChangeItemPrice(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	var req ChangeItemPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := h.orderService.ChangeItemPrice(c.Request.Context(), purchasingapp.ChangeItemPriceRequest{
		OrderID:         orderID,
		ItemID:          itemID,
		ExpectedVersion: req.ExpectedVersion,
		UnitPrice:       decimal.NewFromFloat(req.UnitPrice),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// Outstanding handles GET /api/v1/purchase-orders/:id/outstanding
func (h *PurchaseOrderHandler) Outstanding(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	summary, err := h.orderService.Outstanding(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, OutstandingResponse{
		OrderID:     summary.OrderID.String(),
		OrderNumber: summary.OrderNumber,
		TotalAmount: summary.TotalAmount.InexactFloat64(),
		PaidAmount:  summary.PaidAmount.InexactFloat64(),
		Balance:     summary.Balance.InexactFloat64(),
		DueDate:     summary.DueDate,
		DueLabel:    summary.DueLabel,
	})
}

// Rebuild handles POST /api/v1/purchase-orders/:id/rebuild
func (h *PurchaseOrderHandler) Rebuild(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	order, err := h.orderService.Rebuild(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPurchaseOrderResponse(order))
}

// toPurchaseOrderResponse converts a domain order to a handler response
func toPurchaseOrderResponse(order *purchasing.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, len(order.Items))
	for i := range order.Items {
		item := &order.Items[i]
		items[i] = PurchaseOrderItemResponse{
			ID:                item.ID.String(),
			ProductID:         item.ProductID.String(),
			ProductName:       item.ProductName,
			OrderedQuantity:   item.OrderedQuantity.InexactFloat64(),
			ReceivedQuantity:  item.ReceivedQuantity.InexactFloat64(),
			RemainingQuantity: item.RemainingQuantity().InexactFloat64(),
			UnitPrice:         item.UnitPrice.InexactFloat64(),
			LineTotal:         item.LineTotal().Amount().InexactFloat64(),
			FullyReceived:     item.IsFullyReceived(),
		}
	}

	return PurchaseOrderResponse{
		ID:                   order.ID.String(),
		OrderNumber:          order.OrderNumber,
		SupplierID:           order.SupplierID.String(),
		SupplierName:         order.SupplierName,
		OrderDate:            order.OrderDate,
		ExpectedDeliveryDate: order.ExpectedDeliveryDate,
		PaymentTerms:         string(order.PaymentTerms),
		DueLabel:             order.PaymentTerms.DueLabel(order.OrderDate, time.Now()),
		Notes:                order.Notes,
		Items:                items,
		TotalAmount:          order.TotalAmount.InexactFloat64(),
		PaidAmount:           order.PaidAmount.InexactFloat64(),
		Balance:              order.Balance().Amount().InexactFloat64(),
		ReceivingStatus:      string(order.ReceivingStatus),
		PaymentStatus:        string(order.PaymentStatus),
		ReceiveProgress:      order.ReceiveProgress().InexactFloat64(),
		EventCount:           order.EventCount,
		ClosedAt:             order.ClosedAt,
		ClosedBy:             order.ClosedBy,
		Cancelled:            order.Cancelled,
		CancelledAt:          order.CancelledAt,
		CancelReason:         order.CancelReason,
		Version:              order.GetVersion(),
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

// toPurchaseOrderListItemResponses converts domain orders to list responses
func toPurchaseOrderListItemResponses(orders []purchasing.PurchaseOrder) []PurchaseOrderListItemResponse {
	now := time.Now()
	responses := make([]PurchaseOrderListItemResponse, len(orders))
	for i := range orders {
		order := &orders[i]
		responses[i] = PurchaseOrderListItemResponse{
			ID:              order.ID.String(),
			OrderNumber:     order.OrderNumber,
			SupplierID:      order.SupplierID.String(),
			SupplierName:    order.SupplierName,
			OrderDate:       order.OrderDate,
			PaymentTerms:    string(order.PaymentTerms),
			DueLabel:        order.PaymentTerms.DueLabel(order.OrderDate, now),
			TotalAmount:     order.TotalAmount.InexactFloat64(),
			PaidAmount:      order.PaidAmount.InexactFloat64(),
			ReceivingStatus: string(order.ReceivingStatus),
			PaymentStatus:   string(order.PaymentStatus),
			Cancelled:       order.Cancelled,
			ClosedAt:        order.ClosedAt,
			Version:         order.GetVersion(),
			CreatedAt:       order.CreatedAt,
			UpdatedAt:       order.UpdatedAt,
		}
	}
	return responses
}

// toOrderHistoryResponse converts an order history view to a handler response
func toOrderHistoryResponse(history *purchasingapp.OrderHistory) OrderHistoryResponse {
	receivingEvents := make([]ReceivingEventResponse, len(history.ReceivingEvents))
	for i := range history.ReceivingEvents {
		evt := &history.ReceivingEvents[i]
		lines := make([]ReceivingLineResponse, len(evt.Lines))
		for j := range evt.Lines {
			line := &evt.Lines[j]
			resp := ReceivingLineResponse{
				ID:               line.ID.String(),
				ItemID:           line.ItemID.String(),
				ProductID:        line.ProductID.String(),
				QuantityReceived: line.QuantityReceived.InexactFloat64(),
			}
			if line.ActualUnitPrice != nil {
				price := line.ActualUnitPrice.InexactFloat64()
				resp.ActualUnitPrice = &price
			}
			lines[j] = resp
		}
		receivingEvents[i] = ReceivingEventResponse{
			ID:           evt.ID.String(),
			ReceivedDate: evt.ReceivedDate,
			ReceivedBy:   evt.ReceivedBy,
			Notes:        evt.Notes,
			Lines:        lines,
			CreatedAt:    evt.CreatedAt,
		}
	}

	paymentEvents := make([]PaymentEventResponse, len(history.PaymentEvents))
	for i := range history.PaymentEvents {
		evt := &history.PaymentEvents[i]
		paymentEvents[i] = PaymentEventResponse{
			ID:        evt.ID.String(),
			Amount:    evt.Amount.InexactFloat64(),
			Method:    string(evt.Method),
			Notes:     evt.Notes,
			PaidAt:    evt.PaidAt,
			CreatedAt: evt.CreatedAt,
		}
	}

	return OrderHistoryResponse{
		Order:           toPurchaseOrderResponse(history.Order),
		ReceivingEvents: receivingEvents,
		PaymentEvents:   paymentEvents,
	}
}
