package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	purchasingapp "github.com/hardstock/backend/internal/application/purchasing"
)

// HTTPInventoryClient pushes stock increases to the inventory service over
// HTTP. The idempotency key travels in a header so the inventory side can
// deduplicate redeliveries.
type HTTPInventoryClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPInventoryClient creates a client for the inventory service
func NewHTTPInventoryClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPInventoryClient {
	return &HTTPInventoryClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type stockIncreaseRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// ApplyStockIncrease posts a stock increase for the product
func (c *HTTPInventoryClient) ApplyStockIncrease(ctx context.Context, productID uuid.UUID, quantity decimal.Decimal, idempotencyKey string) error {
	body, err := json.Marshal(stockIncreaseRequest{ProductID: productID, Quantity: quantity})
	if err != nil {
		return fmt.Errorf("failed to encode stock increase: %w", err)
	}

	url := c.baseURL + "/api/v1/stock/increases"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build stock increase request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("inventory service unreachable: %w", err)
	}
	defer resp.Body.Close()

	// 409 means the inventory side already applied this key
	if resp.StatusCode == http.StatusConflict {
		c.logger.Debug("stock increase already applied",
			zap.String("idempotency_key", idempotencyKey),
			zap.String("product_id", productID.String()),
		)
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inventory service returned %d: %s", resp.StatusCode, string(detail))
	}

	return nil
}

var _ purchasingapp.InventorySync = (*HTTPInventoryClient)(nil)
