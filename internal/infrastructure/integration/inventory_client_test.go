package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPInventoryClient_ApplyStockIncrease(t *testing.T) {
	var gotKey string
	var gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewHTTPInventoryClient(server.URL, 2*time.Second, zap.NewNop())
	err := client.ApplyStockIncrease(context.Background(), uuid.New(), decimal.NewFromInt(4), "evt-1:item-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-1:item-1", gotKey)
	assert.Equal(t, "/api/v1/stock/increases", gotPath)
}

func TestHTTPInventoryClient_ConflictIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := NewHTTPInventoryClient(server.URL, 2*time.Second, zap.NewNop())
	err := client.ApplyStockIncrease(context.Background(), uuid.New(), decimal.NewFromInt(1), "evt-1:item-1")
	assert.NoError(t, err, "already-applied key is not an error")
}

func TestHTTPInventoryClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stock ledger locked", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPInventoryClient(server.URL, 2*time.Second, zap.NewNop())
	err := client.ApplyStockIncrease(context.Background(), uuid.New(), decimal.NewFromInt(1), "evt-1:item-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNoopInventorySync(t *testing.T) {
	sync := NewNoopInventorySync(zap.NewNop())
	err := sync.ApplyStockIncrease(context.Background(), uuid.New(), decimal.NewFromInt(1), "k")
	assert.NoError(t, err)
}
