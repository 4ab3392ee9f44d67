package event

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hardstock/backend/internal/domain/shared"
)

func openOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&shared.OutboxEntry{}))
	return db
}

func newOutboxEntry(t *testing.T) *shared.OutboxEntry {
	t.Helper()
	evt := newTestEvent("test.created")
	return shared.NewOutboxEntry(evt, []byte(`{"order_number":"PO-2026-00001"}`))
}

func TestGormOutboxRepository_SaveAndFindPending(t *testing.T) {
	db := openOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, entry))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, entry.EventID, pending[0].EventID)
	assert.Equal(t, shared.OutboxStatusPending, pending[0].Status)
}

func TestGormOutboxRepository_UpdateMarkSent(t *testing.T) {
	db := openOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkSent()
	require.NoError(t, repo.Update(ctx, entry))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "sent entries are no longer pending")

	found, err := repo.FindByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.OutboxStatusSent, found.Status)
	assert.NotNil(t, found.ProcessedAt)
}

func TestGormOutboxRepository_FindRetryable(t *testing.T) {
	db := openOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, entry))

	entry.MarkFailed("downstream unavailable")
	require.NoError(t, repo.Update(ctx, entry))

	// First retry backoff is one second; not yet due
	retryable, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, retryable)

	retryable, err = repo.FindRetryable(ctx, time.Now().Add(2*time.Second), 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)
	assert.Equal(t, 1, retryable[0].RetryCount)
}

func TestGormOutboxRepository_DeadAfterMaxRetries(t *testing.T) {
	db := openOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	entry := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, entry))

	for i := 0; i < shared.DefaultMaxRetries; i++ {
		entry.MarkFailed("still failing")
	}
	require.NoError(t, repo.Update(ctx, entry))

	dead, total, err := repo.FindDead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dead, 1)
	assert.True(t, dead[0].IsDead())
}

func TestGormOutboxRepository_DeleteOlderThan(t *testing.T) {
	db := openOutboxTestDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	old := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, old))
	old.MarkSent()
	past := time.Now().Add(-30 * 24 * time.Hour)
	old.ProcessedAt = &past
	require.NoError(t, repo.Update(ctx, old))

	fresh := newOutboxEntry(t)
	require.NoError(t, repo.Save(ctx, fresh))
	fresh.MarkSent()
	require.NoError(t, repo.Update(ctx, fresh))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusSent])
}
