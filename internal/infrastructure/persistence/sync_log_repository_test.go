package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukapos/backend/internal/domain/etims"
)

func appendTestLogEntry(t *testing.T, repo *GormSyncLogRepository, op etims.SyncOperation, invoiceID *uuid.UUID, outcome etims.SyncOutcome) *etims.SyncLogEntry {
	t.Helper()
	entry := etims.NewSyncLogEntry(op, invoiceID, `{"tin":"P051234567A"}`)
	switch outcome {
	case etims.SyncOutcomeSuccess:
		entry.RecordResponse(200, `{"resultCd":"000"}`, outcome, "")
	case etims.SyncOutcomeTimeout:
		entry.RecordResponse(0, "", outcome, "context deadline exceeded")
	default:
		entry.RecordResponse(500, "internal error", outcome, "unexpected status 500")
	}
	require.NoError(t, repo.Append(context.Background(), entry))
	return entry
}

func TestSyncLogRepository_AppendAndList(t *testing.T) {
	db := setupEtimsTestDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()

	invoiceA := uuid.New()
	invoiceB := uuid.New()

	appendTestLogEntry(t, repo, etims.SyncOperationInitializeDevice, nil, etims.SyncOutcomeSuccess)
	first := appendTestLogEntry(t, repo, etims.SyncOperationSubmitInvoice, &invoiceA, etims.SyncOutcomeTimeout)
	appendTestLogEntry(t, repo, etims.SyncOperationSubmitInvoice, &invoiceA, etims.SyncOutcomeSuccess)
	appendTestLogEntry(t, repo, etims.SyncOperationSubmitInvoice, &invoiceB, etims.SyncOutcomeFailed)

	t.Run("lists everything newest first", func(t *testing.T) {
		entries, total, err := repo.List(ctx, etims.SyncLogFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		require.Len(t, entries, 4)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i-1].CreatedAt.Before(entries[i].CreatedAt))
		}
	})

	t.Run("filters by invoice", func(t *testing.T) {
		entries, total, err := repo.List(ctx, etims.SyncLogFilter{InvoiceID: &invoiceA})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, entries, 2)
		for _, e := range entries {
			require.NotNil(t, e.InvoiceID)
			assert.Equal(t, invoiceA, *e.InvoiceID)
		}
	})

	t.Run("filters by operation and outcome", func(t *testing.T) {
		op := etims.SyncOperationSubmitInvoice
		outcome := etims.SyncOutcomeTimeout
		entries, total, err := repo.List(ctx, etims.SyncLogFilter{Operation: &op, Outcome: &outcome})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, entries, 1)
		assert.Equal(t, first.ID, entries[0].ID)
		assert.Equal(t, "context deadline exceeded", entries[0].ErrorDetail)
		assert.Equal(t, 0, entries[0].ResponseCode)
	})

	t.Run("paginates", func(t *testing.T) {
		entries, total, err := repo.List(ctx, etims.SyncLogFilter{Page: 2, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, entries, 1)
	})

	t.Run("round-trips the verbatim payloads", func(t *testing.T) {
		id := first.ID
		entries, _, err := repo.List(ctx, etims.SyncLogFilter{InvoiceID: &invoiceA})
		require.NoError(t, err)
		var got *etims.SyncLogEntry
		for i := range entries {
			if entries[i].ID == id {
				got = &entries[i]
			}
		}
		require.NotNil(t, got)
		assert.JSONEq(t, `{"tin":"P051234567A"}`, got.RequestPayload)
		assert.Equal(t, etims.SyncOutcomeTimeout, got.Outcome)
	})
}

// A retry writes a second row; nothing ever rewrites the first one.
func TestSyncLogRepository_RetryAppendsNewEntry(t *testing.T) {
	db := setupEtimsTestDB(t)
	repo := NewGormSyncLogRepository(db)
	ctx := context.Background()

	invoiceID := uuid.New()
	attempt1 := appendTestLogEntry(t, repo, etims.SyncOperationSubmitInvoice, &invoiceID, etims.SyncOutcomeTimeout)
	time.Sleep(5 * time.Millisecond)
	attempt2 := appendTestLogEntry(t, repo, etims.SyncOperationSubmitInvoice, &invoiceID, etims.SyncOutcomeSuccess)

	entries, total, err := repo.List(ctx, etims.SyncLogFilter{InvoiceID: &invoiceID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 2)
	assert.Equal(t, attempt2.ID, entries[0].ID)
	assert.Equal(t, attempt1.ID, entries[1].ID)
	assert.Equal(t, etims.SyncOutcomeTimeout, entries[1].Outcome)
}
