package etims

import (
	"context"

	"github.com/dukapos/backend/internal/domain/etims"
)

// AuditServiceImpl exposes the append-only submission audit trail for
// inspection. It is read-only: entries are written by the protocol client
// at attempt time and never through this service.
type AuditServiceImpl struct {
	syncLogRepo etims.SyncLogRepository
}

// NewAuditService creates a new AuditServiceImpl
func NewAuditService(syncLogRepo etims.SyncLogRepository) *AuditServiceImpl {
	return &AuditServiceImpl{syncLogRepo: syncLogRepo}
}

// ListEntries returns audit entries matching the filter, newest first
func (s *AuditServiceImpl) ListEntries(ctx context.Context, filter etims.SyncLogFilter) ([]etims.SyncLogEntry, int64, error) {
	return s.syncLogRepo.List(ctx, filter)
}
