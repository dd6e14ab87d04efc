package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/dukapos/backend/internal/domain/etims"
	"github.com/dukapos/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements etims.SyncLogRepository using GORM.
// The audit trail is append-only: this type deliberately exposes no update
// or delete path.
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Append inserts one audit entry
func (r *GormSyncLogRepository) Append(ctx context.Context, entry *etims.SyncLogEntry) error {
	var model models.SyncLogModel
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

// List returns entries matching the filter, newest first, with total count
func (r *GormSyncLogRepository) List(ctx context.Context, filter etims.SyncLogFilter) ([]etims.SyncLogEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncLogModel{})

	if filter.Operation != nil {
		query = query.Where("operation = ?", string(*filter.Operation))
	}
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Outcome != nil {
		query = query.Where("outcome = ?", string(*filter.Outcome))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	var logModels []models.SyncLogModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logModels).Error
	if err != nil {
		return nil, 0, err
	}

	entries := make([]etims.SyncLogEntry, len(logModels))
	for i := range logModels {
		entries[i] = *logModels[i].ToDomain()
	}
	return entries, total, nil
}
