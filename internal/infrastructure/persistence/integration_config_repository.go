package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukapos/backend/internal/domain/etims"
	"github.com/dukapos/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationConfigRepository implements etims.IntegrationConfigRepository using GORM
type GormIntegrationConfigRepository struct {
	db *gorm.DB
}

// NewGormIntegrationConfigRepository creates a new GormIntegrationConfigRepository
func NewGormIntegrationConfigRepository(db *gorm.DB) *GormIntegrationConfigRepository {
	return &GormIntegrationConfigRepository{db: db}
}

// Save inserts or updates a configuration
func (r *GormIntegrationConfigRepository) Save(ctx context.Context, config *etims.IntegrationConfig) error {
	var model models.IntegrationConfigModel
	model.FromDomain(config)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindActive returns the active configuration, falling back to the most
// recent inactive one so setup can be inspected before initialization.
func (r *GormIntegrationConfigRepository) FindActive(ctx context.Context) (*etims.IntegrationConfig, error) {
	var model models.IntegrationConfigModel
	err := r.db.WithContext(ctx).
		Order("is_active DESC, created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, etims.ErrNoActiveConfig
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Activate marks the config active with the upstream device serial. The
// conditional update lets exactly one of two racing initializations win.
func (r *GormIntegrationConfigRepository) Activate(ctx context.Context, id uuid.UUID, deviceSerial string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.IntegrationConfigModel{}).
		Where("id = ? AND is_active = ?", id, false).
		Updates(map[string]any{
			"is_active":     true,
			"device_serial": deviceSerial,
			"activated_at":  now,
			"updated_at":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.IntegrationConfigModel{}).
			Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return etims.ErrNoActiveConfig
		}
		return etims.ErrAlreadyInitialized
	}
	return nil
}
