package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dukapos/backend/internal/domain/etims"
	"github.com/dukapos/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements etims.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// CreateWithItems allocates the next invoice number and inserts the invoice
// with its items in one transaction. The sequence row is incremented under
// the same transaction, so two concurrent creations get distinct numbers
// and a rolled-back creation rolls its number back with it.
func (r *GormInvoiceRepository) CreateWithItems(ctx context.Context, prefix string, invoice *etims.Invoice) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		year := invoice.InvoiceDate.Year()

		var next int64
		err := tx.Raw(`INSERT INTO etims_invoice_sequences (prefix, year, next_value, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT (prefix, year)
			DO UPDATE SET next_value = etims_invoice_sequences.next_value + 1, updated_at = excluded.updated_at
			RETURNING next_value`,
			prefix, year, time.Now()).Scan(&next).Error
		if err != nil {
			return fmt.Errorf("%w: %v", etims.ErrNumberingUnavailable, err)
		}

		invoice.InvoiceNumber = fmt.Sprintf("%s-%d-%06d", prefix, year, next)

		var model models.InvoiceModel
		model.FromDomain(invoice)
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return nil
	})
}

// FindByID finds an invoice with its items
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*etims.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Preload("Items", itemOrder).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, etims.ErrInvoiceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySaleID finds the invoice derived from a sale
func (r *GormInvoiceRepository) FindBySaleID(ctx context.Context, saleID uuid.UUID) (*etims.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Preload("Items", itemOrder).First(&model, "sale_id = ?", saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, etims.ErrInvoiceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Claim atomically transitions pending|failed -> submitted with a
// conditional update. The WHERE clause is the whole claim discipline:
// whichever caller's update matches a row wins, every other caller
// affects zero rows and is classified by the invoice's current state.
func (r *GormInvoiceRepository) Claim(ctx context.Context, id uuid.UUID) (*etims.Invoice, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("id = ? AND status IN ? AND retry_count < ?",
			id,
			[]string{etims.SubmissionStatusPending.String(), etims.SubmissionStatusFailed.String()},
			etims.MaxRetryCount).
		Updates(map[string]any{
			"status":          etims.SubmissionStatusSubmitted.String(),
			"last_attempt_at": now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		switch {
		case current.Status.IsTerminal():
			return nil, etims.ErrInvoiceFinalized
		case current.Status == etims.SubmissionStatusSubmitted:
			return nil, etims.ErrSubmissionInProgress
		case current.RetryCount >= etims.MaxRetryCount:
			return nil, etims.ErrRetryCeilingReached
		default:
			// The winner has already released the claim back to a
			// claimable state between our update and this read.
			return nil, etims.ErrSubmissionInProgress
		}
	}

	return r.FindByID(ctx, id)
}

// Update persists a state transition applied by the state machine
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *etims.Invoice) error {
	var model models.InvoiceModel
	model.FromDomain(invoice)
	// items are immutable after creation, only the invoice row changes.
	// Select("*") forces zero-valued columns through, so an approval that
	// clears last_error actually clears it.
	res := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("id = ?", invoice.ID).
		Select("*").Omit("Items", "created_at").
		Updates(&model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return etims.ErrInvoiceNotFound
	}
	return nil
}

// FindEligibleForRetry selects invoices awaiting submission, oldest first.
// Terminal, in-flight and ceiling-reached invoices never match.
func (r *GormInvoiceRepository) FindEligibleForRetry(ctx context.Context, limit int) ([]etims.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("Items", itemOrder).
		Where("status IN ? AND retry_count < ?",
			[]string{etims.SubmissionStatusPending.String(), etims.SubmissionStatusFailed.String()},
			etims.MaxRetryCount).
		Order("created_at ASC").
		Limit(limit).
		Find(&invoiceModels).Error
	if err != nil {
		return nil, err
	}

	invoices := make([]etims.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, nil
}

// List returns invoices matching the filter with the total count
func (r *GormInvoiceRepository) List(ctx context.Context, filter etims.InvoiceFilter) ([]etims.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})

	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if filter.SaleID != nil {
		query = query.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.FromDate != nil {
		query = query.Where("invoice_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("invoice_date <= ?", *filter.ToDate)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number LIKE ? OR buyer_name LIKE ?", pattern, pattern)
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

	var invoiceModels []models.InvoiceModel
	err := query.
		Preload("Items", itemOrder).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&invoiceModels).Error
	if err != nil {
		return nil, 0, err
	}

	invoices := make([]etims.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices, total, nil
}

// itemOrder keeps preloaded items in wire sequence order
func itemOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}
