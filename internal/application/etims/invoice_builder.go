package etims

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/etims"
	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/dukapos/backend/internal/domain/shared/valueobject"
)

// Submitter triggers one submission attempt for an invoice. Satisfied by
// SubmissionServiceImpl; the builder only needs this slice of it.
type Submitter interface {
	Submit(ctx context.Context, invoiceID uuid.UUID) (*etims.Invoice, error)
}

// InvoiceBuilderServiceImpl derives compliant tax invoices from completed
// sales. Derivation happens exactly once per sale: a second build request
// for the same sale is a conflict, not a new document.
type InvoiceBuilderServiceImpl struct {
	invoiceRepo etims.InvoiceRepository
	configRepo  etims.IntegrationConfigRepository
	submitter   Submitter
	logger      *zap.Logger
}

// NewInvoiceBuilderService creates a new InvoiceBuilderServiceImpl
func NewInvoiceBuilderService(
	invoiceRepo etims.InvoiceRepository,
	configRepo etims.IntegrationConfigRepository,
	logger *zap.Logger,
) *InvoiceBuilderServiceImpl {
	return &InvoiceBuilderServiceImpl{
		invoiceRepo: invoiceRepo,
		configRepo:  configRepo,
		logger:      logger,
	}
}

// SetSubmitter enables auto-submission of newly built invoices when the
// active config's auto_submit flag is on.
func (s *InvoiceBuilderServiceImpl) SetSubmitter(submitter Submitter) {
	s.submitter = submitter
}

// CreateFromSale builds and persists the invoice for a completed sale.
// Each line's tax-inclusive total is split into pre-tax and VAT per its
// category; the invoice number is allocated from the yearly sequence in
// the same transaction that inserts the rows.
func (s *InvoiceBuilderServiceImpl) CreateFromSale(ctx context.Context, input CreateInvoiceInput) (*etims.Invoice, error) {
	config, err := s.configRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := s.invoiceRepo.FindBySaleID(ctx, input.SaleID)
	if err != nil && !errors.Is(err, etims.ErrInvoiceNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("ETIMS_DUPLICATE_SALE",
			"An invoice already exists for this sale: "+existing.InvoiceNumber)
	}

	items, err := buildItems(input.Lines)
	if err != nil {
		return nil, err
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now()
	}

	invoice, err := etims.NewInvoice(input.SaleID, input.BuyerName, input.BuyerPIN, input.PaymentMethod, saleDate, items)
	if err != nil {
		return nil, err
	}
	if note := strings.TrimSpace(input.Note); note != "" {
		invoice.SetNote(note)
	}

	if err := s.invoiceRepo.CreateWithItems(ctx, config.InvoicePrefix, invoice); err != nil {
		return nil, err
	}

	s.logger.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("sale_id", invoice.SaleID.String()),
		zap.String("total", invoice.TotalAmount.StringFixed(2)))

	if config.AutoSubmit && s.submitter != nil {
		// Auto-submission is best effort: the invoice exists either way,
		// and a failed attempt lands in the retry sweep's queue.
		submitted, submitErr := s.submitter.Submit(ctx, invoice.ID)
		if submitErr != nil {
			s.logger.Warn("auto-submit failed",
				zap.String("invoice_number", invoice.InvoiceNumber),
				zap.Error(submitErr))
			return invoice, nil
		}
		return submitted, nil
	}
	return invoice, nil
}

// GetInvoice loads an invoice with its items
func (s *InvoiceBuilderServiceImpl) GetInvoice(ctx context.Context, id uuid.UUID) (*etims.Invoice, error) {
	return s.invoiceRepo.FindByID(ctx, id)
}

// GetInvoiceBySale loads the invoice derived from a sale
func (s *InvoiceBuilderServiceImpl) GetInvoiceBySale(ctx context.Context, saleID uuid.UUID) (*etims.Invoice, error) {
	return s.invoiceRepo.FindBySaleID(ctx, saleID)
}

// ListInvoices lists invoices matching the filter
func (s *InvoiceBuilderServiceImpl) ListInvoices(ctx context.Context, filter etims.InvoiceFilter) ([]etims.Invoice, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.invoiceRepo.List(ctx, filter)
}

// buildItems converts sale lines into invoice items, deriving the VAT
// split from each line's tax-inclusive total.
func buildItems(lines []SaleLineInput) ([]etims.InvoiceItem, error) {
	items := make([]etims.InvoiceItem, 0, len(lines))
	for i, line := range lines {
		if !line.VATCategory.IsValid() {
			return nil, etims.ErrUnknownVATCategory
		}
		if !line.Quantity.IsPositive() {
			return nil, shared.NewDomainError("ETIMS_INVALID_INVOICE", "Line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("ETIMS_INVALID_INVOICE", "Line unit price cannot be negative")
		}

		lineTotal := valueobject.NewMoneyKES(line.UnitPrice.Mul(line.Quantity))
		preTax, vat, err := line.VATCategory.SplitInclusive(lineTotal)
		if err != nil {
			return nil, err
		}

		packagingUnit := line.PackagingUnit
		if packagingUnit == "" {
			packagingUnit = "CT"
		}
		packageCount := line.PackageCount
		if packageCount.IsZero() {
			packageCount = line.Quantity
		}

		items = append(items, etims.InvoiceItem{
			Sequence:      i + 1,
			ItemCode:      line.ItemCode,
			ItemClassCode: line.ItemClassCode,
			ItemName:      line.ItemName,
			Barcode:       line.Barcode,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			PackagingUnit: packagingUnit,
			PackageCount:  packageCount,
			PreTaxAmount:  preTax.Amount(),
			VATCategory:   line.VATCategory,
			VATRate:       line.VATCategory.RatePercent(),
			VATAmount:     vat.Amount(),
			TotalAmount:   lineTotal.RoundMinor().Amount(),
		})
	}
	return items, nil
}
