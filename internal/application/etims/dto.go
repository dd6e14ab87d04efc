package etims

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/backend/internal/domain/etims"
)

// SaleLineInput is one line of a completed sale as the point-of-sale
// recorded it. Unit price is tax-inclusive; the builder derives the
// pre-tax and VAT amounts from it.
type SaleLineInput struct {
	ItemCode      string            `json:"item_code" binding:"required"`
	ItemClassCode string            `json:"item_class_code"`
	ItemName      string            `json:"item_name" binding:"required"`
	Barcode       string            `json:"barcode"`
	Quantity      decimal.Decimal   `json:"quantity" binding:"required"`
	UnitPrice     decimal.Decimal   `json:"unit_price" binding:"required"`
	PackagingUnit string            `json:"packaging_unit"`
	PackageCount  decimal.Decimal   `json:"package_count"`
	VATCategory   etims.VATCategory `json:"vat_category" binding:"required"`
}

// CreateInvoiceInput captures a completed sale to derive an invoice from
type CreateInvoiceInput struct {
	SaleID        uuid.UUID           `json:"sale_id" binding:"required"`
	BuyerName     string              `json:"buyer_name"`
	BuyerPIN      string              `json:"buyer_pin"`
	PaymentMethod etims.PaymentMethod `json:"payment_method" binding:"required"`
	SaleDate      time.Time           `json:"sale_date"`
	Note          string              `json:"note"`
	Lines         []SaleLineInput     `json:"lines" binding:"required,min=1"`
}

// SetupConfigInput creates or replaces the business tax identity
type SetupConfigInput struct {
	BusinessName  string            `json:"business_name" binding:"required"`
	TaxPIN        string            `json:"tax_pin" binding:"required"`
	BranchID      string            `json:"branch_id" binding:"required"`
	Environment   etims.Environment `json:"environment" binding:"required"`
	Provider      etims.Provider    `json:"provider" binding:"required"`
	InvoicePrefix string            `json:"invoice_prefix"`
	AppID         string            `json:"app_id"`
	AppKey        string            `json:"app_key"`
	AppSecret     string            `json:"app_secret"`
}

// UpdateSettingsInput updates the behavior flags on the active config
type UpdateSettingsInput struct {
	AutoSubmit            bool `json:"auto_submit"`
	RequireNetworkOnSale  bool `json:"require_network_on_sale"`
	PrintVerificationCode bool `json:"print_verification_code"`
}

// SweepReport summarizes one retry sweep over eligible invoices
type SweepReport struct {
	Attempted int `json:"attempted"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
