package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/backend/internal/domain/etims"
)

// InvoiceItemResponse represents one invoice line in API responses
type InvoiceItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	Sequence      int             `json:"sequence"`
	ItemCode      string          `json:"item_code"`
	ItemClassCode string          `json:"item_class_code,omitempty"`
	ItemName      string          `json:"item_name"`
	Barcode       string          `json:"barcode,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	PackagingUnit string          `json:"packaging_unit"`
	PackageCount  decimal.Decimal `json:"package_count"`
	PreTaxAmount  decimal.Decimal `json:"pre_tax_amount"`
	VATCategory   string          `json:"vat_category"`
	VATRate       decimal.Decimal `json:"vat_rate"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber string    `json:"invoice_number"`
	SaleID        uuid.UUID `json:"sale_id"`
	BuyerName     string    `json:"buyer_name,omitempty"`
	BuyerPIN      string    `json:"buyer_pin,omitempty"`
	InvoiceDate   time.Time `json:"invoice_date"`
	PaymentMethod string    `json:"payment_method"`
	Note          string    `json:"note,omitempty"`

	TotalBeforeTax decimal.Decimal `json:"total_before_tax"`
	TotalVAT       decimal.Decimal `json:"total_vat"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	LastError     string     `json:"last_error,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`

	ReceiptNumber    string `json:"receipt_number,omitempty"`
	VerificationURL  string `json:"verification_url,omitempty"`
	ReceiptSignature string `json:"receipt_signature,omitempty"`
	DeviceSerial     string `json:"device_serial,omitempty"`

	Items []InvoiceItemResponse `json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToInvoiceResponse converts a domain invoice to its API representation
func ToInvoiceResponse(inv *etims.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:               inv.ID,
		InvoiceNumber:    inv.InvoiceNumber,
		SaleID:           inv.SaleID,
		BuyerName:        inv.BuyerName,
		BuyerPIN:         inv.BuyerPIN,
		InvoiceDate:      inv.InvoiceDate,
		PaymentMethod:    inv.PaymentMethod.String(),
		Note:             inv.Note,
		TotalBeforeTax:   inv.TotalBeforeTax,
		TotalVAT:         inv.TotalVAT,
		TotalAmount:      inv.TotalAmount,
		Status:           inv.Status.String(),
		RetryCount:       inv.RetryCount,
		LastError:        inv.LastError,
		LastAttemptAt:    inv.LastAttemptAt,
		ConfirmedAt:      inv.ConfirmedAt,
		ReceiptNumber:    inv.ReceiptNumber,
		VerificationURL:  inv.VerificationURL,
		ReceiptSignature: inv.ReceiptSignature,
		DeviceSerial:     inv.DeviceSerial,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:            item.ID,
			Sequence:      item.Sequence,
			ItemCode:      item.ItemCode,
			ItemClassCode: item.ItemClassCode,
			ItemName:      item.ItemName,
			Barcode:       item.Barcode,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			PackagingUnit: item.PackagingUnit,
			PackageCount:  item.PackageCount,
			PreTaxAmount:  item.PreTaxAmount,
			VATCategory:   item.VATCategory.String(),
			VATRate:       item.VATRate,
			VATAmount:     item.VATAmount,
			TotalAmount:   item.TotalAmount,
		})
	}
	return resp
}

// ToInvoiceListResponse converts a list of domain invoices. Line items are
// omitted from list views.
func ToInvoiceListResponse(invoices []etims.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, len(invoices))
	for i := range invoices {
		inv := invoices[i]
		inv.Items = nil
		out[i] = ToInvoiceResponse(&inv)
	}
	return out
}

// ConfigResponse represents the integration configuration in API
// responses. Gateway credentials are write-only and never echoed back.
type ConfigResponse struct {
	ID             uuid.UUID  `json:"id"`
	BusinessName   string     `json:"business_name"`
	TaxPIN         string     `json:"tax_pin"`
	BranchID       string     `json:"branch_id"`
	Environment    string     `json:"environment"`
	Provider       string     `json:"provider"`
	HasCredentials bool       `json:"has_credentials"`
	InvoicePrefix  string     `json:"invoice_prefix"`
	DeviceSerial   string     `json:"device_serial,omitempty"`
	IsActive       bool       `json:"is_active"`
	ActivatedAt    *time.Time `json:"activated_at,omitempty"`

	AutoSubmit            bool `json:"auto_submit"`
	RequireNetworkOnSale  bool `json:"require_network_on_sale"`
	PrintVerificationCode bool `json:"print_verification_code"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToConfigResponse converts a domain config to its API representation
func ToConfigResponse(config *etims.IntegrationConfig) ConfigResponse {
	return ConfigResponse{
		ID:                    config.ID,
		BusinessName:          config.BusinessName,
		TaxPIN:                config.TaxPIN,
		BranchID:              config.BranchID,
		Environment:           config.Environment.String(),
		Provider:              config.Provider.String(),
		HasCredentials:        !config.Credentials.IsZero(),
		InvoicePrefix:         config.InvoicePrefix,
		DeviceSerial:          config.DeviceSerial,
		IsActive:              config.IsActive,
		ActivatedAt:           config.ActivatedAt,
		AutoSubmit:            config.AutoSubmit,
		RequireNetworkOnSale:  config.RequireNetworkOnSale,
		PrintVerificationCode: config.PrintVerificationCode,
		CreatedAt:             config.CreatedAt,
		UpdatedAt:             config.UpdatedAt,
	}
}

// SyncLogResponse represents one audit entry in API responses
type SyncLogResponse struct {
	ID              uuid.UUID  `json:"id"`
	Operation       string     `json:"operation"`
	InvoiceID       *uuid.UUID `json:"invoice_id,omitempty"`
	RequestPayload  string     `json:"request_payload"`
	ResponsePayload string     `json:"response_payload,omitempty"`
	ResponseCode    int        `json:"response_code"`
	Outcome         string     `json:"outcome"`
	ErrorDetail     string     `json:"error_detail,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ToSyncLogResponses converts domain audit entries
func ToSyncLogResponses(entries []etims.SyncLogEntry) []SyncLogResponse {
	out := make([]SyncLogResponse, len(entries))
	for i, e := range entries {
		out[i] = SyncLogResponse{
			ID:              e.ID,
			Operation:       string(e.Operation),
			InvoiceID:       e.InvoiceID,
			RequestPayload:  e.RequestPayload,
			ResponsePayload: e.ResponsePayload,
			ResponseCode:    e.ResponseCode,
			Outcome:         string(e.Outcome),
			ErrorDetail:     e.ErrorDetail,
			CreatedAt:       e.CreatedAt,
		}
	}
	return out
}
