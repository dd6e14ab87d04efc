package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukapos/backend/internal/domain/etims"
)

// IntegrationConfigModel is the GORM model for the business tax identity
type IntegrationConfigModel struct {
	AggregateModel
	BusinessName  string     `gorm:"type:varchar(200);not null"`
	TaxPIN        string     `gorm:"type:varchar(20);not null;index"`
	BranchID      string     `gorm:"type:varchar(10);not null"`
	Environment   string     `gorm:"type:varchar(20);not null"`
	Provider      string     `gorm:"type:varchar(20);not null"`
	AppID         string     `gorm:"type:varchar(200)"`
	AppKey        string     `gorm:"type:varchar(200)"`
	AppSecret     string     `gorm:"type:varchar(200)"`
	InvoicePrefix string     `gorm:"type:varchar(10);not null;default:'INV'"`
	DeviceSerial  string     `gorm:"type:varchar(50)"`
	IsActive      bool       `gorm:"not null;default:false;index"`
	ActivatedAt   *time.Time

	AutoSubmit            bool `gorm:"not null;default:false"`
	RequireNetworkOnSale  bool `gorm:"not null;default:false"`
	PrintVerificationCode bool `gorm:"not null;default:true"`
}

// TableName specifies the table name
func (IntegrationConfigModel) TableName() string {
	return "etims_integration_configs"
}

// ToDomain converts the model to a domain IntegrationConfig
func (m *IntegrationConfigModel) ToDomain() *etims.IntegrationConfig {
	config := &etims.IntegrationConfig{
		BusinessName: m.BusinessName,
		TaxPIN:       m.TaxPIN,
		BranchID:     m.BranchID,
		Environment:  etims.Environment(m.Environment),
		Provider:     etims.Provider(m.Provider),
		Credentials: etims.Credentials{
			AppID:     m.AppID,
			AppKey:    m.AppKey,
			AppSecret: m.AppSecret,
		},
		InvoicePrefix:         m.InvoicePrefix,
		DeviceSerial:          m.DeviceSerial,
		IsActive:              m.IsActive,
		ActivatedAt:           m.ActivatedAt,
		AutoSubmit:            m.AutoSubmit,
		RequireNetworkOnSale:  m.RequireNetworkOnSale,
		PrintVerificationCode: m.PrintVerificationCode,
	}
	m.PopulateAggregateRoot(&config.BaseAggregateRoot)
	return config
}

// FromDomain populates the model from a domain IntegrationConfig
func (m *IntegrationConfigModel) FromDomain(config *etims.IntegrationConfig) {
	m.FromDomainAggregateRoot(config.BaseAggregateRoot)
	m.BusinessName = config.BusinessName
	m.TaxPIN = config.TaxPIN
	m.BranchID = config.BranchID
	m.Environment = config.Environment.String()
	m.Provider = config.Provider.String()
	m.AppID = config.Credentials.AppID
	m.AppKey = config.Credentials.AppKey
	m.AppSecret = config.Credentials.AppSecret
	m.InvoicePrefix = config.InvoicePrefix
	m.DeviceSerial = config.DeviceSerial
	m.IsActive = config.IsActive
	m.ActivatedAt = config.ActivatedAt
	m.AutoSubmit = config.AutoSubmit
	m.RequireNetworkOnSale = config.RequireNetworkOnSale
	m.PrintVerificationCode = config.PrintVerificationCode
}

// InvoiceModel is the GORM model for tax invoices
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	SaleID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	BuyerName     string    `gorm:"type:varchar(200)"`
	BuyerPIN      string    `gorm:"type:varchar(20)"`
	InvoiceDate   time.Time `gorm:"not null"`
	PaymentMethod string    `gorm:"type:varchar(20);not null"`
	Note          string    `gorm:"type:text"`

	TotalBeforeTax decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalVAT       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`

	Status        string     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RetryCount    int        `gorm:"not null;default:0"`
	LastError     string     `gorm:"type:text"`
	LastAttemptAt *time.Time
	ConfirmedAt   *time.Time

	ReceiptNumber    string `gorm:"type:varchar(50)"`
	VerificationURL  string `gorm:"type:varchar(500)"`
	ReceiptSignature string `gorm:"type:varchar(500)"`
	DeviceSerial     string `gorm:"type:varchar(50)"`

	Items []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName specifies the table name
func (InvoiceModel) TableName() string {
	return "etims_invoices"
}

// ToDomain converts the model to a domain Invoice
func (m *InvoiceModel) ToDomain() *etims.Invoice {
	invoice := &etims.Invoice{
		InvoiceNumber:    m.InvoiceNumber,
		SaleID:           m.SaleID,
		BuyerName:        m.BuyerName,
		BuyerPIN:         m.BuyerPIN,
		InvoiceDate:      m.InvoiceDate,
		PaymentMethod:    etims.PaymentMethod(m.PaymentMethod),
		Note:             m.Note,
		TotalBeforeTax:   m.TotalBeforeTax,
		TotalVAT:         m.TotalVAT,
		TotalAmount:      m.TotalAmount,
		Status:           etims.SubmissionStatus(m.Status),
		RetryCount:       m.RetryCount,
		LastError:        m.LastError,
		LastAttemptAt:    m.LastAttemptAt,
		ConfirmedAt:      m.ConfirmedAt,
		ReceiptNumber:    m.ReceiptNumber,
		VerificationURL:  m.VerificationURL,
		ReceiptSignature: m.ReceiptSignature,
		DeviceSerial:     m.DeviceSerial,
		Items:            make([]etims.InvoiceItem, len(m.Items)),
	}
	m.PopulateAggregateRoot(&invoice.BaseAggregateRoot)
	for i := range m.Items {
		invoice.Items[i] = *m.Items[i].ToDomain()
	}
	return invoice
}

// FromDomain populates the model from a domain Invoice
func (m *InvoiceModel) FromDomain(invoice *etims.Invoice) {
	m.FromDomainAggregateRoot(invoice.BaseAggregateRoot)
	m.InvoiceNumber = invoice.InvoiceNumber
	m.SaleID = invoice.SaleID
	m.BuyerName = invoice.BuyerName
	m.BuyerPIN = invoice.BuyerPIN
	m.InvoiceDate = invoice.InvoiceDate
	m.PaymentMethod = invoice.PaymentMethod.String()
	m.Note = invoice.Note
	m.TotalBeforeTax = invoice.TotalBeforeTax
	m.TotalVAT = invoice.TotalVAT
	m.TotalAmount = invoice.TotalAmount
	m.Status = invoice.Status.String()
	m.RetryCount = invoice.RetryCount
	m.LastError = invoice.LastError
	m.LastAttemptAt = invoice.LastAttemptAt
	m.ConfirmedAt = invoice.ConfirmedAt
	m.ReceiptNumber = invoice.ReceiptNumber
	m.VerificationURL = invoice.VerificationURL
	m.ReceiptSignature = invoice.ReceiptSignature
	m.DeviceSerial = invoice.DeviceSerial
	m.Items = make([]InvoiceItemModel, len(invoice.Items))
	for i := range invoice.Items {
		m.Items[i].FromDomain(&invoice.Items[i])
	}
}

// InvoiceItemModel is the GORM model for invoice line items
type InvoiceItemModel struct {
	BaseModel
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Sequence      int             `gorm:"not null"`
	ItemCode      string          `gorm:"type:varchar(50);not null"`
	ItemClassCode string          `gorm:"type:varchar(20)"`
	ItemName      string          `gorm:"type:varchar(200);not null"`
	Barcode       string          `gorm:"type:varchar(50)"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PackagingUnit string          `gorm:"type:varchar(10)"`
	PackageCount  decimal.Decimal `gorm:"type:decimal(18,4)"`
	PreTaxAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	VATCategory   string          `gorm:"type:varchar(1);not null"`
	VATRate       decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	VATAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName specifies the table name
func (InvoiceItemModel) TableName() string {
	return "etims_invoice_items"
}

// ToDomain converts the model to a domain InvoiceItem
func (m *InvoiceItemModel) ToDomain() *etims.InvoiceItem {
	return &etims.InvoiceItem{
		ID:            m.ID,
		InvoiceID:     m.InvoiceID,
		Sequence:      m.Sequence,
		ItemCode:      m.ItemCode,
		ItemClassCode: m.ItemClassCode,
		ItemName:      m.ItemName,
		Barcode:       m.Barcode,
		Quantity:      m.Quantity,
		UnitPrice:     m.UnitPrice,
		PackagingUnit: m.PackagingUnit,
		PackageCount:  m.PackageCount,
		PreTaxAmount:  m.PreTaxAmount,
		VATCategory:   etims.VATCategory(m.VATCategory),
		VATRate:       m.VATRate,
		VATAmount:     m.VATAmount,
		TotalAmount:   m.TotalAmount,
	}
}

// FromDomain populates the model from a domain InvoiceItem
func (m *InvoiceItemModel) FromDomain(item *etims.InvoiceItem) {
	m.ID = item.ID
	m.InvoiceID = item.InvoiceID
	m.Sequence = item.Sequence
	m.ItemCode = item.ItemCode
	m.ItemClassCode = item.ItemClassCode
	m.ItemName = item.ItemName
	m.Barcode = item.Barcode
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
	m.PackagingUnit = item.PackagingUnit
	m.PackageCount = item.PackageCount
	m.PreTaxAmount = item.PreTaxAmount
	m.VATCategory = item.VATCategory.String()
	m.VATRate = item.VATRate
	m.VATAmount = item.VATAmount
	m.TotalAmount = item.TotalAmount
}

// SyncLogModel is the GORM model for the append-only submission audit
// trail. Rows are inserted once and never updated or deleted, so there is
// no UpdatedAt column.
type SyncLogModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key"`
	Operation       string     `gorm:"type:varchar(30);not null;index"`
	InvoiceID       *uuid.UUID `gorm:"type:uuid;index"`
	RequestPayload  string     `gorm:"type:text;not null"`
	ResponsePayload string     `gorm:"type:text"`
	ResponseCode    int        `gorm:"not null;default:0"`
	Outcome         string     `gorm:"type:varchar(20);not null;index"`
	ErrorDetail     string     `gorm:"type:text"`
	CreatedAt       time.Time  `gorm:"not null;index"`
}

// TableName specifies the table name
func (SyncLogModel) TableName() string {
	return "etims_sync_logs"
}

// ToDomain converts the model to a domain SyncLogEntry
func (m *SyncLogModel) ToDomain() *etims.SyncLogEntry {
	return &etims.SyncLogEntry{
		ID:              m.ID,
		Operation:       etims.SyncOperation(m.Operation),
		InvoiceID:       m.InvoiceID,
		RequestPayload:  m.RequestPayload,
		ResponsePayload: m.ResponsePayload,
		ResponseCode:    m.ResponseCode,
		Outcome:         etims.SyncOutcome(m.Outcome),
		ErrorDetail:     m.ErrorDetail,
		CreatedAt:       m.CreatedAt,
	}
}

// FromDomain populates the model from a domain SyncLogEntry
func (m *SyncLogModel) FromDomain(entry *etims.SyncLogEntry) {
	m.ID = entry.ID
	m.Operation = string(entry.Operation)
	m.InvoiceID = entry.InvoiceID
	m.RequestPayload = entry.RequestPayload
	m.ResponsePayload = entry.ResponsePayload
	m.ResponseCode = entry.ResponseCode
	m.Outcome = string(entry.Outcome)
	m.ErrorDetail = entry.ErrorDetail
	m.CreatedAt = entry.CreatedAt
}

// InvoiceSequenceModel backs the per-prefix, per-year invoice numbering.
// The row is incremented under the insert transaction's lock so a number
// is never skipped or reused.
type InvoiceSequenceModel struct {
	Prefix    string    `gorm:"type:varchar(10);primaryKey"`
	Year      int       `gorm:"primaryKey"`
	NextValue int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name
func (InvoiceSequenceModel) TableName() string {
	return "etims_invoice_sequences"
}
