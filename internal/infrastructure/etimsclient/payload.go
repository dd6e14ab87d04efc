package etimsclient

import (
	"fmt"
	"time"

	"github.com/dukapos/backend/internal/domain/etims"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Fixed-width numeric date encodings required by the upstream. No locale
// variation is permitted.
const (
	dateFormat     = "20060102"
	dateTimeFormat = "20060102150405"
)

// Fixed enumeration codes on the sales payload
const (
	salesTypeNormal     = "N"
	receiptTypeSale     = "S"
	salesStatusApproved = "02"
	purchaserAcceptNo   = "N"
)

// paymentTypeCodes maps the domain payment method to the upstream's fixed
// payment type enumeration
var paymentTypeCodes = map[etims.PaymentMethod]string{
	etims.PaymentMethodCash:         "01",
	etims.PaymentMethodCredit:       "02",
	etims.PaymentMethodBankTransfer: "04",
	etims.PaymentMethodCard:         "05",
	etims.PaymentMethodMobileMoney:  "06",
}

// SalesItemPayload is one line entry of the sales payload, reproduced
// field-for-field from the upstream contract.
type SalesItemPayload struct {
	ItemSeq        int             `json:"itemSeq" validate:"required,min=1"`
	ItemCode       string          `json:"itemCd" validate:"required"`
	ItemClassCode  string          `json:"itemClsCd"`
	ItemName       string          `json:"itemNm" validate:"required"`
	Barcode        *string         `json:"bcd"`
	PackagingUnit  string          `json:"pkgUnitCd"`
	PackageCount   decimal.Decimal `json:"pkg"`
	QuantityUnit   string          `json:"qtyUnitCd"`
	Quantity       decimal.Decimal `json:"qty" validate:"required"`
	UnitPrice      decimal.Decimal `json:"prc"`
	SupplyAmount   decimal.Decimal `json:"splyAmt"`
	DiscountRate   decimal.Decimal `json:"dcRt"`
	DiscountAmount decimal.Decimal `json:"dcAmt"`
	TaxableAmount  decimal.Decimal `json:"taxblAmt"`
	TaxTypeCode    string          `json:"taxTyCd" validate:"required,oneof=A B C D"`
	TaxAmount      decimal.Decimal `json:"taxAmt"`
	TotalAmount    decimal.Decimal `json:"totAmt"`
}

// SalesPayload is the full invoice submission body. The shape is a fixed
// wire contract and must be reproduced exactly; a missing field is a
// construction-time error, not a silently-absent JSON key.
type SalesPayload struct {
	TaxPIN        string  `json:"tin" validate:"required"`
	BranchID      string  `json:"bhfId" validate:"required"`
	InvoiceNumber string  `json:"invcNo" validate:"required"`
	BuyerPIN      *string `json:"custTin"`
	BuyerName     string  `json:"custNm"`
	SalesType     string  `json:"salesTyCd" validate:"required"`
	ReceiptType   string  `json:"rcptTyCd" validate:"required"`
	PaymentType   string  `json:"pmtTyCd" validate:"required"`
	SalesStatus   string  `json:"salesSttsCd" validate:"required"`
	ConfirmedAt   string  `json:"cfmDt" validate:"required,len=14,numeric"`
	SaleDate      string  `json:"salesDt" validate:"required,len=8,numeric"`
	ItemCount     int     `json:"totItemCnt" validate:"required,min=1"`

	// Four parallel taxable-amount/tax-rate/tax-amount triples, one per
	// VAT category A/B/C/D
	TaxableAmountA decimal.Decimal `json:"taxblAmtA"`
	TaxableAmountB decimal.Decimal `json:"taxblAmtB"`
	TaxableAmountC decimal.Decimal `json:"taxblAmtC"`
	TaxableAmountD decimal.Decimal `json:"taxblAmtD"`
	TaxRateA       decimal.Decimal `json:"taxRtA"`
	TaxRateB       decimal.Decimal `json:"taxRtB"`
	TaxRateC       decimal.Decimal `json:"taxRtC"`
	TaxRateD       decimal.Decimal `json:"taxRtD"`
	TaxAmountA     decimal.Decimal `json:"taxAmtA"`
	TaxAmountB     decimal.Decimal `json:"taxAmtB"`
	TaxAmountC     decimal.Decimal `json:"taxAmtC"`
	TaxAmountD     decimal.Decimal `json:"taxAmtD"`

	TotalTaxable decimal.Decimal `json:"totTaxblAmt"`
	TotalTax     decimal.Decimal `json:"totTaxAmt"`
	TotalAmount  decimal.Decimal `json:"totAmt"`

	// PurchaserAccepted is always "N" unless explicitly confirmed by the
	// buyer, which this engine never does
	PurchaserAccepted string `json:"prchrAcptcYn" validate:"required,oneof=Y N"`
	Remark            string `json:"remark"`

	ItemList []SalesItemPayload `json:"itemList" validate:"required,min=1,dive"`
}

// InitPayload is the device registration body
type InitPayload struct {
	TaxPIN       string `json:"tin" validate:"required"`
	BranchID     string `json:"bhfId" validate:"required"`
	DeviceSerial string `json:"dvcSrlNo" validate:"required"`
}

var payloadValidator = validator.New()

// BuildSalesPayload assembles the compliant payload for an invoice. The
// four-category split is re-aggregated from the items here, independently
// of how the invoice stored it, and cross-checked against the invoice
// totals before anything goes on the wire.
func BuildSalesPayload(config *etims.IntegrationConfig, invoice *etims.Invoice) (*SalesPayload, error) {
	paymentType, ok := paymentTypeCodes[invoice.PaymentMethod]
	if !ok {
		return nil, fmt.Errorf("etims: no payment type code for method %s", invoice.PaymentMethod)
	}

	breakdown, err := invoice.Breakdown()
	if err != nil {
		return nil, err
	}
	if !breakdown.TotalTaxable().Equal(invoice.TotalBeforeTax) || !breakdown.TotalTax().Equal(invoice.TotalVAT) {
		return nil, etims.ErrTotalsMismatch
	}

	now := time.Now()
	payload := &SalesPayload{
		TaxPIN:        config.TaxPIN,
		BranchID:      config.BranchID,
		InvoiceNumber: invoice.InvoiceNumber,
		BuyerName:     invoice.BuyerName,
		SalesType:     salesTypeNormal,
		ReceiptType:   receiptTypeSale,
		PaymentType:   paymentType,
		SalesStatus:   salesStatusApproved,
		ConfirmedAt:   now.Format(dateTimeFormat),
		SaleDate:      invoice.InvoiceDate.Format(dateFormat),
		ItemCount:     len(invoice.Items),

		TaxableAmountA: breakdown[etims.VATCategoryStandard].TaxableAmount,
		TaxableAmountB: breakdown[etims.VATCategoryReduced].TaxableAmount,
		TaxableAmountC: breakdown[etims.VATCategoryExempt].TaxableAmount,
		TaxableAmountD: breakdown[etims.VATCategoryZeroRated].TaxableAmount,
		TaxRateA:       breakdown[etims.VATCategoryStandard].TaxRate,
		TaxRateB:       breakdown[etims.VATCategoryReduced].TaxRate,
		TaxRateC:       breakdown[etims.VATCategoryExempt].TaxRate,
		TaxRateD:       breakdown[etims.VATCategoryZeroRated].TaxRate,
		TaxAmountA:     breakdown[etims.VATCategoryStandard].TaxAmount,
		TaxAmountB:     breakdown[etims.VATCategoryReduced].TaxAmount,
		TaxAmountC:     breakdown[etims.VATCategoryExempt].TaxAmount,
		TaxAmountD:     breakdown[etims.VATCategoryZeroRated].TaxAmount,

		TotalTaxable: invoice.TotalBeforeTax,
		TotalTax:     invoice.TotalVAT,
		TotalAmount:  invoice.TotalAmount,

		PurchaserAccepted: purchaserAcceptNo,
		Remark:            invoice.Note,

		ItemList: make([]SalesItemPayload, 0, len(invoice.Items)),
	}

	if invoice.BuyerPIN != "" {
		pin := invoice.BuyerPIN
		payload.BuyerPIN = &pin
	}

	for _, item := range invoice.Items {
		line := SalesItemPayload{
			ItemSeq:        item.Sequence,
			ItemCode:       item.ItemCode,
			ItemClassCode:  item.ItemClassCode,
			ItemName:       item.ItemName,
			PackagingUnit:  item.PackagingUnit,
			PackageCount:   item.PackageCount,
			QuantityUnit:   "U",
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			SupplyAmount:   item.PreTaxAmount,
			DiscountRate:   decimal.Zero,
			DiscountAmount: decimal.Zero,
			TaxableAmount:  item.PreTaxAmount,
			TaxTypeCode:    item.VATCategory.String(),
			TaxAmount:      item.VATAmount,
			TotalAmount:    item.TotalAmount,
		}
		if item.Barcode != "" {
			bcd := item.Barcode
			line.Barcode = &bcd
		}
		payload.ItemList = append(payload.ItemList, line)
	}

	if err := payloadValidator.Struct(payload); err != nil {
		return nil, fmt.Errorf("etims: payload validation failed: %w", err)
	}
	return payload, nil
}

// BuildInitPayload assembles the device registration body
func BuildInitPayload(config *etims.IntegrationConfig, deviceSerial string) (*InitPayload, error) {
	payload := &InitPayload{
		TaxPIN:       config.TaxPIN,
		BranchID:     config.BranchID,
		DeviceSerial: deviceSerial,
	}
	if err := payloadValidator.Struct(payload); err != nil {
		return nil, fmt.Errorf("etims: init payload validation failed: %w", err)
	}
	return payload, nil
}
