package etimsclient

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukapos/backend/internal/domain/etims"
)

func testConfig(t *testing.T) *etims.IntegrationConfig {
	t.Helper()
	cfg, err := etims.NewIntegrationConfig("Duka General Store", "P051234567A", "00", etims.EnvironmentSandbox, etims.ProviderDirect)
	require.NoError(t, err)
	return cfg
}

func testInvoice(t *testing.T) *etims.Invoice {
	t.Helper()
	item := etims.InvoiceItem{
		Sequence:      1,
		ItemCode:      "SKU-001",
		ItemClassCode: "5059690800",
		ItemName:      "Maize Flour 2kg",
		Quantity:      decimal.NewFromInt(1),
		UnitPrice:     decimal.NewFromFloat(1160.00),
		PackagingUnit: "CT",
		PackageCount:  decimal.NewFromInt(1),
		PreTaxAmount:  decimal.NewFromFloat(1000.00),
		VATCategory:   etims.VATCategoryStandard,
		VATRate:       decimal.NewFromInt(16),
		VATAmount:     decimal.NewFromFloat(160.00),
		TotalAmount:   decimal.NewFromFloat(1160.00),
	}
	inv, err := etims.NewInvoice(
		uuid.New(),
		"Jane Wanjiku",
		"A012345678Z",
		etims.PaymentMethodCash,
		time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC),
		[]etims.InvoiceItem{item},
	)
	require.NoError(t, err)
	inv.InvoiceNumber = "INV-2026-000001"
	return inv
}

func TestBuildSalesPayload_CategorySplit(t *testing.T) {
	// one standard-rate item of 1160.00: category A carries 1000/16%/160,
	// categories B/C/D stay zero
	payload, err := BuildSalesPayload(testConfig(t), testInvoice(t))
	require.NoError(t, err)

	assert.Equal(t, "P051234567A", payload.TaxPIN)
	assert.Equal(t, "00", payload.BranchID)
	assert.Equal(t, "INV-2026-000001", payload.InvoiceNumber)
	require.NotNil(t, payload.BuyerPIN)
	assert.Equal(t, "A012345678Z", *payload.BuyerPIN)

	assert.True(t, payload.TaxableAmountA.Equal(decimal.NewFromFloat(1000.00)))
	assert.True(t, payload.TaxRateA.Equal(decimal.NewFromInt(16)))
	assert.True(t, payload.TaxAmountA.Equal(decimal.NewFromFloat(160.00)))
	for _, taxable := range []decimal.Decimal{payload.TaxableAmountB, payload.TaxableAmountC, payload.TaxableAmountD} {
		assert.True(t, taxable.IsZero())
	}
	for _, tax := range []decimal.Decimal{payload.TaxAmountB, payload.TaxAmountC, payload.TaxAmountD} {
		assert.True(t, tax.IsZero())
	}

	assert.True(t, payload.TotalTaxable.Equal(decimal.NewFromFloat(1000.00)))
	assert.True(t, payload.TotalTax.Equal(decimal.NewFromFloat(160.00)))
	assert.True(t, payload.TotalAmount.Equal(decimal.NewFromFloat(1160.00)))
}

func TestBuildSalesPayload_FixedCodes(t *testing.T) {
	payload, err := BuildSalesPayload(testConfig(t), testInvoice(t))
	require.NoError(t, err)

	assert.Equal(t, "N", payload.SalesType)
	assert.Equal(t, "S", payload.ReceiptType)
	assert.Equal(t, "01", payload.PaymentType) // cash
	assert.Equal(t, "02", payload.SalesStatus)
	assert.Equal(t, "N", payload.PurchaserAccepted)
	assert.Equal(t, 1, payload.ItemCount)
}

func TestBuildSalesPayload_DateEncodings(t *testing.T) {
	payload, err := BuildSalesPayload(testConfig(t), testInvoice(t))
	require.NoError(t, err)

	assert.Equal(t, "20260314", payload.SaleDate)
	assert.Len(t, payload.ConfirmedAt, 14)
	_, err = time.Parse(dateTimeFormat, payload.ConfirmedAt)
	assert.NoError(t, err)
}

func TestBuildSalesPayload_ItemLine(t *testing.T) {
	payload, err := BuildSalesPayload(testConfig(t), testInvoice(t))
	require.NoError(t, err)

	require.Len(t, payload.ItemList, 1)
	line := payload.ItemList[0]
	assert.Equal(t, 1, line.ItemSeq)
	assert.Equal(t, "SKU-001", line.ItemCode)
	assert.Equal(t, "5059690800", line.ItemClassCode)
	assert.Equal(t, "Maize Flour 2kg", line.ItemName)
	assert.Nil(t, line.Barcode)
	assert.Equal(t, "A", line.TaxTypeCode)
	assert.True(t, line.SupplyAmount.Equal(decimal.NewFromFloat(1000.00)))
	assert.True(t, line.TaxableAmount.Equal(decimal.NewFromFloat(1000.00)))
	assert.True(t, line.TaxAmount.Equal(decimal.NewFromFloat(160.00)))
	assert.True(t, line.TotalAmount.Equal(decimal.NewFromFloat(1160.00)))
	assert.True(t, line.DiscountRate.IsZero())
	assert.True(t, line.DiscountAmount.IsZero())
}

func TestBuildSalesPayload_NoBuyerPIN(t *testing.T) {
	item := etims.InvoiceItem{
		Sequence:     1,
		ItemCode:     "SKU-002",
		ItemName:     "Bread",
		Quantity:     decimal.NewFromInt(1),
		UnitPrice:    decimal.NewFromFloat(100.00),
		PreTaxAmount: decimal.NewFromFloat(100.00),
		VATCategory:  etims.VATCategoryZeroRated,
		VATRate:      decimal.Zero,
		VATAmount:    decimal.Zero,
		TotalAmount:  decimal.NewFromFloat(100.00),
	}
	inv, err := etims.NewInvoice(uuid.New(), "Walk-in", "", etims.PaymentMethodMobileMoney, time.Now(), []etims.InvoiceItem{item})
	require.NoError(t, err)
	inv.InvoiceNumber = "INV-2026-000002"

	payload, err := BuildSalesPayload(testConfig(t), inv)
	require.NoError(t, err)
	assert.Nil(t, payload.BuyerPIN)
	assert.Equal(t, "06", payload.PaymentType) // mobile money

	// custTin must serialize as an explicit null, not be absent
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"custTin":null`)
}

func TestBuildSalesPayload_WireFieldNames(t *testing.T) {
	payload, err := BuildSalesPayload(testConfig(t), testInvoice(t))
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for _, key := range []string{
		"tin", "bhfId", "invcNo", "custTin", "custNm",
		"salesTyCd", "rcptTyCd", "pmtTyCd", "salesSttsCd",
		"cfmDt", "salesDt", "totItemCnt",
		"taxblAmtA", "taxblAmtB", "taxblAmtC", "taxblAmtD",
		"taxRtA", "taxRtB", "taxRtC", "taxRtD",
		"taxAmtA", "taxAmtB", "taxAmtC", "taxAmtD",
		"totTaxblAmt", "totTaxAmt", "totAmt",
		"prchrAcptcYn", "remark", "itemList",
	} {
		assert.Contains(t, decoded, key, "payload is missing wire field %q", key)
	}

	items, ok := decoded["itemList"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	for _, key := range []string{
		"itemSeq", "itemCd", "itemClsCd", "itemNm", "bcd",
		"pkgUnitCd", "pkg", "qtyUnitCd", "qty", "prc", "splyAmt",
		"dcRt", "dcAmt", "taxblAmt", "taxTyCd", "taxAmt", "totAmt",
	} {
		assert.Contains(t, item, key, "item line is missing wire field %q", key)
	}
}

func TestBuildInitPayload(t *testing.T) {
	payload, err := BuildInitPayload(testConfig(t), "DUKA-ABCDEF123456")
	require.NoError(t, err)
	assert.Equal(t, "P051234567A", payload.TaxPIN)
	assert.Equal(t, "00", payload.BranchID)
	assert.Equal(t, "DUKA-ABCDEF123456", payload.DeviceSerial)

	_, err = BuildInitPayload(testConfig(t), "")
	assert.Error(t, err)
}
