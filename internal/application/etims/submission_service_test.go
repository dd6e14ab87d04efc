package etims

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/etims"
)

func seedPendingInvoice(t *testing.T, repo *fakeInvoiceRepo) *etims.Invoice {
	t.Helper()
	inv, err := etims.NewInvoice(uuid.New(), "Jane Wanjiku", "A012345678Z", etims.PaymentMethodCash, time.Now(), []etims.InvoiceItem{{
		Sequence:     1,
		ItemCode:     "SKU-001",
		ItemName:     "Maize Flour 2kg",
		Quantity:     decimal.NewFromInt(1),
		UnitPrice:    decimal.NewFromFloat(1160.00),
		PreTaxAmount: decimal.NewFromFloat(1000.00),
		VATCategory:  etims.VATCategoryStandard,
		VATRate:      decimal.NewFromInt(16),
		VATAmount:    decimal.NewFromFloat(160.00),
		TotalAmount:  decimal.NewFromFloat(1160.00),
	}})
	require.NoError(t, err)
	require.NoError(t, repo.CreateWithItems(context.Background(), "INV", inv))
	return inv
}

func acceptedResult() *etims.SubmissionResult {
	return &etims.SubmissionResult{
		Accepted:         true,
		ResultCode:       "000",
		Message:          "Success",
		ReceiptNumber:    "KRACU0100000001",
		VerificationURL:  "https://etims-sbx.kra.go.ke/common/link/etims/receipt/indexEtimsReceiptData?Data=P051234567A00KRACU0100000001",
		ReceiptSignature: "c2lnbg==",
		DeviceSerial:     "KRACU010000001",
	}
}

func TestSubmit_Approved(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, true)
	client := &fakeProtocolClient{result: acceptedResult()}
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(client), zap.NewNop())

	inv := seedPendingInvoice(t, invoiceRepo)

	result, err := svc.Submit(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, etims.SubmissionStatusApproved, result.Status)
	assert.Equal(t, "KRACU0100000001", result.ReceiptNumber)
	assert.NotEmpty(t, result.VerificationURL)
	assert.NotNil(t, result.ConfirmedAt)
	assert.Equal(t, 0, result.RetryCount)
	assert.Equal(t, 1, client.callCount())

	stored, err := invoiceRepo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, etims.SubmissionStatusApproved, stored.Status)
}

func TestSubmit_Rejected(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, true)
	client := &fakeProtocolClient{result: &etims.SubmissionResult{
		Accepted:   false,
		ResultCode: "910",
		Message:    "Invalid TIN",
	}}
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(client), zap.NewNop())

	inv := seedPendingInvoice(t, invoiceRepo)

	result, err := svc.Submit(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, etims.SubmissionStatusRejected, result.Status)
	assert.Equal(t, "Invalid TIN", result.LastError)
	// rejection does not consume a retry
	assert.Equal(t, 0, result.RetryCount)

	// terminal: a second submission attempt must not reach the network
	_, err = svc.Submit(context.Background(), inv.ID)
	assert.ErrorIs(t, err, etims.ErrInvoiceFinalized)
	assert.Equal(t, 1, client.callCount())
}

func TestSubmit_TransportFailure(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, true)
	client := &fakeProtocolClient{submitErr: errors.New("dial tcp: i/o timeout")}
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(client), zap.NewNop())

	inv := seedPendingInvoice(t, invoiceRepo)

	result, err := svc.Submit(context.Background(), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, etims.SubmissionStatusFailed, result.Status)
	assert.Equal(t, 1, result.RetryCount)
	assert.Contains(t, result.LastError, "i/o timeout")
	// failed invoices stay eligible until the ceiling
	assert.True(t, result.CanSubmit())
}

func TestSubmit_RetryCeiling(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, true)
	client := &fakeProtocolClient{submitErr: errors.New("connection refused")}
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(client), zap.NewNop())

	inv := seedPendingInvoice(t, invoiceRepo)

	for i := 0; i < etims.MaxRetryCount; i++ {
		result, err := svc.Submit(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, i+1, result.RetryCount)
	}

	_, err := svc.Submit(context.Background(), inv.ID)
	assert.ErrorIs(t, err, etims.ErrRetryCeilingReached)
	assert.Equal(t, etims.MaxRetryCount, client.callCount())
}

func TestSubmit_RefusesWhenInactive(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, false)
	client := &fakeProtocolClient{result: acceptedResult()}
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(client), zap.NewNop())

	inv := seedPendingInvoice(t, invoiceRepo)

	_, err := svc.Submit(context.Background(), inv.ID)
	assert.ErrorIs(t, err, etims.ErrIntegrationNotActive)
	assert.Equal(t, 0, client.callCount())

	stored, err := invoiceRepo.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, etims.SubmissionStatusPending, stored.Status)
}

func TestSubmit_ConcurrentClaim(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, true)
	client := &fakeProtocolClient{result: acceptedResult()}
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(client), zap.NewNop())

	inv := seedPendingInvoice(t, invoiceRepo)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = svc.Submit(context.Background(), inv.ID)
		}(i)
	}
	wg.Wait()

	// exactly one caller wins the claim and reaches the network
	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t,
				errors.Is(err, etims.ErrSubmissionInProgress) || errors.Is(err, etims.ErrInvoiceFinalized),
				"unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, client.callCount())
}

func TestRetrySweep(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, true)
	client := &fakeProtocolClient{result: acceptedResult()}
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(client), zap.NewNop())

	pending := seedPendingInvoice(t, invoiceRepo)
	approvedInv := seedPendingInvoice(t, invoiceRepo)

	// an already-approved invoice must never be swept again
	_, err := svc.Submit(context.Background(), approvedInv.ID)
	require.NoError(t, err)
	callsBefore := client.callCount()

	report, err := svc.RetrySweep(context.Background(), 50)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Approved)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, callsBefore+1, client.callCount())

	stored, err := invoiceRepo.FindByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, etims.SubmissionStatusApproved, stored.Status)
}

func TestRetrySweep_Inactive(t *testing.T) {
	invoiceRepo := newFakeInvoiceRepo()
	configRepo := &fakeConfigRepo{}
	seedConfig(t, configRepo, false)
	svc := NewSubmissionService(invoiceRepo, configRepo, fixedClientFactory(&fakeProtocolClient{}), zap.NewNop())

	_, err := svc.RetrySweep(context.Background(), 50)
	assert.ErrorIs(t, err, etims.ErrIntegrationNotActive)
}
