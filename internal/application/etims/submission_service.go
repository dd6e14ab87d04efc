package etims

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/etims"
)

// ClientFactory builds a protocol client bound to one integration config.
// The submission service constructs a fresh client per operation so a
// config change (environment switch, new credentials) takes effect without
// a restart.
type ClientFactory func(config *etims.IntegrationConfig) (etims.ProtocolClient, error)

// SubmissionServiceImpl drives the invoice submission state machine. It is
// the only writer of submission state after invoice creation: claim, call,
// apply outcome.
type SubmissionServiceImpl struct {
	invoiceRepo   etims.InvoiceRepository
	configRepo    etims.IntegrationConfigRepository
	clientFactory ClientFactory
	logger        *zap.Logger
}

// NewSubmissionService creates a new SubmissionServiceImpl
func NewSubmissionService(
	invoiceRepo etims.InvoiceRepository,
	configRepo etims.IntegrationConfigRepository,
	clientFactory ClientFactory,
	logger *zap.Logger,
) *SubmissionServiceImpl {
	return &SubmissionServiceImpl{
		invoiceRepo:   invoiceRepo,
		configRepo:    configRepo,
		clientFactory: clientFactory,
		logger:        logger,
	}
}

// Submit claims the invoice, performs one network attempt and applies the
// outcome. Manual resubmission and the scheduled sweep both enter here, so
// the claim discipline holds regardless of trigger. The claim guarantees
// at most one network attempt is in flight per invoice.
func (s *SubmissionServiceImpl) Submit(ctx context.Context, invoiceID uuid.UUID) (*etims.Invoice, error) {
	config, err := s.configRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if !config.CanSubmit() {
		return nil, etims.ErrIntegrationNotActive
	}

	client, err := s.clientFactory(config)
	if err != nil {
		return nil, err
	}

	invoice, err := s.invoiceRepo.Claim(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	result, callErr := client.SubmitInvoice(ctx, invoice)

	// The claim must always be released, even when the caller's context is
	// already dead. A cancelled attempt is a transport failure.
	releaseCtx := context.WithoutCancel(ctx)

	switch {
	case callErr != nil:
		if markErr := invoice.MarkFailed(callErr.Error()); markErr != nil {
			return nil, markErr
		}
		s.logger.Warn("invoice submission failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.Int("retry_count", invoice.RetryCount),
			zap.Error(callErr))
	case result.Accepted:
		if markErr := invoice.MarkApproved(result.ReceiptNumber, result.VerificationURL, result.ReceiptSignature, result.DeviceSerial); markErr != nil {
			return nil, markErr
		}
		s.logger.Info("invoice approved",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.String("receipt_number", result.ReceiptNumber))
	default:
		if markErr := invoice.MarkRejected(result.Message); markErr != nil {
			return nil, markErr
		}
		s.logger.Warn("invoice rejected",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.String("result_code", result.ResultCode),
			zap.String("message", result.Message))
	}

	if err := s.invoiceRepo.Update(releaseCtx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// RetrySweep finds invoices eligible for resubmission and submits them one
// by one. Claim conflicts are counted as skipped: another worker got there
// first, which is the claim doing its job.
func (s *SubmissionServiceImpl) RetrySweep(ctx context.Context, limit int) (SweepReport, error) {
	report := SweepReport{}

	config, err := s.configRepo.FindActive(ctx)
	if err != nil {
		return report, err
	}
	if !config.CanSubmit() {
		return report, etims.ErrIntegrationNotActive
	}

	eligible, err := s.invoiceRepo.FindEligibleForRetry(ctx, limit)
	if err != nil {
		return report, err
	}

	for i := range eligible {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Attempted++

		invoice, err := s.Submit(ctx, eligible[i].ID)
		if err != nil {
			if errors.Is(err, etims.ErrSubmissionInProgress) ||
				errors.Is(err, etims.ErrInvoiceFinalized) ||
				errors.Is(err, etims.ErrRetryCeilingReached) {
				report.Attempted--
				report.Skipped++
				continue
			}
			report.Failed++
			continue
		}

		switch invoice.Status {
		case etims.SubmissionStatusApproved:
			report.Approved++
		case etims.SubmissionStatusRejected:
			report.Rejected++
		default:
			report.Failed++
		}
	}

	s.logger.Info("retry sweep completed",
		zap.Int("attempted", report.Attempted),
		zap.Int("approved", report.Approved),
		zap.Int("rejected", report.Rejected),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report, nil
}
