package etims

import "github.com/dukapos/backend/internal/domain/shared"

// Domain errors for the invoice submission engine
var (
	// ErrNoActiveConfig indicates no active integration configuration exists
	ErrNoActiveConfig = shared.NewDomainError("ETIMS_NO_ACTIVE_CONFIG", "No active eTIMS integration configuration")
	// ErrIntegrationNotActive indicates the device has not been initialized with the tax authority
	ErrIntegrationNotActive = shared.NewDomainError("ETIMS_NOT_INITIALIZED", "eTIMS integration is not initialized; run device initialization first")
	// ErrAlreadyInitialized indicates a concurrent or repeated device initialization
	ErrAlreadyInitialized = shared.NewDomainError("ETIMS_ALREADY_INITIALIZED", "eTIMS integration is already initialized")
	// ErrNoLineItems indicates an invoice build request without items
	ErrNoLineItems = shared.NewDomainError("ETIMS_NO_LINE_ITEMS", "Invoice must contain at least one line item")
	// ErrUnknownVATCategory indicates an item without a resolvable VAT category
	ErrUnknownVATCategory = shared.NewDomainError("ETIMS_UNKNOWN_VAT_CATEGORY", "Line item has no resolvable VAT category")
	// ErrInvoiceNotFound indicates the invoice does not exist
	ErrInvoiceNotFound = shared.NewDomainError("ETIMS_INVOICE_NOT_FOUND", "Invoice not found")
	// ErrSubmissionInProgress indicates another caller holds the submission claim
	ErrSubmissionInProgress = shared.NewDomainError("ETIMS_SUBMISSION_IN_PROGRESS", "Invoice is already being submitted by another caller")
	// ErrInvoiceFinalized indicates the invoice reached a terminal state
	ErrInvoiceFinalized = shared.NewDomainError("ETIMS_INVOICE_FINALIZED", "Invoice is in a terminal state and cannot be resubmitted")
	// ErrRetryCeilingReached indicates the invoice exhausted automatic retries
	ErrRetryCeilingReached = shared.NewDomainError("ETIMS_RETRY_CEILING", "Invoice reached the retry ceiling and requires manual intervention")
	// ErrTotalsMismatch indicates invoice totals do not reconcile with line amounts
	ErrTotalsMismatch = shared.NewDomainError("ETIMS_TOTALS_MISMATCH", "Invoice totals do not reconcile with line item amounts")
	// ErrNumberingUnavailable indicates the invoice numbering service failed
	ErrNumberingUnavailable = shared.NewDomainError("ETIMS_NUMBERING_UNAVAILABLE", "Invoice numbering service is unavailable")
	// ErrMissingGatewayCredentials indicates a gateway-provider config without its credential bundle
	ErrMissingGatewayCredentials = shared.NewDomainError("ETIMS_MISSING_CREDENTIALS", "Gateway provider requires app id, key and secret")
)
