package etims

import "context"

// InitializationResult is the upstream's answer to device registration
type InitializationResult struct {
	// DeviceSerial is the upstream-assigned control-unit serial
	DeviceSerial string
	// ResultCode is the upstream envelope code
	ResultCode string
	// Message is the upstream envelope message
	Message string
}

// SubmissionResult is the upstream's business-level answer to an invoice
// submission. A transport failure is reported as an error by the client,
// not as a SubmissionResult.
type SubmissionResult struct {
	// Accepted is true when the envelope carries the designated success code
	Accepted bool
	// ResultCode is the upstream envelope code
	ResultCode string
	// Message is the upstream envelope message, verbatim
	Message string

	// Populated only when Accepted
	ReceiptNumber    string
	VerificationURL  string
	ReceiptSignature string
	DeviceSerial     string
}

// ProtocolClient is the sole port aware of the upstream wire format. One
// client instance is constructed per IntegrationConfig; callers receive it
// by injection rather than through process-wide state.
type ProtocolClient interface {
	// InitializeDevice registers the device once per business/environment.
	// A non-success envelope code is returned as an error; the integration
	// stays inactive until this succeeds.
	InitializeDevice(ctx context.Context) (*InitializationResult, error)

	// SubmitInvoice sends the compliant payload. It refuses with
	// ErrIntegrationNotActive before any network call when the integration
	// is not initialized. Transport-level failures (timeout, connection
	// error, malformed response) are returned as errors; an explicit
	// upstream rejection is a SubmissionResult with Accepted=false.
	SubmitInvoice(ctx context.Context, invoice *Invoice) (*SubmissionResult, error)
}
