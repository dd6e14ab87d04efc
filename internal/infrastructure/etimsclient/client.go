package etimsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/etims"
)

// maxResponseSize is the maximum allowed response size from the upstream (1MB)
const maxResponseSize = 1 * 1024 * 1024

// resultCodeSuccess is the fixed envelope code that signals acceptance.
// Any other code is a business-level rejection, not a transport error.
const resultCodeSuccess = "000"

// defaultTimeout bounds each network round trip
const defaultTimeout = 30 * time.Second

// Errors for the protocol client
var (
	// ErrTransport wraps connection errors, timeouts and malformed
	// responses; the invoice stays retryable
	ErrTransport = errors.New("etims: transport failure")
	// ErrInvalidResponse indicates a response body that does not parse as
	// the upstream envelope
	ErrInvalidResponse = errors.New("etims: invalid response envelope")
	// ErrInitializationRejected indicates the upstream declined device
	// registration
	ErrInitializationRejected = errors.New("etims: device initialization rejected")
)

// responseEnvelope is the upstream's uniform response wrapper
type responseEnvelope struct {
	ResultCode    string          `json:"resultCd"`
	ResultMessage string          `json:"resultMsg"`
	ResultDate    string          `json:"resultDt"`
	Data          json.RawMessage `json:"data"`
}

func (e *responseEnvelope) isSuccess() bool {
	return e.ResultCode == resultCodeSuccess
}

// initResponseData is the optional data block of the initialization response
type initResponseData struct {
	DeviceSerial string `json:"sdcId"`
	MrcNumber    string `json:"mrcNo"`
}

// salesResponseData is the optional data block of the sales response
type salesResponseData struct {
	ReceiptNumber    string `json:"rcptNo"`
	DeviceSerial     string `json:"sdcId"`
	ReceiptSignature string `json:"rcptSign"`
	InternalData     string `json:"intrlData"`
}

// Client implements the ProtocolClient port against the eTIMS wire
// contract. One instance is constructed per IntegrationConfig and injected
// into callers; there is no process-wide shared client.
type Client struct {
	config     *etims.IntegrationConfig
	strategy   providerStrategy
	httpClient *http.Client
	syncLogs   etims.SyncLogRepository
	logger     *zap.Logger
	verifyBase string
}

// Option customizes client construction
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	verifyBase string
	timeout    time.Duration
	httpClient *http.Client
}

// WithBaseURL overrides the upstream base URL. Intended for tests.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithVerifyBaseURL overrides the receipt verification base URL
func WithVerifyBaseURL(baseURL string) Option {
	return func(o *clientOptions) { o.verifyBase = strings.TrimRight(baseURL, "/") }
}

// WithTimeout overrides the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) { o.timeout = timeout }
}

// WithHTTPClient substitutes the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// NewClient creates a protocol client for the given configuration. The
// provider strategy (direct vs gateway) is selected here, once.
func NewClient(config *etims.IntegrationConfig, syncLogs etims.SyncLogRepository, logger *zap.Logger, opts ...Option) (*Client, error) {
	options := clientOptions{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	strategy, err := selectProvider(config, options.baseURL)
	if err != nil {
		return nil, err
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}

	verifyBase := options.verifyBase
	if verifyBase == "" {
		verifyBase = verifyBaseURL(config.Environment)
	}

	return &Client{
		config:     config,
		strategy:   strategy,
		httpClient: httpClient,
		syncLogs:   syncLogs,
		logger:     logger,
		verifyBase: verifyBase,
	}, nil
}

// InitializeDevice registers the device with the tax authority. On a
// success envelope the upstream-assigned serial is returned for the caller
// to persist via the single-winner activation update.
func (c *Client) InitializeDevice(ctx context.Context) (*etims.InitializationResult, error) {
	serial := c.config.DeviceSerial
	if serial == "" {
		serial = generateDeviceSerial()
	}

	payload, err := BuildInitPayload(c.config, serial)
	if err != nil {
		return nil, err
	}

	envelope, err := c.call(ctx, etims.SyncOperationInitializeDevice, nil, pathInitializeDevice, payload)
	if err != nil {
		return nil, err
	}

	if !envelope.isSuccess() {
		return nil, fmt.Errorf("%w: %s - %s", ErrInitializationRejected, envelope.ResultCode, envelope.ResultMessage)
	}

	result := &etims.InitializationResult{
		DeviceSerial: serial,
		ResultCode:   envelope.ResultCode,
		Message:      envelope.ResultMessage,
	}
	if len(envelope.Data) > 0 {
		var data initResponseData
		if err := json.Unmarshal(envelope.Data, &data); err == nil && data.DeviceSerial != "" {
			result.DeviceSerial = data.DeviceSerial
		}
	}
	return result, nil
}

// SubmitInvoice sends the compliant sales payload. Refused before any
// network call when the integration is not active.
func (c *Client) SubmitInvoice(ctx context.Context, invoice *etims.Invoice) (*etims.SubmissionResult, error) {
	if !c.config.CanSubmit() {
		return nil, etims.ErrIntegrationNotActive
	}

	payload, err := BuildSalesPayload(c.config, invoice)
	if err != nil {
		return nil, err
	}

	invoiceID := invoice.GetID()
	envelope, err := c.call(ctx, etims.SyncOperationSubmitInvoice, &invoiceID, pathSubmitSales, payload)
	if err != nil {
		return nil, err
	}

	if !envelope.isSuccess() {
		return &etims.SubmissionResult{
			Accepted:   false,
			ResultCode: envelope.ResultCode,
			Message:    envelope.ResultMessage,
		}, nil
	}

	var data salesResponseData
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: malformed data block: %v", ErrInvalidResponse, err)
		}
	}

	deviceSerial := data.DeviceSerial
	if deviceSerial == "" {
		deviceSerial = c.config.DeviceSerial
	}

	return &etims.SubmissionResult{
		Accepted:         true,
		ResultCode:       envelope.ResultCode,
		Message:          envelope.ResultMessage,
		ReceiptNumber:    data.ReceiptNumber,
		VerificationURL:  c.verificationURL(data.ReceiptNumber),
		ReceiptSignature: data.ReceiptSignature,
		DeviceSerial:     deviceSerial,
	}, nil
}

// verificationURL derives the public receipt verification link
// deterministically from the receipt number
func (c *Client) verificationURL(receiptNumber string) string {
	if receiptNumber == "" {
		return ""
	}
	return fmt.Sprintf("%s/common/link/etims/receipt/indexEtimsReceiptData?Data=%s%s%s",
		c.verifyBase, c.config.TaxPIN, c.config.BranchID, receiptNumber)
}

// call performs one physical network attempt and appends exactly one audit
// entry for it, whatever the outcome. The audit write uses a detached
// context so a caller's cancellation cannot lose the trail.
func (c *Client) call(ctx context.Context, operation etims.SyncOperation, invoiceID *uuid.UUID, path string, payload any) (*responseEnvelope, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("etims: failed to encode payload: %w", err)
	}

	entry := etims.NewSyncLogEntry(operation, invoiceID, string(reqBody))

	statusCode, respBody, err := c.post(ctx, path, reqBody)
	if err != nil {
		outcome := etims.SyncOutcomeFailed
		if isTimeout(err) {
			outcome = etims.SyncOutcomeTimeout
		}
		entry.RecordResponse(statusCode, "", outcome, err.Error())
		c.appendLog(ctx, entry)
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var envelope responseEnvelope
	if parseErr := json.Unmarshal(respBody, &envelope); parseErr != nil || envelope.ResultCode == "" {
		detail := "response is not a valid envelope"
		if parseErr != nil {
			detail = parseErr.Error()
		}
		entry.RecordResponse(statusCode, string(respBody), etims.SyncOutcomeFailed, detail)
		c.appendLog(ctx, entry)
		return nil, fmt.Errorf("%w: %s", ErrTransport, detail)
	}

	errDetail := ""
	if !envelope.isSuccess() {
		errDetail = envelope.ResultMessage
	}
	entry.RecordResponse(statusCode, string(respBody), etims.SyncOutcomeSuccess, errDetail)
	c.appendLog(ctx, entry)

	return &envelope, nil
}

// post performs the raw HTTP exchange
func (c *Client) post(ctx context.Context, path string, body []byte) (int, []byte, error) {
	url := c.strategy.BaseURL() + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.strategy.ApplyAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// appendLog writes the audit entry on a detached context. A failed audit
// write is logged but never masks the call result.
func (c *Client) appendLog(ctx context.Context, entry *etims.SyncLogEntry) {
	if err := c.syncLogs.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Error("Failed to append sync log entry",
			zap.String("operation", string(entry.Operation)),
			zap.Error(err),
		)
	}
}

// isTimeout classifies timeouts and cancellations as timeout outcomes
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// generateDeviceSerial creates a local serial for first-time registration
func generateDeviceSerial() string {
	return "DUKA-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
