package etims

import (
	"time"

	"github.com/google/uuid"
)

// SyncOperation identifies the upstream call an audit entry records
type SyncOperation string

const (
	SyncOperationInitializeDevice SyncOperation = "INITIALIZE_DEVICE"
	SyncOperationSubmitInvoice    SyncOperation = "SUBMIT_INVOICE"
)

// IsValid checks if the operation is valid
func (o SyncOperation) IsValid() bool {
	return o == SyncOperationInitializeDevice || o == SyncOperationSubmitInvoice
}

// SyncOutcome classifies how a physical network attempt ended
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "SUCCESS"
	SyncOutcomeFailed  SyncOutcome = "FAILED"
	SyncOutcomeTimeout SyncOutcome = "TIMEOUT"
)

// SyncLogEntry is one append-only audit record of an outbound request and
// its response. One entry per physical network attempt: a retry produces a
// new entry, never a mutation of a prior one. Entries are never updated or
// deleted after insert.
type SyncLogEntry struct {
	ID              uuid.UUID     `json:"id"`
	Operation       SyncOperation `json:"operation"`
	InvoiceID       *uuid.UUID    `json:"invoice_id,omitempty"`
	RequestPayload  string        `json:"request_payload"`            // verbatim outbound JSON
	ResponsePayload string        `json:"response_payload,omitempty"` // verbatim inbound JSON, empty on transport failure
	ResponseCode    int           `json:"response_code"`              // HTTP status, 0 on transport failure
	Outcome         SyncOutcome   `json:"outcome"`
	ErrorDetail     string        `json:"error_detail,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// NewSyncLogEntry creates an audit entry for one network attempt
func NewSyncLogEntry(operation SyncOperation, invoiceID *uuid.UUID, requestPayload string) *SyncLogEntry {
	return &SyncLogEntry{
		ID:             uuid.New(),
		Operation:      operation,
		InvoiceID:      invoiceID,
		RequestPayload: requestPayload,
		CreatedAt:      time.Now(),
	}
}

// RecordResponse captures the inbound side of the attempt
func (e *SyncLogEntry) RecordResponse(statusCode int, body string, outcome SyncOutcome, errDetail string) {
	e.ResponseCode = statusCode
	e.ResponsePayload = body
	e.Outcome = outcome
	e.ErrorDetail = errDetail
}
