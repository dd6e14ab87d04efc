package etims

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceFilter defines filter criteria for invoice list queries
type InvoiceFilter struct {
	Status   *SubmissionStatus
	SaleID   *uuid.UUID
	FromDate *time.Time
	ToDate   *time.Time
	Search   string // matches invoice number or buyer name
	Page     int
	PageSize int
}

// InvoiceRepository persists invoices and owns the numbering and claim
// disciplines that the state machine relies on.
type InvoiceRepository interface {
	// CreateWithItems assigns the next invoice number for the prefix and
	// calendar year and inserts the invoice with all its items in a single
	// transaction. A generated number is never discarded unused and a used
	// number never repeats; on any item insert failure the whole creation
	// rolls back.
	CreateWithItems(ctx context.Context, prefix string, invoice *Invoice) error

	// FindByID loads an invoice with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindBySaleID loads the invoice derived from a sale, if any
	FindBySaleID(ctx context.Context, saleID uuid.UUID) (*Invoice, error)

	// Claim atomically transitions pending|failed -> submitted, stamping
	// the attempt time. Returns ErrSubmissionInProgress if another caller
	// already holds the claim, ErrInvoiceFinalized for terminal invoices
	// and ErrRetryCeilingReached at the ceiling. Exactly one concurrent
	// caller can win.
	Claim(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// Update persists a state transition applied by the state machine
	Update(ctx context.Context, invoice *Invoice) error

	// FindEligibleForRetry selects invoices with status pending or failed
	// and retry count under the ceiling, oldest first, bounded by limit.
	// Submitted, approved, rejected and ceiling-reached invoices are never
	// returned.
	FindEligibleForRetry(ctx context.Context, limit int) ([]Invoice, error)

	// List returns invoices matching the filter with the total count
	List(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)
}

// IntegrationConfigRepository persists the business tax identity
type IntegrationConfigRepository interface {
	// Save inserts or updates a configuration
	Save(ctx context.Context, config *IntegrationConfig) error

	// FindActive returns the single active configuration, or the most
	// recent inactive one when initialization has not happened yet.
	// Returns ErrNoActiveConfig when none exists at all.
	FindActive(ctx context.Context) (*IntegrationConfig, error)

	// Activate marks the config active with the upstream device serial
	// using a conditional update that only one caller can win. Returns
	// ErrAlreadyInitialized when the config is already active.
	Activate(ctx context.Context, id uuid.UUID, deviceSerial string) error
}

// SyncLogFilter defines filter criteria for audit log queries
type SyncLogFilter struct {
	Operation *SyncOperation
	InvoiceID *uuid.UUID
	Outcome   *SyncOutcome
	Page      int
	PageSize  int
}

// SyncLogRepository is the append-only audit trail. There is no update or
// delete operation on purpose.
type SyncLogRepository interface {
	// Append inserts one audit entry
	Append(ctx context.Context, entry *SyncLogEntry) error

	// List returns entries matching the filter, newest first, with total count
	List(ctx context.Context, filter SyncLogFilter) ([]SyncLogEntry, int64, error)
}
