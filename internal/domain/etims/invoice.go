package etims

import (
	"fmt"
	"strings"
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxRetryCount is the retry ceiling: once a failed invoice has been
// attempted this many times it is excluded from automatic resubmission
// and requires manual intervention.
const MaxRetryCount = 3

// SubmissionStatus is the lifecycle state of an invoice with respect to
// the tax authority.
type SubmissionStatus string

const (
	// SubmissionStatusPending means the invoice is created but not yet
	// accepted by the upstream
	SubmissionStatusPending SubmissionStatus = "PENDING"
	// SubmissionStatusSubmitted means a network call is in flight. This
	// state is transient - it is the claim that guarantees at-most-one
	// concurrent submission, and it collapses to approved/rejected/failed
	// as soon as the call completes.
	SubmissionStatusSubmitted SubmissionStatus = "SUBMITTED"
	// SubmissionStatusApproved means the upstream accepted the invoice (terminal)
	SubmissionStatusApproved SubmissionStatus = "APPROVED"
	// SubmissionStatusRejected means the upstream explicitly declined the
	// invoice (terminal, not retried - the document itself is wrong)
	SubmissionStatusRejected SubmissionStatus = "REJECTED"
	// SubmissionStatusFailed means a transport-level failure; eligible for
	// retry while under the ceiling
	SubmissionStatusFailed SubmissionStatus = "FAILED"
)

// IsValid checks if the status is a valid SubmissionStatus
func (s SubmissionStatus) IsValid() bool {
	switch s {
	case SubmissionStatusPending, SubmissionStatusSubmitted,
		SubmissionStatusApproved, SubmissionStatusRejected, SubmissionStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of SubmissionStatus
func (s SubmissionStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further submission is ever attempted
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

// CanClaim returns true if a submission claim may be taken in this status
func (s SubmissionStatus) CanClaim() bool {
	return s == SubmissionStatusPending || s == SubmissionStatusFailed
}

// PaymentMethod represents the method of payment for the underlying sale
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCredit       PaymentMethod = "CREDIT"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobileMoney,
		PaymentMethodBankTransfer, PaymentMethodCredit:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// InvoiceItem is one taxed line of an invoice. Items are created atomically
// with their parent invoice and immutable thereafter.
type InvoiceItem struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Sequence      int             `json:"sequence"` // 1-based, contiguous
	ItemCode      string          `json:"item_code"`
	ItemClassCode string          `json:"item_class_code"`
	ItemName      string          `json:"item_name"`
	Barcode       string          `json:"barcode,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"` // tax-inclusive
	PackagingUnit string          `json:"packaging_unit"`
	PackageCount  decimal.Decimal `json:"package_count"`
	PreTaxAmount  decimal.Decimal `json:"pre_tax_amount"`
	VATCategory   VATCategory     `json:"vat_category"`
	VATRate       decimal.Decimal `json:"vat_rate"` // whole percentage
	VATAmount     decimal.Decimal `json:"vat_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"` // tax-inclusive line total
}

// Invoice is one compliant tax document derived from exactly one completed
// sale. It is the aggregate root of the submission state machine: only the
// state machine mutates it after creation, and it is never physically
// deleted - corrections are appended as new documents per tax-audit
// convention.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string        `json:"invoice_number"`
	SaleID        uuid.UUID     `json:"sale_id"`
	BuyerName     string        `json:"buyer_name"`
	BuyerPIN      string        `json:"buyer_pin,omitempty"`
	InvoiceDate   time.Time     `json:"invoice_date"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Note          string        `json:"note,omitempty"`

	TotalBeforeTax decimal.Decimal `json:"total_before_tax"`
	TotalVAT       decimal.Decimal `json:"total_vat"`
	TotalAmount    decimal.Decimal `json:"total_amount"`

	Status        SubmissionStatus `json:"status"`
	RetryCount    int              `json:"retry_count"`
	LastError     string           `json:"last_error,omitempty"`
	LastAttemptAt *time.Time       `json:"last_attempt_at,omitempty"`
	ConfirmedAt   *time.Time       `json:"confirmed_at,omitempty"`

	// Upstream-sourced fields, populated only on approval
	ReceiptNumber    string `json:"receipt_number,omitempty"`
	VerificationURL  string `json:"verification_url,omitempty"`
	ReceiptSignature string `json:"receipt_signature,omitempty"`
	DeviceSerial     string `json:"device_serial,omitempty"`

	Items []InvoiceItem `json:"items"`
}

// NewInvoice creates an invoice in pending status from already-computed
// line items. Totals are derived from the items; a caller-supplied total
// that disagrees with the line sums is rejected, never silently adjusted.
// The invoice number is not set here: the repository allocates it from the
// yearly sequence in the same transaction that inserts the invoice.
func NewInvoice(
	saleID uuid.UUID,
	buyerName string,
	buyerPIN string,
	paymentMethod PaymentMethod,
	invoiceDate time.Time,
	items []InvoiceItem,
) (*Invoice, error) {
	if saleID == uuid.Nil {
		return nil, shared.NewDomainError("ETIMS_INVALID_INVOICE", "Sale reference cannot be empty")
	}
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}
	if !paymentMethod.IsValid() {
		return nil, shared.NewDomainError("ETIMS_INVALID_INVOICE", "Invalid payment method")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SaleID:            saleID,
		BuyerName:         buyerName,
		BuyerPIN:          strings.ToUpper(strings.TrimSpace(buyerPIN)),
		InvoiceDate:       invoiceDate,
		PaymentMethod:     paymentMethod,
		Status:            SubmissionStatusPending,
		TotalBeforeTax:    decimal.Zero,
		TotalVAT:          decimal.Zero,
		TotalAmount:       decimal.Zero,
		Items:             make([]InvoiceItem, 0, len(items)),
	}

	for i, item := range items {
		if item.Sequence != i+1 {
			return nil, shared.NewDomainError("ETIMS_INVALID_INVOICE",
				fmt.Sprintf("Line sequence must be contiguous, expected %d got %d", i+1, item.Sequence))
		}
		if !item.VATCategory.IsValid() {
			return nil, ErrUnknownVATCategory
		}
		item.InvoiceID = inv.ID
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		inv.Items = append(inv.Items, item)
		inv.TotalBeforeTax = inv.TotalBeforeTax.Add(item.PreTaxAmount)
		inv.TotalVAT = inv.TotalVAT.Add(item.VATAmount)
		inv.TotalAmount = inv.TotalAmount.Add(item.TotalAmount)
	}

	if !inv.TotalBeforeTax.Add(inv.TotalVAT).Equal(inv.TotalAmount) {
		return nil, ErrTotalsMismatch
	}
	return inv, nil
}

// SetNote attaches the free-text remark carried into the payload
func (inv *Invoice) SetNote(note string) {
	inv.Note = note
	inv.UpdatedAt = time.Now()
}

// Breakdown re-aggregates the four-category VAT split from the stored
// items. The protocol client recomputes this at payload build time as a
// consistency cross-check.
func (inv *Invoice) Breakdown() (VATBreakdown, error) {
	b := NewVATBreakdown()
	for _, item := range inv.Items {
		if err := b.AddLine(item.VATCategory, item.PreTaxAmount, item.VATAmount); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// CanSubmit returns true if the invoice is eligible for a submission
// attempt: non-terminal and under the retry ceiling.
func (inv *Invoice) CanSubmit() bool {
	return inv.Status.CanClaim() && inv.RetryCount < MaxRetryCount
}

// Claim transitions pending|failed -> submitted. This is the in-memory
// half of the claim; the repository performs the equivalent conditional
// update so only one caller can win across processes.
func (inv *Invoice) Claim() error {
	if inv.Status.IsTerminal() {
		return ErrInvoiceFinalized
	}
	if inv.Status == SubmissionStatusSubmitted {
		return ErrSubmissionInProgress
	}
	if inv.RetryCount >= MaxRetryCount {
		return ErrRetryCeilingReached
	}
	now := time.Now()
	inv.Status = SubmissionStatusSubmitted
	inv.LastAttemptAt = &now
	inv.UpdatedAt = now
	return nil
}

// MarkApproved applies an upstream acceptance. The invoice becomes
// immutable except for the upstream-sourced fields set here.
func (inv *Invoice) MarkApproved(receiptNumber, verificationURL, signature, deviceSerial string) error {
	if inv.Status != SubmissionStatusSubmitted {
		return shared.ErrInvalidState
	}
	now := time.Now()
	inv.Status = SubmissionStatusApproved
	inv.ReceiptNumber = receiptNumber
	inv.VerificationURL = verificationURL
	inv.ReceiptSignature = signature
	inv.DeviceSerial = deviceSerial
	inv.LastError = ""
	inv.ConfirmedAt = &now
	inv.UpdatedAt = now
	return nil
}

// MarkRejected applies an upstream business rejection. Rejection is
// terminal and does not touch the retry count: a reported validation
// rejection means the document is wrong, not that retrying will help.
func (inv *Invoice) MarkRejected(upstreamMessage string) error {
	if inv.Status != SubmissionStatusSubmitted {
		return shared.ErrInvalidState
	}
	now := time.Now()
	inv.Status = SubmissionStatusRejected
	inv.LastError = upstreamMessage
	inv.UpdatedAt = now
	return nil
}

// MarkFailed applies a transport-level failure (timeout, connection error,
// malformed response, cancellation). Increments the retry count and leaves
// the invoice eligible for the next sweep while under the ceiling.
func (inv *Invoice) MarkFailed(errDetail string) error {
	if inv.Status != SubmissionStatusSubmitted {
		return shared.ErrInvalidState
	}
	now := time.Now()
	inv.Status = SubmissionStatusFailed
	inv.RetryCount++
	inv.LastError = errDetail
	inv.LastAttemptAt = &now
	inv.UpdatedAt = now
	return nil
}
