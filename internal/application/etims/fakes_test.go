package etims

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/dukapos/backend/internal/domain/etims"
)

// fakeInvoiceRepo is a stateful in-memory InvoiceRepository. Claim uses the
// same conditional-transition rule the SQL implementation enforces, which
// is what the concurrency tests exercise.
type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]*etims.Invoice
	nextSeq  int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[uuid.UUID]*etims.Invoice)}
}

func (r *fakeInvoiceRepo) CreateWithItems(_ context.Context, prefix string, invoice *etims.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	invoice.InvoiceNumber = fmt.Sprintf("%s-2026-%06d", prefix, r.nextSeq)
	clone := *invoice
	r.invoices[invoice.ID] = &clone
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*etims.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, etims.ErrInvoiceNotFound
	}
	clone := *inv
	return &clone, nil
}

func (r *fakeInvoiceRepo) FindBySaleID(_ context.Context, saleID uuid.UUID) (*etims.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.SaleID == saleID {
			clone := *inv
			return &clone, nil
		}
	}
	return nil, etims.ErrInvoiceNotFound
}

func (r *fakeInvoiceRepo) Claim(_ context.Context, id uuid.UUID) (*etims.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, etims.ErrInvoiceNotFound
	}
	if err := inv.Claim(); err != nil {
		return nil, err
	}
	clone := *inv
	return &clone, nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, invoice *etims.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[invoice.ID]; !ok {
		return etims.ErrInvoiceNotFound
	}
	clone := *invoice
	r.invoices[invoice.ID] = &clone
	return nil
}

func (r *fakeInvoiceRepo) FindEligibleForRetry(_ context.Context, limit int) ([]etims.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []etims.Invoice
	for _, inv := range r.invoices {
		if inv.CanSubmit() {
			out = append(out, *inv)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, _ etims.InvoiceFilter) ([]etims.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]etims.Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

// fakeConfigRepo is a stateful in-memory IntegrationConfigRepository
type fakeConfigRepo struct {
	mu     sync.Mutex
	config *etims.IntegrationConfig
}

func (r *fakeConfigRepo) Save(_ context.Context, config *etims.IntegrationConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *config
	r.config = &clone
	return nil
}

func (r *fakeConfigRepo) FindActive(_ context.Context) (*etims.IntegrationConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config == nil {
		return nil, etims.ErrNoActiveConfig
	}
	clone := *r.config
	return &clone, nil
}

func (r *fakeConfigRepo) Activate(_ context.Context, id uuid.UUID, deviceSerial string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.config == nil || r.config.ID != id {
		return etims.ErrNoActiveConfig
	}
	return r.config.Activate(deviceSerial)
}

// fakeProtocolClient returns scripted results and counts network attempts
type fakeProtocolClient struct {
	mu         sync.Mutex
	calls      int
	initResult *etims.InitializationResult
	initErr    error
	result     *etims.SubmissionResult
	submitErr  error
}

func (c *fakeProtocolClient) InitializeDevice(_ context.Context) (*etims.InitializationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.initErr != nil {
		return nil, c.initErr
	}
	return c.initResult, nil
}

func (c *fakeProtocolClient) SubmitInvoice(_ context.Context, _ *etims.Invoice) (*etims.SubmissionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.submitErr != nil {
		return nil, c.submitErr
	}
	return c.result, nil
}

func (c *fakeProtocolClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func fixedClientFactory(client etims.ProtocolClient) ClientFactory {
	return func(*etims.IntegrationConfig) (etims.ProtocolClient, error) {
		return client, nil
	}
}
