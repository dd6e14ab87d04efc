package etims

import (
	"strings"
	"time"

	"github.com/dukapos/backend/internal/domain/shared"
)

// Environment selects the upstream tax-authority environment
type Environment string

const (
	EnvironmentSandbox    Environment = "SANDBOX"
	EnvironmentProduction Environment = "PRODUCTION"
)

// IsValid checks if the environment is valid
func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// Provider selects the upstream integration path
type Provider string

const (
	// ProviderDirect submits straight to the tax authority's OSCU endpoint
	ProviderDirect Provider = "DIRECT"
	// ProviderGateway submits through an intermediary gateway with
	// application/key/secret header authentication
	ProviderGateway Provider = "GATEWAY"
)

// IsValid checks if the provider is valid
func (p Provider) IsValid() bool {
	return p == ProviderDirect || p == ProviderGateway
}

// String returns the string representation of Provider
func (p Provider) String() string {
	return string(p)
}

// Credentials is the opaque secret bundle for the gateway path.
// The direct path carries no credentials beyond the tax PIN in the body.
type Credentials struct {
	AppID     string `json:"app_id"`
	AppKey    string `json:"app_key"`
	AppSecret string `json:"app_secret"`
}

// IsZero returns true if no credentials are set
func (c Credentials) IsZero() bool {
	return c.AppID == "" && c.AppKey == "" && c.AppSecret == ""
}

// IntegrationConfig is the business tax identity and environment selector.
// Exactly one config is active per business; configs are superseded, never
// deleted. The engine only reads it; administrators write it.
type IntegrationConfig struct {
	shared.BaseAggregateRoot
	BusinessName  string
	TaxPIN        string
	BranchID      string
	Environment   Environment
	Provider      Provider
	Credentials   Credentials
	InvoicePrefix string
	DeviceSerial  string

	// IsActive flips to true exactly once, when device initialization
	// succeeds against the upstream.
	IsActive    bool
	ActivatedAt *time.Time

	// Feature flags
	AutoSubmit            bool
	RequireNetworkOnSale  bool
	PrintVerificationCode bool
}

// NewIntegrationConfig creates a new, inactive integration config
func NewIntegrationConfig(
	businessName string,
	taxPIN string,
	branchID string,
	env Environment,
	provider Provider,
) (*IntegrationConfig, error) {
	if strings.TrimSpace(businessName) == "" {
		return nil, shared.NewDomainError("ETIMS_INVALID_CONFIG", "Business name cannot be empty")
	}
	if strings.TrimSpace(taxPIN) == "" {
		return nil, shared.NewDomainError("ETIMS_INVALID_CONFIG", "Tax PIN cannot be empty")
	}
	if strings.TrimSpace(branchID) == "" {
		return nil, shared.NewDomainError("ETIMS_INVALID_CONFIG", "Branch ID cannot be empty")
	}
	if !env.IsValid() {
		return nil, shared.NewDomainError("ETIMS_INVALID_CONFIG", "Invalid environment")
	}
	if !provider.IsValid() {
		return nil, shared.NewDomainError("ETIMS_INVALID_CONFIG", "Invalid provider")
	}

	return &IntegrationConfig{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BusinessName:      businessName,
		TaxPIN:            strings.ToUpper(strings.TrimSpace(taxPIN)),
		BranchID:          strings.TrimSpace(branchID),
		Environment:       env,
		Provider:          provider,
		InvoicePrefix:     "INV",
		IsActive:          false,
	}, nil
}

// SetCredentials attaches the gateway credential bundle.
// Required before activation when the provider is the gateway path.
func (c *IntegrationConfig) SetCredentials(creds Credentials) {
	c.Credentials = creds
	c.UpdatedAt = time.Now()
}

// SetInvoicePrefix overrides the invoice number prefix
func (c *IntegrationConfig) SetInvoicePrefix(prefix string) error {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return shared.NewDomainError("ETIMS_INVALID_CONFIG", "Invoice prefix cannot be empty")
	}
	c.InvoicePrefix = prefix
	c.UpdatedAt = time.Now()
	return nil
}

// SetFeatureFlags updates the behavior flags
func (c *IntegrationConfig) SetFeatureFlags(autoSubmit, requireNetworkOnSale, printVerificationCode bool) {
	c.AutoSubmit = autoSubmit
	c.RequireNetworkOnSale = requireNetworkOnSale
	c.PrintVerificationCode = printVerificationCode
	c.UpdatedAt = time.Now()
}

// Activate marks the integration active with the upstream-assigned device
// serial. Activation happens exactly once; a second attempt is a conflict.
// The persistence layer enforces the same rule with a conditional update so
// two concurrent initializations cannot both win.
func (c *IntegrationConfig) Activate(deviceSerial string) error {
	if c.IsActive {
		return ErrAlreadyInitialized
	}
	if strings.TrimSpace(deviceSerial) == "" {
		return shared.NewDomainError("ETIMS_INVALID_CONFIG", "Device serial cannot be empty")
	}
	now := time.Now()
	c.DeviceSerial = deviceSerial
	c.IsActive = true
	c.ActivatedAt = &now
	c.UpdatedAt = now
	return nil
}

// CanSubmit returns true if the integration may submit invoices
func (c *IntegrationConfig) CanSubmit() bool {
	return c.IsActive
}

// RequiresCredentials returns true if the provider path needs the
// credential bundle to authenticate
func (c *IntegrationConfig) RequiresCredentials() bool {
	return c.Provider == ProviderGateway
}
