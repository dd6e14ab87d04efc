package etimsclient

import (
	"errors"
	"net/http"

	"github.com/dukapos/backend/internal/domain/etims"
)

// Upstream base URLs. The direct path has one base per environment; the
// gateway path uses a single provider base with header authentication but
// the identical body contract.
const (
	DirectSandboxBaseURL    = "https://etims-api-sbx.kra.go.ke/etims-api"
	DirectProductionBaseURL = "https://etims-api.kra.go.ke/etims-api"
	GatewayBaseURL          = "https://gateway.slade360.co.ke/v1/etims"

	VerifySandboxBaseURL    = "https://etims-sbx.kra.go.ke"
	VerifyProductionBaseURL = "https://etims.kra.go.ke"
)

// Upstream endpoint paths
const (
	pathInitializeDevice = "/initializer/selectInitInfo"
	pathSubmitSales      = "/trnsSales/saveSales"
)

// Errors for provider configuration
var (
	ErrMissingCredentials = errors.New("etims: gateway provider requires app id, key and secret")
	ErrUnknownProvider    = errors.New("etims: unknown upstream provider")
	ErrUnknownEnvironment = errors.New("etims: unknown environment")
)

// providerStrategy is the single place the direct-vs-gateway distinction
// lives. It is selected once from IntegrationConfig at client construction.
type providerStrategy interface {
	// BaseURL returns the upstream base URL for this path
	BaseURL() string
	// ApplyAuth attaches provider-specific authentication headers
	ApplyAuth(req *http.Request)
}

// directProvider addresses the tax authority's own endpoint. No headers
// beyond content negotiation; identity travels in the body.
type directProvider struct {
	baseURL string
}

func (p *directProvider) BaseURL() string             { return p.baseURL }
func (p *directProvider) ApplyAuth(req *http.Request) {}

// gatewayProvider addresses an intermediary gateway that authenticates
// with an application/key/secret header triple.
type gatewayProvider struct {
	baseURL     string
	credentials etims.Credentials
}

func (p *gatewayProvider) BaseURL() string { return p.baseURL }

func (p *gatewayProvider) ApplyAuth(req *http.Request) {
	req.Header.Set("x-app-id", p.credentials.AppID)
	req.Header.Set("x-app-key", p.credentials.AppKey)
	req.Header.Set("x-app-secret", p.credentials.AppSecret)
}

// selectProvider builds the strategy for the configured provider and
// environment. An override base URL (used in tests) replaces the published
// base without changing the auth shape.
func selectProvider(config *etims.IntegrationConfig, overrideBaseURL string) (providerStrategy, error) {
	switch config.Provider {
	case etims.ProviderDirect:
		base := overrideBaseURL
		if base == "" {
			switch config.Environment {
			case etims.EnvironmentSandbox:
				base = DirectSandboxBaseURL
			case etims.EnvironmentProduction:
				base = DirectProductionBaseURL
			default:
				return nil, ErrUnknownEnvironment
			}
		}
		return &directProvider{baseURL: base}, nil

	case etims.ProviderGateway:
		if config.Credentials.IsZero() {
			return nil, ErrMissingCredentials
		}
		base := overrideBaseURL
		if base == "" {
			base = GatewayBaseURL
		}
		return &gatewayProvider{baseURL: base, credentials: config.Credentials}, nil

	default:
		return nil, ErrUnknownProvider
	}
}

// verifyBaseURL returns the public receipt-verification base for the
// environment
func verifyBaseURL(env etims.Environment) string {
	if env == etims.EnvironmentProduction {
		return VerifyProductionBaseURL
	}
	return VerifySandboxBaseURL
}
