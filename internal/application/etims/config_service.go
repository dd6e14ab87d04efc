package etims

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/dukapos/backend/internal/domain/etims"
)

// ConfigServiceImpl manages the business tax identity and performs the
// one-time device initialization against the upstream.
type ConfigServiceImpl struct {
	configRepo    etims.IntegrationConfigRepository
	clientFactory ClientFactory
	logger        *zap.Logger
}

// NewConfigService creates a new ConfigServiceImpl
func NewConfigService(
	configRepo etims.IntegrationConfigRepository,
	clientFactory ClientFactory,
	logger *zap.Logger,
) *ConfigServiceImpl {
	return &ConfigServiceImpl{
		configRepo:    configRepo,
		clientFactory: clientFactory,
		logger:        logger,
	}
}

// Setup creates the integration config, or replaces the current inactive
// one. An active config cannot be replaced: the tax identity is fixed once
// the device is registered.
func (s *ConfigServiceImpl) Setup(ctx context.Context, input SetupConfigInput) (*etims.IntegrationConfig, error) {
	current, err := s.configRepo.FindActive(ctx)
	if err != nil && !errors.Is(err, etims.ErrNoActiveConfig) {
		return nil, err
	}
	if current != nil && current.IsActive {
		return nil, etims.ErrAlreadyInitialized
	}

	config, err := etims.NewIntegrationConfig(input.BusinessName, input.TaxPIN, input.BranchID, input.Environment, input.Provider)
	if err != nil {
		return nil, err
	}
	if input.InvoicePrefix != "" {
		if err := config.SetInvoicePrefix(input.InvoicePrefix); err != nil {
			return nil, err
		}
	}
	if config.RequiresCredentials() {
		creds := etims.Credentials{AppID: input.AppID, AppKey: input.AppKey, AppSecret: input.AppSecret}
		if creds.IsZero() {
			return nil, etims.ErrMissingGatewayCredentials
		}
		config.SetCredentials(creds)
	}

	if err := s.configRepo.Save(ctx, config); err != nil {
		return nil, err
	}

	s.logger.Info("integration config saved",
		zap.String("tax_pin", config.TaxPIN),
		zap.String("environment", config.Environment.String()),
		zap.String("provider", config.Provider.String()))
	return config, nil
}

// GetConfig returns the current configuration
func (s *ConfigServiceImpl) GetConfig(ctx context.Context) (*etims.IntegrationConfig, error) {
	return s.configRepo.FindActive(ctx)
}

// UpdateSettings updates the behavior flags on the current config
func (s *ConfigServiceImpl) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (*etims.IntegrationConfig, error) {
	config, err := s.configRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	config.SetFeatureFlags(input.AutoSubmit, input.RequireNetworkOnSale, input.PrintVerificationCode)
	if err := s.configRepo.Save(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

// Initialize registers the device with the upstream and activates the
// integration. Activation happens exactly once: the repository's
// conditional update decides the winner when two initializations race.
func (s *ConfigServiceImpl) Initialize(ctx context.Context) (*etims.IntegrationConfig, error) {
	config, err := s.configRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if config.IsActive {
		return nil, etims.ErrAlreadyInitialized
	}

	client, err := s.clientFactory(config)
	if err != nil {
		return nil, err
	}

	result, err := client.InitializeDevice(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.configRepo.Activate(ctx, config.ID, result.DeviceSerial); err != nil {
		return nil, err
	}
	if err := config.Activate(result.DeviceSerial); err != nil {
		return nil, err
	}

	s.logger.Info("integration initialized",
		zap.String("device_serial", config.DeviceSerial),
		zap.String("environment", config.Environment.String()))
	return config, nil
}
