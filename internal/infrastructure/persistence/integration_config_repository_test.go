package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukapos/backend/internal/domain/etims"
)

func newTestIntegrationConfig(t *testing.T) *etims.IntegrationConfig {
	t.Helper()
	config, err := etims.NewIntegrationConfig(
		"Duka Traders Ltd",
		"P051234567A",
		"00",
		etims.EnvironmentSandbox,
		etims.ProviderDirect,
	)
	require.NoError(t, err)
	return config
}

func TestIntegrationConfigRepository_SaveAndFindActive(t *testing.T) {
	db := setupEtimsTestDB(t)
	repo := NewGormIntegrationConfigRepository(db)
	ctx := context.Background()

	t.Run("no config reports no active config", func(t *testing.T) {
		_, err := repo.FindActive(ctx)
		assert.ErrorIs(t, err, etims.ErrNoActiveConfig)
	})

	t.Run("inactive config is still findable for inspection", func(t *testing.T) {
		config := newTestIntegrationConfig(t)
		require.NoError(t, repo.Save(ctx, config))

		found, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, config.ID, found.ID)
		assert.False(t, found.IsActive)
		assert.Equal(t, "P051234567A", found.TaxPIN)
		assert.Equal(t, "INV", found.InvoicePrefix)
	})

	t.Run("active config wins over a newer inactive one", func(t *testing.T) {
		active := newTestIntegrationConfig(t)
		require.NoError(t, active.Activate("OSCU-SERIAL-1"))
		require.NoError(t, repo.Save(ctx, active))

		newer := newTestIntegrationConfig(t)
		require.NoError(t, repo.Save(ctx, newer))

		found, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, active.ID, found.ID)
		assert.True(t, found.IsActive)
		assert.Equal(t, "OSCU-SERIAL-1", found.DeviceSerial)
	})

	t.Run("save round-trips gateway credentials", func(t *testing.T) {
		db := setupEtimsTestDB(t)
		repo := NewGormIntegrationConfigRepository(db)

		config, err := etims.NewIntegrationConfig(
			"Duka Traders Ltd", "P051234567A", "00",
			etims.EnvironmentProduction, etims.ProviderGateway,
		)
		require.NoError(t, err)
		config.SetCredentials(etims.Credentials{AppID: "app-1", AppKey: "key-1", AppSecret: "secret-1"})
		require.NoError(t, repo.Save(ctx, config))

		found, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, etims.ProviderGateway, found.Provider)
		assert.Equal(t, "app-1", found.Credentials.AppID)
		assert.Equal(t, "secret-1", found.Credentials.AppSecret)
	})
}

func TestIntegrationConfigRepository_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("activates an inactive config", func(t *testing.T) {
		db := setupEtimsTestDB(t)
		repo := NewGormIntegrationConfigRepository(db)

		config := newTestIntegrationConfig(t)
		require.NoError(t, repo.Save(ctx, config))

		err := repo.Activate(ctx, config.ID, "OSCU-SERIAL-9")
		require.NoError(t, err)

		found, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.True(t, found.IsActive)
		assert.Equal(t, "OSCU-SERIAL-9", found.DeviceSerial)
		assert.NotNil(t, found.ActivatedAt)
	})

	t.Run("second activation loses the conditional update", func(t *testing.T) {
		db := setupEtimsTestDB(t)
		repo := NewGormIntegrationConfigRepository(db)

		config := newTestIntegrationConfig(t)
		require.NoError(t, repo.Save(ctx, config))
		require.NoError(t, repo.Activate(ctx, config.ID, "OSCU-SERIAL-9"))

		err := repo.Activate(ctx, config.ID, "OSCU-SERIAL-10")
		assert.ErrorIs(t, err, etims.ErrAlreadyInitialized)

		// the losing serial must not overwrite the winner's
		found, err := repo.FindActive(ctx)
		require.NoError(t, err)
		assert.Equal(t, "OSCU-SERIAL-9", found.DeviceSerial)
	})

	t.Run("unknown config reports no active config", func(t *testing.T) {
		db := setupEtimsTestDB(t)
		repo := NewGormIntegrationConfigRepository(db)

		err := repo.Activate(ctx, uuid.New(), "OSCU-SERIAL-9")
		assert.ErrorIs(t, err, etims.ErrNoActiveConfig)
	})
}
