package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/dto"
	apartmentsapp "staybook/internal/app/handlers/apartments"
	"staybook/internal/app/queries"
	"staybook/internal/infra/config"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "migrate", "sweep", "export"})
	require.NotNil(t, root.PersistentFlags().Lookup("env-file"))
}

func testConfig(t *testing.T, driver string) config.Config {
	t.Helper()
	return config.Config{
		Env:                "test",
		StoreDriver:        driver,
		SQLitePath:         filepath.Join(t.TempDir(), "staybook.db"),
		IdempotencyTTL:     time.Hour,
		SessionTTL:         time.Hour,
		ContractsDir:       t.TempDir(),
		PublicBaseURL:      "http://localhost:8080",
		BusinessTZ:         time.UTC,
		Currency:           "EUR",
		ParkingWeeklyCents: 8000,
		NotifyWorkers:      1,
	}
}

func TestFixturesAreImportedThroughTheCommandBus(t *testing.T) {
	for _, driver := range []string{config.DriverMemory, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			ctx := context.Background()
			s, err := assemble(ctx, testConfig(t, driver), logger)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			require.NoError(t, s.platform.Migrate(ctx))

			path := filepath.Join(t.TempDir(), "apartments.json")
			require.NoError(t, os.WriteFile(path, []byte(`[
				{"id":"apt-sea","slug":"sea-view","name":"Sea View","changeover_day":"saturday","default_weekly_cents":100000,
				 "seasonal_rates":[{"week_start":"2026-12-19","price_cents":150000}]},
				{"id":"broken","slug":"Not A Slug","name":"Broken","changeover_day":"saturday","default_weekly_cents":100000}
			]`), 0o600))
			require.NoError(t, loadApartmentFixtures(systemContext(ctx), s.app.Commands, path, logger))

			list, err := queries.Ask[apartmentsapp.ListApartmentsQuery, dto.ApartmentCollection](ctx, s.app.Queries, apartmentsapp.ListApartmentsQuery{})
			require.NoError(t, err)
			require.Len(t, list.Items, 1)
			assert.Equal(t, "sea-view", list.Items[0].Slug)
		})
	}
}

func TestMissingFixturesFileIsSkipped(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.NoError(t, loadApartmentFixtures(context.Background(), nil, filepath.Join(t.TempDir(), "none.json"), logger))
}

func TestSeedOperatorAllowsLogin(t *testing.T) {
	cfg := testConfig(t, config.DriverMemory)
	cfg.AdminEmail = "desk@example.com"
	cfg.AdminPassword = "correct horse battery"
	s, err := assemble(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.seedOperator(context.Background()))
	require.NoError(t, s.seedOperator(context.Background()))
	assert.NotNil(t, s.files, "contracts fall back to the local directory")
}
