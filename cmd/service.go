package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/face-attend/internal/attendance"
	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	_ "github.com/kozaktomas/face-attend/internal/database/memory"
	_ "github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/database/sqlite"
)

// loadConfig reads the environment and applies the persistent --data flag.
func loadConfig() *config.Config {
	cfg := config.Load()
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	return cfg
}

// openStores connects the storage backend named by the configuration. A
// backend that cannot be opened degrades to an empty in-memory store inside
// database.Open, so commands keep working through a storage outage instead
// of crashing.
func openStores(ctx context.Context, cfg *config.Config) (*database.Stores, error) {
	stores, err := database.Open(ctx, database.Options{
		Backend:      cfg.Storage.Backend,
		Path:         filepath.Join(cfg.Storage.DataDir, sqlite.DefaultFile),
		URL:          cfg.Storage.DatabaseURL,
		Dim:          cfg.ModelProfile().Dim,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return stores, nil
}

// newService assembles the attendance service: the embedding sidecar client,
// the optional kiosk camera and the model profile driving embedding length
// and match threshold.
func newService(cfg *config.Config, stores *database.Stores) *attendance.Service {
	profile := cfg.ModelProfile()

	var camera *capture.Camera
	if cfg.Camera.URL != "" {
		camera = capture.NewCamera(cfg.Camera.URL)
	}

	return attendance.New(stores.Registry, stores.Ledger, attendance.Options{
		Detector:  capture.NewClient(cfg.Embedding.URL, cfg.Embedding.Model),
		Camera:    camera,
		Model:     cfg.Embedding.Model,
		Dim:       profile.Dim,
		Threshold: profile.Threshold,
	})
}

// openService is the one-stop wiring used by most commands. Callers must
// Close the returned stores.
func openService(ctx context.Context) (*attendance.Service, *database.Stores, error) {
	cfg := loadConfig()
	stores, err := openStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return newService(cfg, stores), stores, nil
}

// outputJSON prints data as indented JSON to stdout.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
