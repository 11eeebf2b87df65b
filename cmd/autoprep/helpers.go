package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/autoprep/internal/advisor"
	"github.com/Veraticus/autoprep/internal/config"
	"github.com/Veraticus/autoprep/internal/engine"
	"github.com/Veraticus/autoprep/internal/ingest"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/profile"
	"github.com/Veraticus/autoprep/internal/service"
	"github.com/Veraticus/autoprep/internal/storage"
	"github.com/Veraticus/autoprep/internal/transform"
)

// openStorage opens the run store named by dsn. A postgres:// or
// postgresql:// DSN selects Postgres; anything else is treated as a SQLite
// file path. Migrations run before the store is returned.
func openStorage(ctx context.Context, dsn string) (service.Storage, error) {
	var (
		store service.Storage
		err   error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		store, err = storage.NewPostgresStorage(ctx, dsn)
	} else {
		store, err = storage.NewSQLiteStorage(config.ExpandPath(dsn))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}
	return store, nil
}

// buildOrchestrator wires the profiler, advisor bridge, and transformer
// catalog into an orchestrator. Optional collaborators come in through opts.
func buildOrchestrator(logger *slog.Logger, opts engine.Options) (*engine.PipelineOrchestrator, error) {
	registry := transform.DefaultRegistry()

	bridge, err := advisor.NewBridge(config.LoadAdvisorConfig(), registry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create advisor: %w", err)
	}

	if opts.Logger == nil {
		opts.Logger = logger
	}
	return engine.NewWithOptions(profile.NewProfiler(logger), bridge, registry, opts), nil
}

// readDataset loads a dataset from path, dispatching on the file extension:
// .ofx and .qfx go through the OFX reader, everything else is CSV.
func readDataset(path string) (model.Dataset, error) {
	f, err := os.Open(path) // #nosec G304 -- user-supplied input file
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	return readDatasetFrom(f, filepath.Base(path))
}

func readDatasetFrom(r io.Reader, name string) (model.Dataset, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ofx", ".qfx":
		return ingest.ReadOFX(r, name)
	default:
		return ingest.ReadCSV(r, name)
	}
}

// parsePolicy maps the --policy flag to a failure policy.
func parsePolicy(s string) (model.FailurePolicy, error) {
	policy := model.FailurePolicy(s)
	if !policy.Valid() {
		return "", fmt.Errorf("invalid failure policy %q (want %q or %q)",
			s, model.PolicyContinue, model.PolicyFailFast)
	}
	return policy, nil
}
