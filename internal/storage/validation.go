// Package storage provides the run persistence layer: a SQLite store for
// local use and a Postgres store for shared deployments, both behind
// service.Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/autoprep/internal/model"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
	ErrNilRun      = errors.New("run cannot be nil")
	ErrInvalidRun  = errors.New("invalid run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun ensures a run is structurally sound before it is written. Only
// terminal runs are persisted; a non-terminal status here is a caller bug.
func validateRun(run *model.PipelineRun) error {
	if run == nil {
		return ErrNilRun
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}
	if !run.Status.Terminal() {
		return fmt.Errorf("%w: refusing to persist non-terminal status %s", ErrInvalidRun, run.Status)
	}
	return nil
}
