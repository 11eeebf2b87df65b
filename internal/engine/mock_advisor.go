package engine

import (
	"context"

	"github.com/Veraticus/autoprep/internal/advisor"
	"github.com/Veraticus/autoprep/internal/common"
	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/service"
)

// MockAdvisor is a scripted Advisor for tests. It returns the configured
// advice or error on every call and records what it was asked.
type MockAdvisor struct {
	Advice advisor.Advice
	Err    error

	Calls    int
	Profiles []model.DatasetProfile
}

// Advise returns the scripted advice.
func (m *MockAdvisor) Advise(_ context.Context, profile model.DatasetProfile, _ model.Dataset) (advisor.Advice, error) {
	m.Calls++
	m.Profiles = append(m.Profiles, profile)
	if m.Err != nil {
		return advisor.Advice{}, m.Err
	}
	return m.Advice, nil
}

// MockStorage records saved runs for tests. Only the methods the orchestrator
// touches are meaningful; the rest satisfy service.Storage.
type MockStorage struct {
	Saved   []*model.PipelineRun
	SaveErr error
}

// SaveRun records the run.
func (m *MockStorage) SaveRun(_ context.Context, run *model.PipelineRun) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saved = append(m.Saved, run)
	return nil
}

// GetRun is unused by the orchestrator.
func (m *MockStorage) GetRun(_ context.Context, id string) (*model.PipelineRun, error) {
	for _, run := range m.Saved {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, common.ErrNotFound
}

// ListRuns is unused by the orchestrator.
func (m *MockStorage) ListRuns(_ context.Context, _ service.RunFilter) ([]model.PipelineRun, error) {
	runs := make([]model.PipelineRun, 0, len(m.Saved))
	for _, run := range m.Saved {
		runs = append(runs, *run)
	}
	return runs, nil
}

// DeleteRun is unused by the orchestrator.
func (m *MockStorage) DeleteRun(_ context.Context, _ string) error { return nil }

// Migrate is a no-op.
func (m *MockStorage) Migrate(_ context.Context) error { return nil }

// Close is a no-op.
func (m *MockStorage) Close() error { return nil }
