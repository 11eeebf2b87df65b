// Package report renders finalized pipeline runs for people and machines.
// Runs handed to a renderer are read-only history; renderers never modify
// them.
package report

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/Veraticus/autoprep/internal/model"
)

// ErrNilRun is returned when a renderer receives a nil run.
var ErrNilRun = errors.New("run cannot be nil")

// Renderer writes a finalized run to w.
type Renderer interface {
	Render(w io.Writer, run *model.PipelineRun) error
}

// JSONRenderer writes the run as an indented JSON artifact, suitable for
// audit trails and downstream tooling.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSON renderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Render writes the run as JSON.
func (r *JSONRenderer) Render(w io.Writer, run *model.PipelineRun) error {
	if run == nil {
		return ErrNilRun
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}
