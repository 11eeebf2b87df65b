package advisor

import (
	"context"
	"time"

	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/transform"
)

// Client defines the interface for advisor providers.
type Client interface {
	Recommend(ctx context.Context, req Request) (Response, error)
}

// Request is the payload sent to the advisor. Providers embed it verbatim in
// the model prompt, so field names here are the wire contract.
type Request struct {
	Model              string           `json:"model"`
	DatasetProfile     ProfilePayload   `json:"datasetProfile"`
	SampleRows         []map[string]any `json:"sampleRows"`
	MaxRecommendations int              `json:"maxRecommendations"`
	Transformers       []transform.Spec `json:"transformers"`
}

// ProfilePayload is the wire form of a dataset profile.
type ProfilePayload struct {
	RowCount           int             `json:"rowCount"`
	ColumnCount        int             `json:"columnCount"`
	OverallMissingRate float64         `json:"overallMissingRate"`
	Columns            []ColumnPayload `json:"columns"`
}

// ColumnPayload is the wire form of one column profile.
type ColumnPayload struct {
	Name          string             `json:"name"`
	Type          model.ColumnType   `json:"type"`
	MissingRate   float64            `json:"missingRate"`
	DistinctCount int                `json:"distinctCount"`
	IDLike        bool               `json:"idLike,omitempty"`
	Min           *float64           `json:"min,omitempty"`
	Max           *float64           `json:"max,omitempty"`
	Mean          *float64           `json:"mean,omitempty"`
	Std           *float64           `json:"std,omitempty"`
	Median        *float64           `json:"median,omitempty"`
	Skew          *float64           `json:"skew,omitempty"`
	TopValues     []model.ValueCount `json:"topValues,omitempty"`
}

// Response is the advisor's reply. Candidates are untrusted until sanitized.
type Response struct {
	Recommendations []Candidate `json:"recommendations"`
}

// Candidate is one proposed transformation as the advisor phrased it.
type Candidate struct {
	Column      string         `json:"column"`
	Transformer string         `json:"transformer"`
	Params      map[string]any `json:"params,omitempty"`
	Rationale   string         `json:"rationale,omitempty"`
	Confidence  float64        `json:"confidence"`
}

// Config holds configuration for the advisor bridge.
type Config struct {
	Provider             string
	APIKey               string
	Model                string
	BaseURL              string
	MaxRetries           int
	RetryDelay           time.Duration
	Timeout              time.Duration
	CacheTTL             time.Duration
	RateLimit            int
	SampleSize           int
	MaxRecommendations   int
	HighMissingThreshold float64
	Outliers             bool
	Scaling              bool
	Temperature          float64
	MaxTokens            int
}

// profilePayload converts a dataset profile into its wire form.
func profilePayload(p model.DatasetProfile) ProfilePayload {
	cols := make([]ColumnPayload, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = ColumnPayload{
			Name:          c.Name,
			Type:          c.Type,
			MissingRate:   c.MissingRate,
			DistinctCount: c.DistinctCount,
			IDLike:        c.IDLike,
			Min:           c.Min,
			Max:           c.Max,
			Mean:          c.Mean,
			Std:           c.Std,
			Median:        c.Median,
			Skew:          c.Skew,
			TopValues:     c.TopValues,
		}
	}
	return ProfilePayload{
		RowCount:           p.RowCount,
		ColumnCount:        p.ColumnCount,
		OverallMissingRate: p.OverallMissingRate,
		Columns:            cols,
	}
}
