package advisor

import (
	"fmt"
	"strings"
)

// NewClient creates a raw advisor client based on the provided configuration.
// Provider "none" (or empty) returns nil: the bridge runs fallback-only, which
// is how the pipeline operates without an API key.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return newOpenAIClient(cfg)
	case "anthropic":
		return newAnthropicClient(cfg)
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported advisor provider: %s", cfg.Provider)
	}
}
