package config

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/autoprep/internal/advisor"
)

// LoadAdvisorConfig builds the advisor configuration from Viper keys under
// "advisor.", falling back to conventional environment variables for API
// keys. An empty provider means the rule-based fallback runs alone.
func LoadAdvisorConfig() advisor.Config {
	cfg := advisor.Config{
		Provider:             viper.GetString("advisor.provider"),
		APIKey:               viper.GetString("advisor.api_key"),
		Model:                viper.GetString("advisor.model"),
		BaseURL:              viper.GetString("advisor.base_url"),
		MaxRetries:           viper.GetInt("advisor.max_retries"),
		RateLimit:            viper.GetInt("advisor.rate_limit"),
		SampleSize:           viper.GetInt("advisor.sample_size"),
		MaxRecommendations:   viper.GetInt("advisor.max_recommendations"),
		HighMissingThreshold: viper.GetFloat64("advisor.high_missing_threshold"),
		Temperature:          viper.GetFloat64("advisor.temperature"),
		MaxTokens:            viper.GetInt("advisor.max_tokens"),
		Outliers:             true,
		Scaling:              true,
	}

	if viper.IsSet("advisor.outliers") {
		cfg.Outliers = viper.GetBool("advisor.outliers")
	}
	if viper.IsSet("advisor.scaling") {
		cfg.Scaling = viper.GetBool("advisor.scaling")
	}

	if v := viper.GetDuration("advisor.timeout"); v > 0 {
		cfg.Timeout = v
	}
	if v := viper.GetDuration("advisor.retry_delay"); v > 0 {
		cfg.RetryDelay = v
	}
	if v := viper.GetDuration("advisor.cache_ttl"); v > 0 {
		cfg.CacheTTL = v
	} else {
		cfg.CacheTTL = 15 * time.Minute
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	return cfg
}
