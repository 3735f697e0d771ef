package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/shopkeep/internal/advisory"
	"github.com/Veraticus/shopkeep/internal/common"
	"github.com/Veraticus/shopkeep/internal/llm"
	"github.com/Veraticus/shopkeep/internal/model"
	"github.com/Veraticus/shopkeep/internal/search"
)

// Provider API key environment variables, read when the config has no key.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvTavilyKey    = "TAVILY_API_KEY"
)

// SearchProviderTavily is the only supported search provider.
const SearchProviderTavily = "tavily"

// SetDefaults registers default values for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", llm.ProviderGemini)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("search.provider", SearchProviderTavily)
	v.SetDefault("search.depth", search.DepthAdvanced)
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.max_sources_per_task", 3)
	v.SetDefault("search.rate_limit", 60)
	v.SetDefault("search.cache_ttl", 15*time.Minute)
	v.SetDefault("search.timeout", 30*time.Second)
	v.SetDefault("search.max_retries", 3)
	v.SetDefault("search.retry_delay", time.Second)

	v.SetDefault("advisory.degraded_mode", true)
	v.SetDefault("advisory.currency", advisory.DefaultCurrency)
	v.SetDefault("report.currency", "₹")
	v.SetDefault("business.type", model.DefaultBusinessType)
}

// LoadLLMConfig builds the LLM client configuration. The API key comes from
// llm.api_key, then from the provider's environment variable.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	cfg := llm.Config{
		Provider:    strings.ToLower(v.GetString("llm.provider")),
		Model:       v.GetString("llm.model"),
		APIKey:      v.GetString("llm.api_key"),
		BaseURL:     v.GetString("llm.base_url"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		RetryDelay:  v.GetDuration("llm.retry_delay"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Timeout:     v.GetDuration("llm.timeout"),
	}

	var envKey string
	switch cfg.Provider {
	case llm.ProviderOpenAI:
		envKey = EnvOpenAIKey
	case llm.ProviderAnthropic:
		envKey = EnvAnthropicKey
	case llm.ProviderGemini, "":
		cfg.Provider = llm.ProviderGemini
		envKey = EnvGeminiKey
	default:
		return llm.Config{}, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envKey)
	}
	if cfg.APIKey == "" {
		return llm.Config{}, fmt.Errorf("%w: %s API key not found in config or %s environment variable",
			common.ErrMissingConfig, cfg.Provider, envKey)
	}

	return cfg, nil
}

// SearchConfig configures web research.
type SearchConfig struct {
	Tavily            search.TavilyConfig
	CacheTTL          time.Duration
	RetryDelay        time.Duration
	MaxSourcesPerTask int
	RateLimit         int
	MaxRetries        int
}

// LoadSearchConfig builds the search configuration. The API key comes from
// search.api_key, then from TAVILY_API_KEY.
func LoadSearchConfig(v *viper.Viper) (SearchConfig, error) {
	provider := strings.ToLower(v.GetString("search.provider"))
	if provider != "" && provider != SearchProviderTavily {
		return SearchConfig{}, fmt.Errorf("%w: unsupported search provider: %s", common.ErrInvalidConfig, provider)
	}

	cfg := SearchConfig{
		Tavily: search.TavilyConfig{
			APIKey:     v.GetString("search.api_key"),
			BaseURL:    v.GetString("search.base_url"),
			Depth:      v.GetString("search.depth"),
			MaxResults: v.GetInt("search.max_results"),
			Timeout:    v.GetDuration("search.timeout"),
		},
		CacheTTL:          v.GetDuration("search.cache_ttl"),
		RetryDelay:        v.GetDuration("search.retry_delay"),
		MaxRetries:        v.GetInt("search.max_retries"),
		MaxSourcesPerTask: v.GetInt("search.max_sources_per_task"),
		RateLimit:         v.GetInt("search.rate_limit"),
	}

	switch cfg.Tavily.Depth {
	case "", search.DepthBasic, search.DepthAdvanced:
	default:
		return SearchConfig{}, fmt.Errorf("%w: search depth %q", common.ErrInvalidConfig, cfg.Tavily.Depth)
	}

	if cfg.Tavily.APIKey == "" {
		cfg.Tavily.APIKey = os.Getenv(EnvTavilyKey)
	}
	if cfg.Tavily.APIKey == "" {
		return SearchConfig{}, fmt.Errorf("%w: Tavily API key not found in config or %s environment variable",
			common.ErrMissingConfig, EnvTavilyKey)
	}

	return cfg, nil
}

// AdvisoryConfig controls degraded mode and prompt settings.
type AdvisoryConfig struct {
	PayloadPath  string
	Currency     string
	DegradedMode bool
}

// LoadAdvisoryConfig reads the advisory settings.
func LoadAdvisoryConfig(v *viper.Viper) AdvisoryConfig {
	return AdvisoryConfig{
		DegradedMode: v.GetBool("advisory.degraded_mode"),
		PayloadPath:  ExpandPath(v.GetString("advisory.degraded_payload")),
		Currency:     v.GetString("advisory.currency"),
	}
}
