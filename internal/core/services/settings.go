package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment overrides for config keys.
// "pipeline.max_chunk_size" is overridden by TIJDLIJN_PIPELINE_MAX_CHUNK_SIZE.
const EnvPrefix = "TIJDLIJN_"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyLLMProvider = "llm.provider"
	keyLLMModel    = "llm.model"
	keyLLMBaseURL  = "llm.base_url"
	keyLLMAPIKey   = "llm.api_key"

	keyMaxChunkSize      = "pipeline.max_chunk_size"
	keyChunkOverlap      = "pipeline.chunk_overlap"
	keyMaxRetryAttempts  = "pipeline.max_retry_attempts"
	keyBackoffBase       = "pipeline.backoff_base"
	keyConcurrencyLimit  = "pipeline.concurrency_limit"
	keyDateGranularity   = "pipeline.date_granularity"
	keySizeUnit          = "pipeline.size_unit"
	keyMaxSummarySize    = "pipeline.max_summary_size"
	keyTemperature       = "pipeline.temperature"
	keyRequestsPerMinute = "pipeline.requests_per_minute"
	keyRepositoryRetries = "pipeline.repository_retries"
	keyDescribeTimeline  = "pipeline.describe_timeline"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	p := defaults.Pipeline

	settings := &domain.AppSettings{
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.getString(keyLLMBaseURL, ""), // empty is valid for cloud providers
			APIKey:   s.getString(keyLLMAPIKey, ""),
		},
		Pipeline: domain.PipelineConfig{
			MaxChunkSize:      s.getInt(keyMaxChunkSize, p.MaxChunkSize),
			ChunkOverlap:      s.getInt(keyChunkOverlap, p.ChunkOverlap),
			MaxRetryAttempts:  s.getInt(keyMaxRetryAttempts, p.MaxRetryAttempts),
			BackoffBase:       s.getDuration(keyBackoffBase, p.BackoffBase),
			ConcurrencyLimit:  s.getInt(keyConcurrencyLimit, p.ConcurrencyLimit),
			DateGranularity:   s.getGranularity(p.DateGranularity),
			SizeUnit:          s.getSizeUnit(p.SizeUnit),
			MaxSummarySize:    s.getInt(keyMaxSummarySize, p.MaxSummarySize),
			Temperature:       s.getFloat(keyTemperature, p.Temperature),
			RequestsPerMinute: s.getInt(keyRequestsPerMinute, p.RequestsPerMinute),
			RepositoryRetries: s.getInt(keyRepositoryRetries, p.RepositoryRetries),
			DescribeTimeline:  s.getBool(keyDescribeTimeline, p.DescribeTimeline),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.configStore.Set(keyLLMProvider, settings.LLM.Provider.String()); err != nil {
		return fmt.Errorf("save llm provider: %w", err)
	}
	if err := s.configStore.Set(keyLLMModel, settings.LLM.Model); err != nil {
		return fmt.Errorf("save llm model: %w", err)
	}
	if err := s.configStore.Set(keyLLMBaseURL, settings.LLM.BaseURL); err != nil {
		return fmt.Errorf("save llm base_url: %w", err)
	}
	if settings.LLM.APIKey != "" {
		if err := s.configStore.Set(keyLLMAPIKey, settings.LLM.APIKey); err != nil {
			return fmt.Errorf("save llm api_key: %w", err)
		}
	}

	return s.savePipeline(settings.Pipeline)
}

func (s *SettingsService) savePipeline(cfg domain.PipelineConfig) error {
	values := []struct {
		key   string
		value any
	}{
		{keyMaxChunkSize, cfg.MaxChunkSize},
		{keyChunkOverlap, cfg.ChunkOverlap},
		{keyMaxRetryAttempts, cfg.MaxRetryAttempts},
		{keyBackoffBase, cfg.BackoffBase.String()},
		{keyConcurrencyLimit, cfg.ConcurrencyLimit},
		{keyDateGranularity, cfg.DateGranularity.String()},
		{keySizeUnit, cfg.SizeUnit.String()},
		{keyMaxSummarySize, cfg.MaxSummarySize},
		{keyTemperature, cfg.Temperature},
		{keyRequestsPerMinute, cfg.RequestsPerMinute},
		{keyRepositoryRetries, cfg.RepositoryRetries},
		{keyDescribeTimeline, cfg.DescribeTimeline},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetPipeline validates and stores the pipeline configuration.
func (s *SettingsService) SetPipeline(cfg domain.PipelineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.savePipeline(cfg)
}

// Validate checks that the pipeline configuration is usable and a
// completion provider is configured.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Pipeline.Validate(); err != nil {
		return err
	}

	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider is not configured (run 'tijdlijn settings llm')",
			domain.ErrLLMUnavailable)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.
// Environment variables take precedence over the config file.

// EnvKey returns the environment variable that overrides a config key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (s *SettingsService) env(key string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	val, ok := s.lookupEnv(EnvKey(key))
	if !ok || strings.TrimSpace(val) == "" {
		return "", false
	}
	return strings.TrimSpace(val), true
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val, ok := s.env(key); ok {
		return val
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if val, ok := s.env(key); ok {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		return defaultVal
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if val, ok := s.env(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		return defaultVal
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if val, ok := s.env(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return defaultVal
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

// getDuration reads a duration string like "2s" or "500ms".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.getString(key, "")
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.getString(key, ""))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getGranularity(defaultVal domain.DateGranularity) domain.DateGranularity {
	g := domain.DateGranularity(s.getString(keyDateGranularity, ""))
	if !g.IsValid() {
		return defaultVal
	}
	return g
}

func (s *SettingsService) getSizeUnit(defaultVal domain.SizeUnit) domain.SizeUnit {
	u := domain.SizeUnit(s.getString(keySizeUnit, ""))
	if !u.IsValid() {
		return defaultVal
	}
	return u
}
