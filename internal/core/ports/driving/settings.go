package driving

import "github.com/custodia-labs/tijdlijn/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetLLMProvider configures the completion provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// SetPipeline validates and stores the pipeline configuration.
	SetPipeline(cfg domain.PipelineConfig) error

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
	ValidateLLMConfig() error
}
