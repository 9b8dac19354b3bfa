package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tijdlijn/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the LLM provider and the processing pipeline.

Settings are stored in ~/.tijdlijn/config.toml and can be overridden with
TIJDLIJN_* environment variables (e.g. TIJDLIJN_LLM_API_KEY).`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long: `Configure the LLM provider used to summarise documents and timeline entries.

Without flags an interactive prompt is shown. With --provider the settings
are applied directly:

  tijdlijn settings llm --provider mistral --api-key $MISTRAL_API_KEY`,
	RunE: runSettingsLLM,
}

var settingsPipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Configure the processing pipeline",
	Long: `Set chunking, retry, concurrency and grouping options.
Only the flags given are changed. Without flags the current values are shown.`,
	RunE: runSettingsPipeline,
}

// pipelineFlags are the flags of the pipeline command.
var pipelineFlags = []string{
	"max-chunk-size", "chunk-overlap", "max-retry-attempts", "backoff-base",
	"concurrency", "granularity", "size-unit", "max-summary-size",
	"temperature", "requests-per-minute", "repository-retries", "describe",
}

// Flags for the llm command.
var (
	llmProvider string
	llmModel    string
	llmAPIKey   string
)

func init() {
	settingsLLMCmd.Flags().StringVar(&llmProvider, "provider", "", "Provider (ollama, openai, anthropic, mistral)")
	settingsLLMCmd.Flags().StringVar(&llmModel, "model", "", "Model name (default depends on provider)")
	settingsLLMCmd.Flags().StringVar(&llmAPIKey, "api-key", "", "API key for hosted providers")

	f := settingsPipelineCmd.Flags()
	f.Int("max-chunk-size", 0, "Largest chunk, in the size unit")
	f.Int("chunk-overlap", 0, "Context carried into the next chunk, in the size unit")
	f.Int("max-retry-attempts", 0, "Attempts per completion call")
	f.Duration("backoff-base", 0, "First retry delay, doubled on each retry")
	f.Int("concurrency", 0, "Documents and completion calls in flight")
	f.String("granularity", "", "Timeline grouping (day, month, year)")
	f.String("size-unit", "", "Unit for sizes (chars, tokens)")
	f.Int("max-summary-size", 0, "Requested summary size, in the size unit")
	f.Float64("temperature", 0, "Sampling temperature")
	f.Int("requests-per-minute", 0, "Completion rate limit (0 = unlimited)")
	f.Int("repository-retries", 0, "Attempts per database call")
	f.Bool("describe", true, "Generate a timeline introduction")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsPipelineCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[LLM]")
	if settings.LLM.Provider == "" {
		cmd.Println("  Provider: (not set)")
	} else {
		cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
		cmd.Printf("  Model: %s\n", settings.LLM.Model)
	}
	if settings.LLM.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		if settings.LLM.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.LLM.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !settings.LLM.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	printPipeline(cmd, settings.Pipeline)

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings valid.")
	}
	return nil
}

func printPipeline(cmd *cobra.Command, p domain.PipelineConfig) {
	rpm := "unlimited"
	if p.RequestsPerMinute > 0 {
		rpm = strconv.Itoa(p.RequestsPerMinute)
	}

	cmd.Println("[Pipeline]")
	cmd.Printf("  Max chunk size: %d %s\n", p.MaxChunkSize, p.SizeUnit)
	cmd.Printf("  Chunk overlap: %d %s\n", p.ChunkOverlap, p.SizeUnit)
	cmd.Printf("  Max summary size: %d %s\n", p.MaxSummarySize, p.SizeUnit)
	cmd.Printf("  Max retry attempts: %d\n", p.MaxRetryAttempts)
	cmd.Printf("  Backoff base: %s\n", p.BackoffBase)
	cmd.Printf("  Concurrency: %d\n", p.ConcurrencyLimit)
	cmd.Printf("  Requests per minute: %s\n", rpm)
	cmd.Printf("  Repository retries: %d\n", p.RepositoryRetries)
	cmd.Printf("  Date granularity: %s\n", p.DateGranularity)
	cmd.Printf("  Temperature: %.2f\n", p.Temperature)
	cmd.Printf("  Describe timeline: %t\n", p.DescribeTimeline)
	cmd.Println()
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if llmProvider != "" {
		provider := domain.AIProvider(strings.ToLower(llmProvider))
		if !provider.IsValid() {
			return fmt.Errorf("unknown provider %q", llmProvider)
		}
		return applyLLMProvider(cmd, provider, llmModel, llmAPIKey)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	return applyLLMProvider(cmd, selectedProvider, model, apiKey)
}

func applyLLMProvider(cmd *cobra.Command, provider domain.AIProvider, model, apiKey string) error {
	if err := settingsService.SetLLMProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}
	cmd.Printf("LLM provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

func runSettingsPipeline(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cfg := settings.Pipeline

	f := cmd.Flags()
	changed := false
	for _, name := range pipelineFlags {
		changed = changed || f.Changed(name)
	}
	if !changed {
		printPipeline(cmd, cfg)
		return nil
	}

	ints := map[string]*int{
		"max-chunk-size":      &cfg.MaxChunkSize,
		"chunk-overlap":       &cfg.ChunkOverlap,
		"max-retry-attempts":  &cfg.MaxRetryAttempts,
		"concurrency":         &cfg.ConcurrencyLimit,
		"max-summary-size":    &cfg.MaxSummarySize,
		"requests-per-minute": &cfg.RequestsPerMinute,
		"repository-retries":  &cfg.RepositoryRetries,
	}
	for name, dst := range ints {
		if f.Changed(name) {
			if *dst, err = f.GetInt(name); err != nil {
				return err
			}
		}
	}
	if f.Changed("backoff-base") {
		if cfg.BackoffBase, err = f.GetDuration("backoff-base"); err != nil {
			return err
		}
	}
	if f.Changed("granularity") {
		v, _ := f.GetString("granularity")
		cfg.DateGranularity = domain.DateGranularity(strings.ToLower(v))
	}
	if f.Changed("size-unit") {
		v, _ := f.GetString("size-unit")
		cfg.SizeUnit = domain.SizeUnit(strings.ToLower(v))
	}
	if f.Changed("temperature") {
		if cfg.Temperature, err = f.GetFloat64("temperature"); err != nil {
			return err
		}
	}
	if f.Changed("describe") {
		if cfg.DescribeTimeline, err = f.GetBool("describe"); err != nil {
			return err
		}
	}

	if err := settingsService.SetPipeline(cfg); err != nil {
		return fmt.Errorf("invalid pipeline settings: %w", err)
	}
	cmd.Println("Pipeline settings saved.")
	cmd.Println()
	printPipeline(cmd, cfg)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
