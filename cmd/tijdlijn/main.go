// Command tijdlijn builds per-case timelines from official-bulletin documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/tijdlijn/internal/adapters/driven/ai"
	"github.com/custodia-labs/tijdlijn/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tijdlijn/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tijdlijn/internal/adapters/driving/cli"
	"github.com/custodia-labs/tijdlijn/internal/connectors/inbox"
	"github.com/custodia-labs/tijdlijn/internal/core/domain"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/core/services"
	"github.com/custodia-labs/tijdlijn/internal/logger"
	"github.com/custodia-labs/tijdlijn/internal/normalisers"
	"github.com/custodia-labs/tijdlijn/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags "-X main.version=...".
var version string

func main() {
	// API keys may live in a .env file next to the binary's working directory.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap wires the adapters into the services used by the commands.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configDir, err := resolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	store, err := sqlite.NewStore(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	logger.Debug("database: %s", store.Path())

	s := &cli.Services{
		Document: services.NewDocumentService(store, normalisers.Default()),
		Timeline: services.NewTimelineService(store),
		Settings: settingsService,
		NewConnector: func(path string) (driven.Connector, error) {
			return inbox.New(path), nil
		},
	}

	llm, err := ai.CreateLLMService(&settings.LLM)
	switch {
	case err != nil:
		s.PipelineErr = fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	case llm == nil:
		s.PipelineErr = fmt.Errorf("%w: no provider configured, run 'tijdlijn settings llm'", domain.ErrLLMUnavailable)
	default:
		prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"), services.DefaultPrompts())
		if err != nil {
			_ = llm.Close()
			_ = store.Close()
			return nil, fmt.Errorf("open prompts: %w", err)
		}
		chunks := chunker.FromConfig(settings.Pipeline)
		summarizer := services.NewSummarizer(llm, chunks, prompts, settings.Pipeline)
		s.Pipeline = services.NewProcessor(store, chunks, summarizer, settings.Pipeline)
	}

	s.Close = func() error {
		var errs []error
		if llm != nil {
			errs = append(errs, llm.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return s, nil
}

func resolveConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".tijdlijn"), nil
}
