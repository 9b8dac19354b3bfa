// Package cli provides the tijdlijn command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tijdlijn/internal/core/ports/driven"
	"github.com/custodia-labs/tijdlijn/internal/core/ports/driving"
	"github.com/custodia-labs/tijdlijn/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Options are the global flags passed to the bootstrap function.
type Options struct {
	DataDir   string
	ConfigDir string
	Verbose   bool
}

// Services holds the driving ports the commands use.
type Services struct {
	Document driving.DocumentService
	Timeline driving.TimelineService
	Settings driving.SettingsService

	// Pipeline is nil when no completion provider is configured;
	// PipelineErr then explains why.
	Pipeline    driving.PipelineService
	PipelineErr error

	// NewConnector opens a record inbox at path.
	NewConnector func(path string) (driven.Connector, error)

	// Close releases the resources behind the services.
	Close func() error
}

// Bootstrap builds the services from the global flags.
type Bootstrap func(opts Options) (*Services, error)

var (
	documentService  driving.DocumentService
	timelineService  driving.TimelineService
	settingsService  driving.SettingsService
	pipelineService  driving.PipelineService
	pipelineErr      error
	connectorFactory func(path string) (driven.Connector, error)
	closeServices    func() error

	bootstrap Bootstrap
	opts      Options
)

var rootCmd = &cobra.Command{
	Use:   "tijdlijn",
	Short: "Build case timelines from official bulletins",
	Long: `tijdlijn turns scraped official-bulletin documents into per-case timelines.

Documents are ingested from a directory of scraped records, summarised with an
LLM and grouped by publication date into a timeline for each case (dossier).`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed progress")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "Database directory (default ~/.tijdlijn/data)")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "Config directory (default ~/.tijdlijn)")
}

// SetBootstrap registers the function that builds services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases the services it opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := releaseServices(); err == nil {
		err = closeErr
	}
	return err
}

// setServices installs the services used by the commands.
func setServices(s *Services) {
	documentService = s.Document
	timelineService = s.Timeline
	settingsService = s.Settings
	pipelineService = s.Pipeline
	pipelineErr = s.PipelineErr
	connectorFactory = s.NewConnector
	closeServices = s.Close
}

func initServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil || cmd.Name() == "version" {
		return nil
	}
	s, err := bootstrap(opts)
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	setServices(s)
	return nil
}

func releaseServices() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// requirePipeline returns the pipeline service or the reason it is unavailable.
func requirePipeline() (driving.PipelineService, error) {
	if pipelineService != nil {
		return pipelineService, nil
	}
	if pipelineErr != nil {
		return nil, pipelineErr
	}
	return nil, errors.New("pipeline service not configured")
}
