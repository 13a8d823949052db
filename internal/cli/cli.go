// Package cli implements the psfind command-line interface.
//
// The CLI is a thin driver over the find package: every command builds
// requests, runs them through a [find.Finder] and prints the resulting
// descriptors. Configuration comes from internal/config and can be overridden
// per invocation with persistent flags.
//
// # Commands
//
//   - find name: Resolve packages by exact name or wildcard, optionally with a version spec
//   - find tag: List packages carrying every given tag
//   - find type: List packages of a resource type
//   - find command: List packages exporting commands or DSC resources
//   - find all: List every package
//   - repos: Show configured repositories
//   - version: Print build information
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// also handed to the finder, so feed queries show up at debug level.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/psfind/internal/config"
	"github.com/matzehuels/psfind/pkg/buildinfo"
	"github.com/matzehuels/psfind/pkg/find"
	"github.com/matzehuels/psfind/pkg/integrations/gallery"
	"github.com/matzehuels/psfind/pkg/query"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "psfind"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Fetcher replaces the gallery client when set.
	Fetcher find.Fetcher

	cfg   *config.Config
	flags globalFlags
}

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	verbose    bool
	repository string
	prerelease bool
	workers    int
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "psfind searches PowerShell gallery feeds",
		Long:          `psfind resolves modules, scripts, commands and DSC resources against NuGet V2 feeds such as the PowerShell Gallery.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "enable verbose logging")
	pf.StringVarP(&c.flags.repository, "repository", "r", "", "repository to query (default from PSFIND_REPOSITORY)")
	pf.BoolVar(&c.flags.prerelease, "prerelease", false, "include prerelease versions")
	pf.IntVar(&c.flags.workers, "workers", 0, "concurrent requests for multi-name lookups")
	_ = root.RegisterFlagCompletionFunc("repository", completeRepositories)

	root.AddCommand(c.findCommand())
	root.AddCommand(c.reposCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the environment configuration, applies flag overrides and
// sets the log level.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("repository") {
		cfg.Repository = c.flags.repository
	}
	if flags.Changed("prerelease") {
		cfg.Prerelease = c.flags.prerelease
	}
	if flags.Changed("workers") {
		cfg.Workers = c.flags.workers
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	level, err := logLevel(cfg.LogLevel, c.flags.verbose)
	if err != nil {
		return err
	}
	c.SetLogLevel(level)
	c.cfg = cfg
	c.Logger.Debug("config loaded", "repository", cfg.Repository, "workers", cfg.Workers, "timeout", cfg.Timeout)
	return nil
}

// repository returns the repository selected for this invocation.
func (c *CLI) repository() (query.Repository, error) {
	return c.cfg.Lookup(c.cfg.Repository)
}

// =============================================================================
// Finder Factory
// =============================================================================

// newFinder creates a finder for CLI use.
func (c *CLI) newFinder() *find.Finder {
	fetcher := c.Fetcher
	if fetcher == nil {
		fetcher = gallery.NewClient(c.cfg.Timeout)
	}
	return find.New(fetcher, find.WithLogger(c.Logger), find.WithWorkers(c.cfg.Workers))
}

// stdout is where command results are printed.
var stdout io.Writer = os.Stdout
