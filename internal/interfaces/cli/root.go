// Package cli assembles the dotenvx command tree. Commands stay thin:
// flag parsing and rendering live here, behavior lives in the services
// package.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/plsft/DotEnvX/internal/application/services"
	"github.com/plsft/DotEnvX/internal/core/merge"
)

// Version information, set at build time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	keyStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Container carries the wired service plus the persistent flag values every
// subcommand shares.
type Container struct {
	Service *services.EnvService
	Logger  zerolog.Logger

	EnvFiles   []string
	Convention string
	Overload   bool
	Strict     bool
	Debug      bool
}

// RunOptions translates the persistent flags into service options.
func (c *Container) RunOptions() services.RunOptions {
	return services.RunOptions{
		Paths:      c.EnvFiles,
		Convention: c.Convention,
		Overload:   c.Overload,
		Strict:     c.Strict,
	}
}

// targetFile is the env file write commands operate on.
func (c *Container) targetFile() string {
	if len(c.EnvFiles) > 0 {
		return c.EnvFiles[0]
	}
	return ".env"
}

// NewRootCommand builds the dotenvx command tree around the container.
func NewRootCommand(container *Container) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dotenvx",
		Short: "Load, encrypt, and manage dotenv files",
		Long: `dotenvx loads .env files into the environment, with public-key
encryption for values at rest. Values are sealed to a per-file public key and
opened with the matching DOTENV_PRIVATE_KEY at load time, so encrypted env
files are safe to commit.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if container.Debug {
				level = zerolog.DebugLevel
			}
			container.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
			container.Service = services.NewEnvService(container.Logger)
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("dotenvx {{.Version}} (built %s)\n", BuildTime))

	flags := rootCmd.PersistentFlags()
	flags.StringSliceVarP(&container.EnvFiles, "env-file", "f", nil,
		"env file(s) to load, in precedence order")
	flags.StringVar(&container.Convention, "convention", "",
		"load files per a framework convention (nextjs, flow)")
	flags.BoolVar(&container.Overload, "overload", false,
		"let later sources override values that already resolved")
	flags.BoolVar(&container.Strict, "strict", false,
		"exit on the first load error instead of continuing")
	flags.BoolVar(&container.Debug, "debug", false,
		"enable debug logging")

	rootCmd.AddCommand(
		newRunCommand(container),
		newGetCommand(container),
		newSetCommand(container),
		newEncryptCommand(container),
		newDecryptCommand(container),
		newKeypairCommand(container),
	)

	return rootCmd
}

// reportLoadErrors surfaces per-source problems that did not abort the run.
func reportLoadErrors(sources []merge.ProcessedSource) {
	for _, src := range sources {
		for _, srcErr := range src.Errors {
			fmt.Fprintln(os.Stderr, warnStyle.Render(srcErr.Error()))
		}
	}
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	container := &Container{}
	if err := NewRootCommand(container).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
