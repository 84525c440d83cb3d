// Package cli implements the cobra command tree for dsx2talend.
package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/config"
	"github.com/hupe1980/dsx2talend/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "dsx2talend",
		Short: "Migrate IBM DataStage jobs to Talend Studio projects",
		Long: `dsx2talend is a CLI tool that migrates ETL jobs authored in IBM
DataStage (.dsx exports) into runnable Talend Studio job projects.

It parses the DSX export into an abstract syntax graph, lowers it into a
vendor-neutral intermediate representation, and generates an importable
Talend project: talend.project, per-job .item process definitions, and
.properties descriptors, packaged as a zip.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			logger := logging.Setup(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("logLevel", cfg.LogLevel),
				slog.String("logFormat", cfg.LogFormat),
				slog.Bool("strict", cfg.Strict),
			)

			return nil
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .dsx2talend.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text, json")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")
	pf.Bool("strict", false, "promote parser and builder warnings to errors")
	pf.String("mapping-dsn", "", "DSN of the component mapping database")
	pf.String("mapping-file", "", "YAML component mapping table")
	pf.String("policy-file", "", "YAML APT preserve/omit policy override")
	pf.String("template-dir", "", "directory overriding the embedded component XML templates")

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	// Register subcommands.
	cmd.AddCommand(
		newVersionCommand(),
		newMigrateCommand(),
		newParseCommand(),
		newLowerCommand(),
		newInspectCommand(),
		newValidateCommand(),
		newWatchCommand(),
		newCompletionCommand(),
	)

	return cmd
}
