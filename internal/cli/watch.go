package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/config"
	"github.com/hupe1980/dsx2talend/internal/logging"
	"github.com/hupe1980/dsx2talend/internal/watch"
)

func newWatchCommand() *cobra.Command {
	opts := &migrateOptions{}

	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dsx-file>",
		Short: "Re-migrate whenever the .dsx export changes",
		Long: `Watch a DataStage .dsx export and re-run the migration whenever it
changes on disk. The mapping table and policy files (when configured) are
watched too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.FromContext(ctx)

			watchOpts := watch.DefaultOptions()
			watchOpts.DSXFile = args[0]
			watchOpts.Debounce = debounce
			watchOpts.Logger = logging.FromContext(ctx)
			watchOpts.Out = cmd.ErrOrStderr()

			if cfg.MappingFile != "" {
				watchOpts.ExtraFiles = append(watchOpts.ExtraFiles, cfg.MappingFile)
			}

			if cfg.PolicyFile != "" {
				watchOpts.ExtraFiles = append(watchOpts.ExtraFiles, cfg.PolicyFile)
			}

			runFn := func(runCtx context.Context) (*watch.RunResult, error) {
				result, err := migrateJob(runCtx, args[0], opts)
				if err != nil {
					return nil, err
				}

				return &watch.RunResult{
					Stages:          result.Stages,
					Links:           result.Links,
					Transformations: result.Transformations,
					OutputPath:      result.ZipPath,
				}, nil
			}

			if err := watch.Run(ctx, watchOpts, runFn); err != nil {
				return &ExitError{Code: 1, Err: err}
			}

			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outputDir, "output-dir", "o", "generated_jobs", "output directory")
	f.StringVar(&opts.project, "project", "", "project name (default: sanitized job name)")
	f.BoolVar(&opts.noDBComponents, "no-db-components", false, "drop tDBInput/tDBOutput nodes and their links")
	f.BoolVar(&opts.noZip, "no-zip", false, "skip zip packaging")
	f.DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before re-running")

	return cmd
}
