package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/config"
	"github.com/hupe1980/dsx2talend/internal/logging"
	"github.com/hupe1980/dsx2talend/internal/talend"
	"github.com/hupe1980/dsx2talend/pkg/dsx2talend"
)

type migrateOptions struct {
	outputDir      string
	project        string
	noDBComponents bool
	noZip          bool
	debug          bool
}

func newMigrateCommand() *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate <dsx-file>",
		Short: "Migrate a DataStage .dsx export to a Talend project",
		Long: `Migrate a DataStage .dsx export into an importable Talend Studio
project: talend.project, a per-job .item process definition, a .properties
descriptor, and a zip package of the tree.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outputDir, "output-dir", "o", "generated_jobs", "output directory")
	f.StringVar(&opts.project, "project", "", "project name (default: sanitized job name)")
	f.BoolVar(&opts.noDBComponents, "no-db-components", false, "drop tDBInput/tDBOutput nodes and their links")
	f.BoolVar(&opts.noZip, "no-zip", false, "skip zip packaging")
	f.BoolVar(&opts.debug, "debug", false, "enable debug diagnostics")

	return cmd
}

// migrateJob assembles the library options from CLI flags and runs the
// pipeline. Shared by migrate and watch.
func migrateJob(ctx context.Context, dsxPath string, opts *migrateOptions) (*dsx2talend.Result, error) {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	if opts.debug {
		debugCfg := *cfg
		debugCfg.LogLevel = config.LogLevelDebug
		logger = logging.Setup(&debugCfg)
	}

	policy, err := loadPolicy(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Err: err}
	}

	repo, err := buildRepository(ctx, cfg)
	if err != nil {
		return nil, &ExitError{Code: 5, Err: err}
	}
	defer repo.Close()

	libOpts := []dsx2talend.Option{
		dsx2talend.WithOutputDir(opts.outputDir),
		dsx2talend.WithMappingRepository(repo),
		dsx2talend.WithLogger(logger),
	}

	if opts.project != "" {
		libOpts = append(libOpts, dsx2talend.WithProjectName(opts.project))
	}

	if cfg.Strict {
		libOpts = append(libOpts, dsx2talend.WithStrict())
	}

	if opts.noDBComponents {
		libOpts = append(libOpts, dsx2talend.WithoutDBComponents())
	}

	if opts.noZip {
		libOpts = append(libOpts, dsx2talend.WithoutZip())
	}

	if policy != nil {
		libOpts = append(libOpts, dsx2talend.WithPolicy(policy))
	}

	if cfg.TemplateDir != "" {
		templates, tmplErr := talend.LoadTemplates(cfg.TemplateDir)
		if tmplErr != nil {
			return nil, &ExitError{Code: 4, Err: tmplErr}
		}

		libOpts = append(libOpts, dsx2talend.WithTemplates(templates))
	}

	result, err := dsx2talend.Migrate(ctx, dsxPath, libOpts...)
	if err != nil {
		return nil, &ExitError{Code: dsx2talend.ExitCode(err), Err: err}
	}

	return result, nil
}

func runMigrate(ctx context.Context, cmd *cobra.Command, dsxPath string, opts *migrateOptions) error {
	result, err := migrateJob(ctx, dsxPath, opts)
	if err != nil {
		return err
	}

	printMigrateSummary(cmd.ErrOrStderr(), result)

	return nil
}

// printMigrateSummary prints a human-readable summary of the migration.
func printMigrateSummary(w io.Writer, result *dsx2talend.Result) {
	_, _ = fmt.Fprintf(w, "\n--- Migration Summary ---\n")
	_, _ = fmt.Fprintf(w, "Stages:          %d\n", result.Stages)
	_, _ = fmt.Fprintf(w, "Links:           %d\n", result.Links)
	_, _ = fmt.Fprintf(w, "Transformations: %d preserved\n", result.Transformations)
	_, _ = fmt.Fprintf(w, "Project:         %s\n", result.ProjectDir)

	if result.ZipPath != "" {
		_, _ = fmt.Fprintf(w, "Package:         %s\n", result.ZipPath)
	}

	if len(result.Warnings) > 0 {
		_, _ = fmt.Fprintf(w, "Warnings:        %d\n", len(result.Warnings))
	}

	_, _ = fmt.Fprintf(w, "-------------------------\n")
}
