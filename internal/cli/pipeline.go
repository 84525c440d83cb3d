package cli

import (
	"context"

	"github.com/hupe1980/dsx2talend/internal/asg"
	"github.com/hupe1980/dsx2talend/internal/config"
	"github.com/hupe1980/dsx2talend/internal/dsx"
	"github.com/hupe1980/dsx2talend/internal/ir"
	"github.com/hupe1980/dsx2talend/internal/logging"
	"github.com/hupe1980/dsx2talend/internal/mapping"
	"github.com/hupe1980/dsx2talend/internal/project"
	"github.com/hupe1980/dsx2talend/pkg/dsx2talend"
)

// loadPolicy resolves the APT filter policy from configuration.
func loadPolicy(cfg *config.Config) (*dsx.Policy, error) {
	if cfg.PolicyFile == "" {
		return nil, nil //nolint:nilnil // nil selects the built-in policy
	}

	return dsx.LoadPolicy(cfg.PolicyFile)
}

// buildRepository resolves the component mapping repository from
// configuration: DSN first, mapping file second, the built-in table last.
func buildRepository(ctx context.Context, cfg *config.Config) (mapping.Repository, error) {
	if cfg.MappingDSN != "" {
		return mapping.OpenSQL(ctx, cfg.MappingDSN)
	}

	if cfg.MappingFile != "" {
		return mapping.LoadFile(cfg.MappingFile)
	}

	return mapping.NewStatic(), nil
}

// loadJob parses a DSX export and builds its ASG using the context's
// configuration. Shared by the parse, lower, inspect, and validate
// commands.
func loadJob(ctx context.Context, path string) (*asg.Job, error) {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	policy, err := loadPolicy(cfg)
	if err != nil {
		return nil, &ExitError{Code: 2, Err: err}
	}

	parser := dsx.NewParser(dsx.Options{Strict: cfg.Strict, Policy: policy, Logger: logger})

	forest, err := parser.ParseFile(path)
	if err != nil {
		return nil, &ExitError{Code: dsx2talend.ExitCode(err), Err: err}
	}

	builder := asg.NewBuilder(asg.BuilderOptions{Strict: cfg.Strict, Logger: logger})

	job, err := builder.Build(forest)
	if err != nil {
		return nil, &ExitError{Code: dsx2talend.ExitCode(err), Err: err}
	}

	return job, nil
}

// lowerJob lowers an ASG job into the IR using the context's configuration.
func lowerJob(ctx context.Context, job *asg.Job) (*ir.Document, error) {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	repo, err := buildRepository(ctx, cfg)
	if err != nil {
		return nil, &ExitError{Code: 5, Err: err}
	}
	defer repo.Close()

	lowerer := ir.NewLowerer(ir.LowerOptions{
		Location:   project.SanitizeJobName(job.Name) + ".dsx",
		Repository: repo,
		Logger:     logger,
	})

	doc, err := lowerer.Lower(ctx, job)
	if err != nil {
		return nil, &ExitError{Code: dsx2talend.ExitCode(err), Err: err}
	}

	return doc, nil
}
