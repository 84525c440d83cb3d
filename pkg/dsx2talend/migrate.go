// Package dsx2talend provides a public Go API for migrating IBM DataStage
// .dsx exports into importable Talend Studio job projects.
//
// This package exposes the migration pipeline as a library, allowing
// programmatic use without the CLI.
//
// Basic usage:
//
//	result, err := dsx2talend.Migrate(ctx, "job.dsx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.ZipPath)
//
// With options:
//
//	result, err := dsx2talend.Migrate(ctx, "job.dsx",
//	    dsx2talend.WithOutputDir("out"),
//	    dsx2talend.WithProjectName("finance_jobs"),
//	    dsx2talend.WithStrict(),
//	)
package dsx2talend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/dsx2talend/internal/asg"
	"github.com/hupe1980/dsx2talend/internal/dsx"
	"github.com/hupe1980/dsx2talend/internal/ir"
	"github.com/hupe1980/dsx2talend/internal/logging"
	"github.com/hupe1980/dsx2talend/internal/mapping"
	"github.com/hupe1980/dsx2talend/internal/output"
	"github.com/hupe1980/dsx2talend/internal/project"
	"github.com/hupe1980/dsx2talend/internal/talend"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Option configures the migration pipeline. Use the With* functions to
// create Options.
type Option func(*options)

type options struct {
	outputDir   string
	projectName string
	strict      bool
	includeDB   bool
	zip         bool

	repository mapping.Repository
	policy     *dsx.Policy
	templates  *talend.TemplateSet

	now     func() time.Time
	newUUID func() uuid.UUID

	logger *slog.Logger
}

// WithOutputDir sets the output directory (default: "generated_jobs").
func WithOutputDir(dir string) Option { return func(o *options) { o.outputDir = dir } }

// WithProjectName overrides the project name (default: sanitized job name).
func WithProjectName(name string) Option { return func(o *options) { o.projectName = name } }

// WithStrict promotes parser and builder warnings to errors.
func WithStrict() Option { return func(o *options) { o.strict = true } }

// WithoutDBComponents drops tDBInput/tDBOutput nodes and their links.
func WithoutDBComponents() Option { return func(o *options) { o.includeDB = false } }

// WithoutZip skips zip packaging; the project tree is still written.
func WithoutZip() Option { return func(o *options) { o.zip = false } }

// WithMappingRepository sets the component mapping repository
// (default: the built-in static table).
func WithMappingRepository(repo mapping.Repository) Option {
	return func(o *options) { o.repository = repo }
}

// WithPolicy overrides the DSX parser's APT preserve/omit policy tables.
func WithPolicy(policy *dsx.Policy) Option { return func(o *options) { o.policy = policy } }

// WithTemplates overrides the component XML templates.
func WithTemplates(set *talend.TemplateSet) Option { return func(o *options) { o.templates = set } }

// WithClock sets the timestamp source, for deterministic output in tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithUUIDSource sets the identity source, for deterministic output in
// tests.
func WithUUIDSource(newUUID func() uuid.UUID) Option {
	return func(o *options) { o.newUUID = newUUID }
}

// WithLogger sets the pipeline logger (default: discard).
func WithLogger(logger *slog.Logger) Option { return func(o *options) { o.logger = logger } }

// Result holds the output of a successful migration.
type Result struct {
	// ProjectDir is the root of the generated project tree.
	ProjectDir string
	// ItemPath is the generated .item file.
	ItemPath string
	// PropertiesPath is the generated .properties file.
	PropertiesPath string
	// ProjectPath is the generated talend.project file.
	ProjectPath string
	// ZipPath is the packaged archive; empty when zipping was disabled.
	ZipPath string

	// IR is the intermediate representation the Talend job was generated
	// from, suitable for persistence.
	IR *ir.Document

	// Stages, Links, and Transformations summarize the migrated job.
	Stages          int
	Links           int
	Transformations int

	// Warnings collects non-fatal findings from the lenient pipeline.
	Warnings []string
}

// Migrate runs the full pipeline: parse the .dsx export, build the ASG,
// lower it to IR, generate the Talend job, render the project artifacts,
// and package the tree.
func Migrate(ctx context.Context, dsxPath string, opts ...Option) (*Result, error) {
	o := &options{
		outputDir: "generated_jobs",
		includeDB: true,
		zip:       true,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = discardLogger()
	}

	// 1. Parse the export into a record forest.
	parser := dsx.NewParser(dsx.Options{Strict: o.strict, Policy: o.policy, Logger: logging.ForPhase(o.logger, logging.PhaseParse)})

	forest, err := parser.ParseFile(dsxPath)
	if err != nil {
		return nil, err
	}

	// 2. Build the ASG.
	builder := asg.NewBuilder(asg.BuilderOptions{Strict: o.strict, Logger: logging.ForPhase(o.logger, logging.PhaseASG)})

	job, err := builder.Build(forest)
	if err != nil {
		return nil, err
	}

	o.logger.Info("asg built",
		slog.Int("stages", len(job.Nodes)),
		slog.Int("edges", len(job.Edges)),
		slog.Int("parameters", len(job.Parameters)),
	)

	// 3. Lower to IR.
	repo := o.repository
	if repo == nil {
		repo = mapping.NewStatic()
	}

	lowerer := ir.NewLowerer(ir.LowerOptions{
		Location:   project.SanitizeJobName(job.Name) + ".dsx",
		Repository: repo,
		Now:        o.now,
		Logger:     logging.ForPhase(o.logger, logging.PhaseLower),
	})

	doc, err := lowerer.Lower(ctx, job)
	if err != nil {
		return nil, err
	}

	// 4. Validate the IR before generation. Cycles are only reported:
	// bidirectional pairs from over-zealous partner linking are resolved
	// by the builder's link policing in the next step.
	if err := ir.Validate(doc); err != nil {
		return nil, err
	}

	if cycle := ir.FindCycle(doc); len(cycle) > 0 {
		o.logger.Warn("data-flow graph has a cycle, deferring to link policing",
			slog.Any("nodes", cycle))
	}

	// 5. Build the Talend job graph.
	talendBuilder := talend.NewBuilder(talend.BuildOptions{
		Repository:          repo,
		IncludeDBComponents: o.includeDB,
		Strict:              o.strict,
		Logger:              logging.ForPhase(o.logger, logging.PhaseGenerate),
	})

	talendJob, err := talendBuilder.Build(ctx, doc)
	if err != nil {
		return nil, err
	}

	// 6. Emit the .item XML.
	emitter := talend.NewEmitter(talend.EmitOptions{Templates: o.templates, Logger: logging.ForPhase(o.logger, logging.PhaseGenerate)})

	itemXML, err := emitter.Emit(talendJob)
	if err != nil {
		return nil, err
	}

	// 7. Render the project artifacts.
	renderer := project.NewRenderer(project.Options{NewUUID: o.newUUID, Now: o.now})

	propertiesXML, basename, err := renderer.RenderProperties(job.Name)
	if err != nil {
		return nil, err
	}

	projectName := o.projectName
	if projectName == "" {
		projectName = basename
	}

	projectXML, err := renderer.RenderProject(projectName)
	if err != nil {
		return nil, err
	}

	// 8. Write the project tree.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layout := output.Layout{Root: o.outputDir, Project: projectName}

	files := []struct {
		path    string
		content string
	}{
		{layout.ProjectFile(), projectXML},
		{layout.ItemFile(basename), itemXML},
		{layout.PropertiesFile(basename), propertiesXML},
	}

	for _, f := range files {
		writer := output.NewFileWriter(f.path, output.WithLogger(o.logger))
		if err := writer.Write([]byte(f.content)); err != nil {
			return nil, err
		}
	}

	result := &Result{
		ProjectDir:      layout.ProjectDir(),
		ItemPath:        layout.ItemFile(basename),
		PropertiesPath:  layout.PropertiesFile(basename),
		ProjectPath:     layout.ProjectFile(),
		IR:              doc,
		Stages:          len(doc.Nodes),
		Links:           len(doc.Links),
		Transformations: doc.Tracking.TotalTransformations,
		Warnings:        job.Warnings,
	}

	// 9. Package the tree.
	if o.zip {
		now := o.now
		if now == nil {
			now = time.Now
		}

		zipPath := filepath.Join(o.outputDir, fmt.Sprintf("%s_%s.zip", projectName, now().Format("20060102_150405")))

		packager := output.NewPackager(logging.ForPhase(o.logger, logging.PhasePackage))
		if err := packager.Pack(ctx, layout.ProjectDir(), zipPath); err != nil {
			return nil, err
		}

		result.ZipPath = zipPath
	}

	return result, nil
}

// ExitCode classifies a pipeline error into the CLI exit code taxonomy:
// 2 parse, 3 validation, 4 code generation, 5 I/O, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var (
		parseErr    *dsx.ParseError
		dsxValErr   *dsx.ValidationError
		buildErr    *asg.BuildError
		schemaErr   *asg.SchemaError
		irValErr    *ir.ValidationError
		codeGenErr  *talend.CodeGenError
		notFoundErr *mapping.NotFoundError
		pathErr     *fs.PathError
	)

	switch {
	case errors.As(err, &parseErr):
		return 2
	case errors.As(err, &dsxValErr), errors.As(err, &buildErr),
		errors.As(err, &schemaErr), errors.As(err, &irValErr):
		return 3
	case errors.As(err, &codeGenErr), errors.As(err, &notFoundErr):
		return 4
	case errors.As(err, &pathErr),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 5
	default:
		return 1
	}
}
