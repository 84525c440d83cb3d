package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/ir"
	"github.com/hupe1980/dsx2talend/internal/logging"
	"github.com/hupe1980/dsx2talend/internal/output"
	"github.com/hupe1980/dsx2talend/pkg/dsx2talend"
)

type lowerOptions struct {
	output string
}

func newLowerCommand() *cobra.Command {
	opts := &lowerOptions{}

	cmd := &cobra.Command{
		Use:   "lower <dsx-file>",
		Short: "Lower a .dsx export into the intermediate representation",
		Long: `Parse a DataStage .dsx export, build its abstract syntax graph, and
lower it into the vendor-neutral intermediate representation (IR) JSON.

The IR is validated before printing; it is the persistable handoff format
between parsing and Talend code generation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			job, err := loadJob(ctx, args[0])
			if err != nil {
				return err
			}

			doc, err := lowerJob(ctx, job)
			if err != nil {
				return err
			}

			if err := ir.Validate(doc); err != nil {
				return &ExitError{Code: dsx2talend.ExitCode(err), Err: err}
			}

			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return &ExitError{Code: 1, Err: fmt.Errorf("marshaling IR: %w", err)}
			}

			data = append(data, '\n')

			if opts.output != "" {
				logger := logging.FromContext(ctx)

				w := output.NewFileWriter(opts.output, output.WithLogger(logger))
				if err := w.Write(data); err != nil {
					return &ExitError{Code: 5, Err: err}
				}

				logger.Info("IR written", "path", opts.output)

				return nil
			}

			if _, err := cmd.OutOrStdout().Write(data); err != nil {
				return &ExitError{Code: 5, Err: err}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path (default: stdout)")

	return cmd
}
