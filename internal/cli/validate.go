package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/ir"
	"github.com/hupe1980/dsx2talend/pkg/dsx2talend"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <dsx-file>",
		Short: "Validate a .dsx export through parsing, lowering, and IR checks",
		Long: `Validate runs a DataStage .dsx export through the full front half of
the pipeline — parsing, ASG construction, and IR lowering — and reports the
structural findings without generating any output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			job, err := loadJob(ctx, args[0])
			if err != nil {
				return err
			}

			doc, err := lowerJob(ctx, job)
			if err != nil {
				return err
			}

			if err := ir.Validate(doc); err != nil {
				var verr *ir.ValidationError
				if errors.As(err, &verr) {
					fmt.Fprintf(out, "INVALID: %d violation(s)\n", len(verr.Violations))

					for _, v := range verr.Violations {
						fmt.Fprintf(out, "  - %s\n", v)
					}
				}

				return &ExitError{Code: dsx2talend.ExitCode(err), Err: err}
			}

			fmt.Fprintf(out, "OK: %d stages, %d links, %d transformations preserved\n",
				len(doc.Nodes), len(doc.Links), doc.Tracking.TotalTransformations)

			if cycle := ir.FindCycle(doc); len(cycle) > 0 {
				fmt.Fprintf(out, "warning: data-flow cycle through %v; one direction per pair survives generation\n", cycle)
			}

			for _, warning := range job.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}

			return nil
		},
	}

	return cmd
}
