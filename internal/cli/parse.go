package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/logging"
	"github.com/hupe1980/dsx2talend/internal/output"
)

type parseOptions struct {
	output string
}

func newParseCommand() *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse <dsx-file>",
		Short: "Parse a .dsx export into its abstract syntax graph",
		Long: `Parse a DataStage .dsx export and print the resulting abstract
syntax graph as JSON: stages, pins, column schemas, and link topology.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(job, "", "  ")
			if err != nil {
				return &ExitError{Code: 1, Err: fmt.Errorf("marshaling ASG: %w", err)}
			}

			data = append(data, '\n')

			if opts.output != "" {
				logger := logging.FromContext(cmd.Context())

				w := output.NewFileWriter(opts.output, output.WithLogger(logger))
				if err := w.Write(data); err != nil {
					return &ExitError{Code: 5, Err: err}
				}

				logger.Info("ASG written", "path", opts.output)

				return nil
			}

			_, err = cmd.OutOrStdout().Write(data)
			if err != nil {
				return &ExitError{Code: 5, Err: err}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file path (default: stdout)")

	return cmd
}
