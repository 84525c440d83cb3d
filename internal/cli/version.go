package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/version"
)

func newVersionCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			if jsonOutput {
				out, err := info.JSON()
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), out)

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), info.String())

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")

	return cmd
}
