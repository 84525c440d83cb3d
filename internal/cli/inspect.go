package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dsx2talend/internal/asg"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <dsx-file>",
		Short: "Summarize the stages, links, and transformations of a .dsx export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printInspectReport(cmd.OutOrStdout(), job)

			return nil
		},
	}

	return cmd
}

func printInspectReport(w io.Writer, job *asg.Job) {
	fmt.Fprintf(w, "Job: %s\n", job.Name)

	if len(job.Parameters) > 0 {
		fmt.Fprintf(w, "\nParameters (%d):\n", len(job.Parameters))

		for _, p := range job.Parameters {
			fmt.Fprintf(w, "  %-20s default=%q\n", p.Name, p.Default)
		}
	}

	fmt.Fprintf(w, "\nStages (%d):\n", len(job.Nodes))

	transformations := 0

	for _, node := range job.Nodes {
		fmt.Fprintf(w, "  %-8s %-24s %-20s in=%d out=%d\n",
			node.ID, node.Name, node.EnhancedType,
			len(node.InputPins()), len(node.OutputPins()))

		for _, pin := range node.Pins {
			for _, col := range pin.Schema {
				if col.HasTransformation() {
					transformations++

					fmt.Fprintf(w, "           %s.%s ← %s\n", pin.Name, col.Name, col.Derivation)
				}
			}
		}
	}

	fmt.Fprintf(w, "\nLinks (%d):\n", len(job.Edges))

	for _, edge := range job.Edges {
		from := job.Node(edge.FromNode)
		to := job.Node(edge.ToNode)

		fromName := edge.FromNode
		if from != nil {
			fromName = from.Name
		}

		toName := edge.ToNode
		if to != nil {
			toName = to.Name
		}

		fmt.Fprintf(w, "  %s → %s (%s)\n", fromName, toName, edge.FromPinName)
	}

	fmt.Fprintf(w, "\n%d stages, %d links, %d transformations preserved\n",
		len(job.Nodes), len(job.Edges), transformations)

	if len(job.Warnings) > 0 {
		fmt.Fprintf(w, "%d warnings\n", len(job.Warnings))
	}
}
