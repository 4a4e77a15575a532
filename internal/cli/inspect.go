package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model> <id>",
		Short: "Show the watched fields of one stored record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := rootOpts.model(args[0])
			if err != nil {
				return err
			}
			spec, err := model.WatchSpec()
			if err != nil {
				return err
			}

			finder, closeFn, err := openFinder(cmd.Context(), rootOpts.Config, model)
			if err != nil {
				return err
			}
			defer closeFn()

			values, err := finder.FindByID(cmd.Context(), args[1], spec.Fields())
			if err != nil {
				return fmt.Errorf("failed to read %s %s: %w", model.Name, args[1], err)
			}

			return printer{format: rootOpts.Format, w: cmd.OutOrStdout()}.print(values, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", model.Name, args[1])
				for _, f := range spec.Fields() {
					fmt.Fprintf(w, "  %-12s %v\n", f, values[f])
				}
			})
		},
	}
}
