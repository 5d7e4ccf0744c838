package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCommand(container *Container) *cobra.Command {
	return &cobra.Command{
		Use:   "get [KEY]",
		Short: "Print a value from the merged environment",
		Long: `With KEY, prints that key's merged value. Without arguments,
prints the full merged environment as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				value, err := container.Service.Get(args[0], container.RunOptions())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			}

			result, err := container.Service.Run(container.RunOptions())
			if err != nil {
				return err
			}
			reportLoadErrors(result.Sources)

			out, err := json.MarshalIndent(result.Merged, "", "  ")
			if err != nil {
				return fmt.Errorf("encode environment: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
