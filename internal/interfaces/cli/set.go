package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSetCommand(container *Container) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a value in an env file, encrypted by default",
		Long: `Writes KEY=VALUE into the target env file (the first --env-file,
or .env). The value is sealed to the file's public key; a keypair is generated
on first use and the private key stored in .env.keys.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			target := container.targetFile()

			if err := container.Service.Set(target, key, value, plain); err != nil {
				return err
			}

			state := "encrypted"
			if plain {
				state = "plaintext"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				successStyle.Render(fmt.Sprintf("set %s (%s) in", state, key)),
				keyStyle.Render(target))
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "store the value unencrypted")
	return cmd
}
