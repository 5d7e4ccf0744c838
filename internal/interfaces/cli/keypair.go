package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newKeypairCommand(container *Container) *cobra.Command {
	return &cobra.Command{
		Use:   "keypair",
		Short: "Show the key material for an env file",
		Long: `Prints the target env file's public key and, when resolvable from
the environment or .env.keys, its private key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := container.targetFile()
			kp, err := container.Service.Keypair(target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", keyStyle.Render("file:"), target)
			printKeyLine(out, "DOTENV_PUBLIC_KEY", kp.PublicKey)
			printKeyLine(out, kp.PrivateKeyName, kp.PrivateKey)
			return nil
		},
	}
}

func printKeyLine(out io.Writer, name, value string) {
	if value == "" {
		fmt.Fprintf(out, "%s %s\n", keyStyle.Render(name+":"), dimStyle.Render("not set"))
		return
	}
	fmt.Fprintf(out, "%s %s\n", keyStyle.Render(name+":"), value)
}
