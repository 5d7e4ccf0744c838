package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEncryptCommand(container *Container) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt every plaintext value in an env file",
		Long: `Seals each unencrypted value in the target env file to its public
key, in place. Comments, ordering, and already-encrypted values are left
untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := container.targetFile()
			if err := container.Service.Encrypt(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				successStyle.Render("encrypted"), keyStyle.Render(target))
			return nil
		},
	}
}

func newDecryptCommand(container *Container) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt every encrypted value in an env file",
		Long: `Opens each encrypted value in the target env file using the
matching private key from the environment or .env.keys, and writes the
plaintext back in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := container.targetFile()
			if err := container.Service.Decrypt(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
				successStyle.Render("decrypted"), keyStyle.Render(target))
			return nil
		},
	}
}
