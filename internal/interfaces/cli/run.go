package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

func newRunCommand(container *Container) *cobra.Command {
	return &cobra.Command{
		Use:   "run -- COMMAND [ARGS...]",
		Short: "Run a command with the merged environment injected",
		Long: `Loads and decrypts the selected env files, merges them over the
current environment, and executes COMMAND with the result. The child's exit
code is propagated.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := container.Service.Run(container.RunOptions())
			if err != nil {
				return err
			}
			reportLoadErrors(result.Sources)

			fmt.Fprintln(os.Stderr, successStyle.Render(
				fmt.Sprintf("injecting %d environment variable(s)", len(result.Injected))))

			child := exec.Command(args[0], args[1:]...)
			child.Stdin = os.Stdin
			child.Stdout = os.Stdout
			child.Stderr = os.Stderr
			child.Env = environFromMap(result.Merged)

			if err := child.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					os.Exit(exitErr.ExitCode())
				}
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			return nil
		},
	}
}

func environFromMap(m map[string]string) []string {
	environ := make([]string, 0, len(m))
	for k, v := range m {
		environ = append(environ, k+"="+v)
	}
	return environ
}
