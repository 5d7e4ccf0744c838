package main

import "github.com/plsft/DotEnvX/internal/interfaces/cli"

func main() {
	cli.Execute()
}
