package main

import (
	"fmt"
	"os"

	"github.com/me/qsubwt/internal/cli"
)

func main() {
	err := cli.NewRootCmd().Execute()
	if cli.ShouldPrint(err) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
