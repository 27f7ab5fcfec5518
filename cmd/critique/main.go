package main

import (
	"fmt"
	"os"

	"github.com/interpretive-systems/critique/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "critique:", err)
		os.Exit(1)
	}
}
