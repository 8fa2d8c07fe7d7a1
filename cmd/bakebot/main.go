package main

import (
	"fmt"
	"os"

	"github.com/soyeahso/bakebot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bakebot:", err)
		os.Exit(1)
	}
}
