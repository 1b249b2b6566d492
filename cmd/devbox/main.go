// Package main provides the entry point for devbox.
package main

import (
	"fmt"
	"os"

	"github.com/abdullathedruid/devbox/cmd/devbox/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
