// Package main is the entry point for the croon CLI.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "croon: %v\n", err)
		os.Exit(1)
	}
}
