// Package main provides the streamconv CLI tool.
//
// Usage:
//
//	streamconv [flags] <command> [args]
//
// Commands:
//
//	convert  - Convert a trained graph into an inference graph
//	quantize - Produce an int8 artifact from a saved graph
//	summary  - Print the structure of a saved graph
package main

import (
	"fmt"
	"os"

	"streamconv/cmd/streamconv/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
