// Command treecalc evaluates expressions from the command line, from standard
// input, from persisted JSON files, or interactively.
package main

import (
	"fmt"
	"os"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "treecalc:", err)
		os.Exit(1)
	}
}
