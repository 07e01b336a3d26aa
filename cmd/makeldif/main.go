// Package main provides the entry point for the makeldif CLI, a
// template-driven generator of synthetic directory data.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the CLI and returns an exit code. This is separated from
// main() to facilitate testing.
func run(args []string) int {
	opts, templatePath, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	out := os.Stdout
	if opts.OutputLDIF != "" {
		f, err := os.Create(opts.OutputLDIF)
		if err != nil {
			fmt.Fprintf(os.Stderr, "makeldif: cannot open %s: %s\n", opts.OutputLDIF, err)
			return 1
		}
		defer f.Close()
		out = f
	}

	if err := generate(templatePath, opts, out, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "makeldif: %s\n", err)
		return 1
	}
	return 0
}
