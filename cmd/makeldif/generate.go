package main

import (
	"fmt"
	"io"

	"github.com/oba-ldap/ldifstore/internal/generator"
	"github.com/oba-ldap/ldifstore/internal/ldif"
	"github.com/pkg/errors"
)

// progressInterval matches MakeLDIF's own "wrote N entries so far"
// cadence, so a long-running generation run still gives feedback on a
// terminal.
const progressInterval = 1000

// generate drives one generation run: build the generator from
// templatePath and opts, stream every entry it produces into a dump
// writer over out, report progress on progress, and print accumulated
// warnings once the stream is exhausted.
func generate(templatePath string, opts *cliOptions, out io.Writer, progress io.Writer) error {
	constants, constWarnings := constantsMap(opts.Constants)

	gen, err := generator.New(templatePath, generator.Options{
		ResourcePath: opts.ResourcePath,
		RandomSeed:   opts.RandomSeed,
		Constants:    constants,
	})
	if err != nil {
		return errors.Wrap(err, "initializing generator")
	}

	writer := ldif.NewWriter(out)
	writer.WrapColumn = opts.WrapColumn

	count := 0
	for {
		e, err := gen.NextStream()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "generating entry")
		}

		if err := writer.WriteRecord(e); err != nil {
			return errors.Wrap(err, "writing entry")
		}

		count++
		if count%progressInterval == 0 {
			fmt.Fprintf(progress, "makeldif: %d entries written\n", count)
		}
	}

	for _, w := range constWarnings {
		fmt.Fprintln(progress, "makeldif: "+w)
	}
	for _, w := range gen.Warnings() {
		fmt.Fprintln(progress, "makeldif: "+w)
	}

	fmt.Fprintf(progress, "makeldif: %d entries written\n", count)
	return nil
}
