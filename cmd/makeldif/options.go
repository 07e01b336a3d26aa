package main

import (
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// cliOptions is the command-line surface of makeldif, mirroring MakeLDIF's
// own flag set: a resource directory for <fileTag> lookups, an output
// file (stdin/stdout default to the dump going to stdout), a random seed
// for reproducible runs, repeatable name=value constants, and a wrap
// column for the emitted dump.
type cliOptions struct {
	ResourcePath string   `short:"r" long:"resourcePath" description:"Directory containing resource files referenced by <fileTag> tokens"`
	OutputLDIF   string   `short:"o" long:"outputLdif" description:"Destination LDIF file; defaults to stdout"`
	RandomSeed   int64    `short:"s" long:"randomSeed" default:"0" description:"Seed for the template's random number generator"`
	Constants    []string `short:"c" long:"constant" description:"A name=value constant, may be given multiple times"`
	WrapColumn   int      `short:"w" long:"wrapColumn" default:"0" description:"Column at which long attribute values are wrapped; 0 disables wrapping"`

	Args struct {
		TemplateFile string `positional-arg-name:"template-file" description:"Path to the template file describing what to generate"`
	} `positional-args:"yes" required:"yes"`
}

// parseArgs parses args into a cliOptions and returns the template file
// path separately; constants stay as raw name=value strings until
// constantsMap splits them in generate.
func parseArgs(args []string) (*cliOptions, string, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.Default)
	parser.Name = "makeldif"
	parser.Usage = "[OPTIONS] template-file"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, "", err
	}
	if opts.Args.TemplateFile == "" {
		return nil, "", errors.New("makeldif: missing required template-file argument")
	}
	return &opts, opts.Args.TemplateFile, nil
}

// constantsMap splits "name=value" entries into a map, skipping and
// reporting entries that have no '=' rather than aborting the whole run.
func constantsMap(entries []string) (map[string]string, []string) {
	out := make(map[string]string, len(entries))
	var warnings []string
	for _, e := range entries {
		idx := strings.Index(e, "=")
		if idx < 0 {
			warnings = append(warnings, "ignoring malformed constant "+e+" (expected name=value)")
			continue
		}
		out[strings.TrimSpace(e[:idx])] = strings.TrimSpace(e[idx+1:])
	}
	return out, warnings
}
