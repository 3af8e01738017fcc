package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/builder"
	"github.com/reoring/dynaskema/dsl"
	js "github.com/reoring/dynaskema/jsonschema"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch sub := os.Args[1]; sub {
	case "describe":
		err = describeCmd(os.Args[2:], os.Stdout)
	case "validate":
		err = validateCmd(os.Args[2:], os.Stdin, os.Stdout)
	case "export":
		err = exportCmd(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		var iss dynaskema.Issues
		if errors.As(err, &iss) {
			for _, it := range iss {
				fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", it.Path, it.Message, it.Code)
			}
			os.Exit(1)
		}
		fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "dynaskema CLI\n\nUsage:\n  dynaskema describe -schema schema.json [-prefix '#/$defs/'] [-name Model]\n  dynaskema validate -schema schema.json -input record.json [-preserve] [-strict]\n  dynaskema export -schema schema.json\n\nNotes:\n  - Schemas may be JSON or YAML. Use -input - to read the record from stdin.\n  - -v enables debug logging on stderr.")
}

// common holds flags shared by every subcommand.
type common struct {
	schema  string
	prefix  string
	name    string
	verbose bool
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.schema, "schema", "", "schema document (JSON or YAML)")
	fs.StringVar(&c.prefix, "prefix", builder.DefaultRefPrefix, "$ref prefix preceding definition names")
	fs.StringVar(&c.name, "name", "", "root model name when the schema has no title")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
}

func (c *common) options(base dsl.Base) builder.Options {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return builder.Options{RefPrefix: c.prefix, Name: c.name, Base: base, Logger: log}
}

func (c *common) load() (*js.Schema, error) {
	if c.schema == "" {
		return nil, errors.New("-schema is required")
	}
	data, err := os.ReadFile(c.schema)
	if err != nil {
		return nil, err
	}
	return js.Parse(data)
}

func describeCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	var c common
	c.register(fs)
	_ = fs.Parse(args)
	doc, err := c.load()
	if err != nil {
		return err
	}
	opts := c.options(nil)
	def, err := builder.Build(doc, builder.DefinitionsFor(doc, opts.RefPrefix), opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, def.String())
	return err
}

func validateCmd(args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var c common
	c.register(fs)
	var input string
	var preserve, strict bool
	fs.StringVar(&input, "input", "", "record to validate (JSON, - for stdin)")
	fs.BoolVar(&preserve, "preserve", false, "omit fields that only hold defaults")
	fs.BoolVar(&strict, "strict", false, "reject undeclared keys")
	_ = fs.Parse(args)
	if input == "" {
		return errors.New("-input is required")
	}
	doc, err := c.load()
	if err != nil {
		return err
	}
	var base dsl.Base
	if strict {
		base = dsl.StrictBase
	}
	m, err := builder.Make(doc, c.options(base))
	if err != nil {
		return err
	}
	var data []byte
	if input == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return err
	}
	ctx := context.Background()
	rec, err := dynaskema.ParseJSON[*dynaskema.Record](ctx, m, data, dynaskema.ParseOpt{
		Strictness: dynaskema.Strictness{OnDuplicateKey: dynaskema.Error},
	})
	if err != nil {
		return err
	}
	mode := dynaskema.EncodeCanonical
	if preserve {
		mode = dynaskema.EncodePreserve
	}
	b, err := m.EncodeJSON(ctx, rec, mode)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func exportCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var c common
	c.register(fs)
	_ = fs.Parse(args)
	doc, err := c.load()
	if err != nil {
		return err
	}
	m, err := builder.Make(doc, c.options(nil))
	if err != nil {
		return err
	}
	s, err := m.JSONSchema()
	if err != nil {
		return err
	}
	b, err := js.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
