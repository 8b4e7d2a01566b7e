package main

import (
	"github.com/scott-cotton/cli"
)

const usageText = `codable - inspect schemas and convert documents through record codecs

Usage:
  codable plan <schema.yaml>                          Print normalized plans
  codable convert -schema s.yaml -type T [file]       Decode and re-encode a document

Examples:
  codable plan user.yaml
  codable convert -schema user.yaml -type User -from json -to yaml user.json
  cat user.yaml | codable convert -schema user.yaml -type User -from yaml`

// MainCommand returns the root command.
func MainCommand() *cli.Command {
	return cli.NewCommand("codable").
		WithSynopsis("codable command [opts]").
		WithDescription(usageText).
		WithSubs(
			PlanCommand(),
			ConvertCommand(),
		)
}

type planConfig struct {
	*cli.Command
	NoColor bool   `cli:"name=no-color desc='disable colored output'"`
	Case    string `cli:"name=case desc='extra case styles for every record, separated by |'"`
}

// PlanCommand returns the plan subcommand.
func PlanCommand() *cli.Command {
	cfg := &planConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "plan").
		WithAliases("p").
		WithSynopsis("plan [opts] <schema.yaml>").
		WithDescription("print the normalized plan of every type and enum in a schema").
		WithOpts(opts...).
		WithRun(cfg.run)
}

type convertConfig struct {
	*cli.Command
	Schema string `cli:"name=schema aliases=s desc='schema file (yaml)'"`
	Type   string `cli:"name=type aliases=t desc='record type of the document'"`
	From   string `cli:"name=from aliases=I desc='input format: json, yaml, msgpack, bson' default=json"`
	To     string `cli:"name=to aliases=O desc='output format: json, yaml, msgpack, bson' default=json"`
	Indent bool   `cli:"name=indent desc='indent json output'"`
	Case   string `cli:"name=case desc='extra case styles for every record, separated by |'"`
}

// ConvertCommand returns the convert subcommand.
func ConvertCommand() *cli.Command {
	cfg := &convertConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "convert").
		WithAliases("c", "conv").
		WithSynopsis("convert -schema <schema.yaml> -type <T> [-from f] [-to f] [file]").
		WithDescription("decode a document through a record codec and encode it again").
		WithOpts(opts...).
		WithRun(cfg.run)
}
