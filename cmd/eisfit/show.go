package main

import (
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/edp1096/toy-eis/pkg/model"
	"github.com/edp1096/toy-eis/pkg/report"
)

type showConfig struct {
	*cli.Command
	Color bool `cli:"name=color desc='force colored output'"`
}

func ShowCommand() *cli.Command {
	cfg := &showConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "show").
		WithSynopsis("show [model.yaml | -]").
		WithDescription("Print the report of a saved model.").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *showConfig) run(cc *cli.Context, args []string) error {
	args, err := cfg.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: expected one model file", cli.ErrUsage)
	}

	var r io.Reader = cc.In
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("could not open %q: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	m, err := model.Load(r)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	rc, err := report.FromModel(m)
	if err != nil {
		return err
	}
	return report.Write(cc.Out, rc, report.Options{Color: useColor(cc.Out, cfg.Color)})
}
