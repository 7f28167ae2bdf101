package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/edp1096/toy-eis/pkg/element"
	"github.com/edp1096/toy-eis/pkg/netlist"
)

type canonConfig struct {
	*cli.Command
	Circuit string `cli:"name=c aliases=circuit desc='circuit string'"`
	Kinds   bool   `cli:"name=kinds desc='list the element kinds'"`
}

func CanonCommand() *cli.Command {
	cfg := &canonConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "canon").
		WithSynopsis("canon (-c circuit | -kinds)").
		WithDescription("Print the canonical form of a circuit and its parameter slots.").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *canonConfig) run(cc *cli.Context, args []string) error {
	if _, err := cfg.Parse(cc, args); err != nil {
		return err
	}

	if cfg.Kinds {
		for _, prefix := range element.Prefixes() {
			k, err := element.Lookup(prefix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cc.Out, "%-5s %-28s %v\n", prefix, k.Description, k.Units)
		}
		return nil
	}

	if cfg.Circuit == "" {
		return fmt.Errorf("%w: -c is required", cli.ErrUsage)
	}
	ckt, err := netlist.Parse(cfg.Circuit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cc.Out, ckt)
	units := ckt.Units()
	for i, name := range ckt.ParamNames() {
		fmt.Fprintf(cc.Out, "%3d  %-10s %s\n", i, name, units[i])
	}
	return nil
}
