package main

import (
	"github.com/scott-cotton/cli"
)

const usageText = `eisfit - equivalent circuit modelling of impedance spectra

Circuits are written with '-' for series and p(a,b,...) for parallel
combinations of elements such as R0, C1, CPE2, Wo3:

  R0-p(R1,C1)-Wo1

Values take SI suffixes T G meg k m u n p f. "M" is rejected since it
means milli in SPICE and mega elsewhere.

Examples:
  eisfit canon -c 'R0-p(R1,CPE1)'
  eisfit eval -c 'R0-p(R1,C1)' -p 10,100,1u -fstart 100m -fstop 100k
  eisfit fit -config session.hcl
  eisfit fit -c 'R0-p(R1,C1)' -p 10,100,1u -data cell.csv -o fitted.yaml
  eisfit show fitted.yaml`

func Root() *cli.Command {
	return cli.NewCommand("eisfit").
		WithSynopsis("eisfit command [opts]").
		WithDescription(usageText).
		WithSubs(
			EvalCommand(),
			FitCommand(),
			ShowCommand(),
			CanonCommand(),
		)
}
