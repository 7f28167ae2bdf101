package main

import (
	"fmt"
	"io"
	"os"

	"github.com/scott-cotton/cli"

	"github.com/edp1096/toy-eis/pkg/analysis"
	"github.com/edp1096/toy-eis/pkg/circuit"
	"github.com/edp1096/toy-eis/pkg/dataset"
	"github.com/edp1096/toy-eis/pkg/model"
	"github.com/edp1096/toy-eis/pkg/netlist"
	"github.com/edp1096/toy-eis/pkg/util"
)

type evalConfig struct {
	*cli.Command
	Circuit string `cli:"name=c aliases=circuit desc='circuit string'"`
	Params  string `cli:"name=p aliases=params desc='comma separated parameter values, SI suffixes allowed'"`
	Model   string `cli:"name=m aliases=model desc='evaluate a saved model instead of -c and -p'"`
	Data    string `cli:"name=data desc='evaluate at the frequencies of a csv file'"`
	Sweep   string `cli:"name=sweep desc='point spacing: DEC, OCT or LIN' default=DEC"`
	Points  int    `cli:"name=points desc='number of frequency points (default 31)'"`
	FStart  string `cli:"name=fstart desc='first frequency in Hz' default=100m"`
	FStop   string `cli:"name=fstop desc='last frequency in Hz' default=100k"`
	Workers int    `cli:"name=j desc='number of evaluation workers'"`
	CSV     bool   `cli:"name=csv desc='write freq,z_real,z_imag csv instead of a table'"`
	Verbose bool   `cli:"name=v desc='debug logging'"`
}

func EvalCommand() *cli.Command {
	cfg := &evalConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "eval").
		WithSynopsis("eval (-c circuit -p values | -m model.yaml) [sweep opts]").
		WithDescription("Evaluate the impedance of a circuit over a frequency sweep.").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *evalConfig) run(cc *cli.Context, args []string) error {
	if _, err := cfg.Parse(cc, args); err != nil {
		return err
	}
	ctx := commandContext(cfg.Verbose)

	ckt, params, err := cfg.circuit()
	if err != nil {
		return err
	}

	var ac *analysis.ACAnalysis
	if cfg.Data != "" {
		d, err := readDataset(cfg.Data)
		if err != nil {
			return err
		}
		ac = analysis.NewACAt(d.Frequencies)
	} else {
		fStart, err := netlist.ParseValue(cfg.FStart)
		if err != nil {
			return fmt.Errorf("%w: -fstart: %w", cli.ErrUsage, err)
		}
		fStop, err := netlist.ParseValue(cfg.FStop)
		if err != nil {
			return fmt.Errorf("%w: -fstop: %w", cli.ErrUsage, err)
		}
		points := cfg.Points
		if points == 0 {
			points = 31
		}
		ac = analysis.NewAC(fStart, fStop, points, cfg.Sweep)
	}
	ac.Workers = cfg.Workers

	if err := ac.Setup(ckt, params); err != nil {
		return err
	}
	if err := ac.Execute(ctx); err != nil {
		return err
	}

	if cfg.CSV {
		return dataset.WriteCSV(cc.Out, ac.Frequencies(), ac.Spectrum())
	}
	printSpectrum(cc.Out, ckt, ac.GetResults())
	return nil
}

func (cfg *evalConfig) circuit() (*circuit.Circuit, []float64, error) {
	if cfg.Model != "" {
		if cfg.Circuit != "" || cfg.Params != "" {
			return nil, nil, fmt.Errorf("%w: -m excludes -c and -p", cli.ErrUsage)
		}
		f, err := os.Open(cfg.Model)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		m, err := model.Load(f)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", cfg.Model, err)
		}
		ckt, err := m.Circuit()
		if err != nil {
			return nil, nil, err
		}
		params, err := m.Values()
		return ckt, params, err
	}

	if cfg.Circuit == "" {
		return nil, nil, fmt.Errorf("%w: -c or -m is required", cli.ErrUsage)
	}
	ckt, err := netlist.Parse(cfg.Circuit)
	if err != nil {
		return nil, nil, err
	}
	params, err := netlist.ParseValues(cfg.Params)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: -p: %w", cli.ErrUsage, err)
	}
	params, err = ckt.Bind(params)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (slots: %v)", err, ckt.ParamNames())
	}
	return ckt, params, nil
}

func printSpectrum(w io.Writer, ckt *circuit.Circuit, results map[string][]float64) {
	freqs := results[analysis.FREQ]
	fmt.Fprintf(w, "Impedance of %s (%d frequency points):\n", ckt, len(freqs))
	fmt.Fprintln(w, "Frequency         Z'        -Z''         |Z|   Phase")
	fmt.Fprintln(w, "------------------------------------------------------")
	for i, f := range freqs {
		fmt.Fprintf(w, "%-13s %s %s %s %sdeg\n",
			util.FormatFrequency(f),
			util.FormatMagnitude(results[analysis.ZRE][i]),
			util.FormatMagnitude(-results[analysis.ZIM][i]),
			util.FormatMagnitude(results[analysis.ZMAG][i]),
			util.FormatPhase(results[analysis.ZPHASE][i]))
	}
}

func readDataset(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	d, err := dataset.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
