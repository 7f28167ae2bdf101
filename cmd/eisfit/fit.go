package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/scott-cotton/cli"

	"github.com/edp1096/toy-eis/internal/config"
	"github.com/edp1096/toy-eis/internal/ctxlog"
	"github.com/edp1096/toy-eis/pkg/fit"
	"github.com/edp1096/toy-eis/pkg/model"
	"github.com/edp1096/toy-eis/pkg/netlist"
	"github.com/edp1096/toy-eis/pkg/report"
)

type fitConfig struct {
	*cli.Command
	Config       string `cli:"name=config desc='HCL fit session file'"`
	Circuit      string `cli:"name=c aliases=circuit desc='circuit string'"`
	Params       string `cli:"name=p aliases=params desc='comma separated initial guesses'"`
	Fixed        string `cli:"name=fixed desc='comma separated names of parameters to hold'"`
	Data         string `cli:"name=data desc='csv file of freq,z_real,z_imag'"`
	Modulus      bool   `cli:"name=modulus desc='weight residuals by |Z|'"`
	IgnoreBelowX bool   `cli:"name=ignore-below-x desc='drop points with positive imaginary part'"`
	FMin         string `cli:"name=fmin desc='lowest frequency to fit'"`
	FMax         string `cli:"name=fmax desc='highest frequency to fit'"`
	MaxIter      int    `cli:"name=maxiter desc='solver iteration limit'"`
	Name         string `cli:"name=name desc='model name stored with -o'"`
	Out          string `cli:"name=o desc='write the fitted model as yaml'"`
	Color        bool   `cli:"name=color desc='force colored output'"`
	Verbose      bool   `cli:"name=v desc='debug logging'"`
}

func FitCommand() *cli.Command {
	cfg := &fitConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Command, "fit").
		WithSynopsis("fit (-config session.hcl | -c circuit -p values -data file.csv) [-o model.yaml]").
		WithDescription("Fit circuit parameters to measured impedance data.").
		WithOpts(opts...).
		WithRun(cfg.run)
}

func (cfg *fitConfig) run(cc *cli.Context, args []string) error {
	if _, err := cfg.Parse(cc, args); err != nil {
		return err
	}
	ctx := commandContext(cfg.Verbose)
	logger := ctxlog.FromContext(ctx)

	var (
		s   *config.Session
		err error
	)
	if cfg.Config != "" {
		s, err = config.Load(ctx, cfg.Config)
	} else {
		s, err = cfg.session()
	}
	if err != nil {
		return err
	}
	if s.Data == "" {
		return fmt.Errorf("%w: no data file given", cli.ErrUsage)
	}

	d, err := readDataset(s.Data)
	if err != nil {
		return err
	}
	if s.IgnoreBelowX {
		d = d.IgnoreBelowX()
	}
	d = d.CropFrequencies(s.FMin, s.FMax)
	logger.Debug("data loaded", "file", s.Data, "points", d.Len())

	res, fitErr := fit.Fit(ctx, s.Circuit, d.Frequencies, d.Impedance, s.Options)
	if res == nil {
		return fitErr
	}

	err = report.Write(cc.Out, report.Circuit{
		Name:    s.Name,
		Circuit: s.Circuit,
		Initial: s.Options.Initial,
		Fixed:   s.Options.Fixed,
		Fit:     res,
	}, report.Options{Color: useColor(cc.Out, cfg.Color)})
	if err != nil {
		return err
	}

	if s.Output != "" {
		if err := saveModel(s, res); err != nil {
			return err
		}
		logger.Info("model written", "file", s.Output)
	}

	switch {
	case errors.Is(fitErr, fit.ErrSingularCovariance):
		logger.Warn("error bars unavailable", "error", fitErr)
		return nil
	case fitErr != nil:
		return fitErr
	}
	return nil
}

// session builds a fit session from command line flags.
func (cfg *fitConfig) session() (*config.Session, error) {
	if cfg.Circuit == "" {
		return nil, fmt.Errorf("%w: -config or -c is required", cli.ErrUsage)
	}
	ckt, err := netlist.Parse(cfg.Circuit)
	if err != nil {
		return nil, err
	}
	initial, err := netlist.ParseValues(cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: -p: %w", cli.ErrUsage, err)
	}
	if initial, err = ckt.Bind(initial); err != nil {
		return nil, fmt.Errorf("%w (slots: %v)", err, ckt.ParamNames())
	}

	fixed := make([]bool, ckt.NumParams())
	for _, name := range strings.FieldsFunc(cfg.Fixed, func(r rune) bool { return r == ',' || r == ' ' }) {
		i, ok := ckt.Slot(name)
		if !ok {
			return nil, fmt.Errorf("%w: -fixed: no parameter %s in %s", cli.ErrUsage, name, ckt)
		}
		fixed[i] = true
	}

	s := &config.Session{
		Name:         cfg.Name,
		Circuit:      ckt,
		Data:         cfg.Data,
		IgnoreBelowX: cfg.IgnoreBelowX,
		Output:       cfg.Out,
		Options: fit.Options{
			Initial:         initial,
			Fixed:           fixed,
			WeightByModulus: cfg.Modulus,
			MaxIterations:   cfg.MaxIter,
		},
	}
	if cfg.FMin != "" {
		if s.FMin, err = netlist.ParseValue(cfg.FMin); err != nil {
			return nil, fmt.Errorf("%w: -fmin: %w", cli.ErrUsage, err)
		}
	}
	if cfg.FMax != "" {
		if s.FMax, err = netlist.ParseValue(cfg.FMax); err != nil {
			return nil, fmt.Errorf("%w: -fmax: %w", cli.ErrUsage, err)
		}
	}
	return s, nil
}

func saveModel(s *config.Session, res *fit.Result) error {
	m, err := model.FromFit(s.Name, s.Circuit, s.Options, res)
	if err != nil {
		return err
	}
	f, err := os.Create(s.Output)
	if err != nil {
		return err
	}
	if err := model.Save(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
