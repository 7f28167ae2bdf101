// Package report prints a circuit, its initial guesses and fitted values.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/edp1096/toy-eis/pkg/circuit"
	"github.com/edp1096/toy-eis/pkg/fit"
	"github.com/edp1096/toy-eis/pkg/model"
	"github.com/edp1096/toy-eis/pkg/util"
)

// Circuit is everything a report shows. Fit is nil for an unfitted circuit.
type Circuit struct {
	Name    string
	Circuit *circuit.Circuit
	Initial []float64
	Fixed   []bool
	Fit     *fit.Result
}

type Options struct {
	Color bool
}

type palette struct {
	title, name, value, fixed, bad func(string, ...any) string
}

func newPalette(enabled bool) palette {
	if !enabled {
		plain := fmt.Sprintf
		return palette{plain, plain, plain, plain, plain}
	}
	mk := func(c *color.Color) func(string, ...any) string {
		c.EnableColor()
		return c.SprintfFunc()
	}
	return palette{
		title: mk(color.New(color.Bold)),
		name:  mk(color.New(color.FgCyan)),
		value: mk(color.RGB(88, 158, 86)),
		fixed: mk(color.RGB(128, 128, 128)),
		bad:   mk(color.New(color.FgRed)),
	}
}

func Write(w io.Writer, rc Circuit, opts Options) error {
	if rc.Circuit == nil {
		return fmt.Errorf("report: no circuit")
	}
	names := rc.Circuit.ParamNames()
	units := rc.Circuit.Units()
	if len(rc.Initial) != len(names) {
		return fmt.Errorf("report: %d initial values for %d parameters", len(rc.Initial), len(names))
	}
	if rc.Fit != nil && len(rc.Fit.Params) != len(names) {
		return fmt.Errorf("report: %d fitted values for %d parameters", len(rc.Fit.Params), len(names))
	}

	pal := newPalette(opts.Color)
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	fixed := func(i int) bool { return rc.Fixed != nil && i < len(rc.Fixed) && rc.Fixed[i] }

	var sb strings.Builder
	if rc.Name != "" {
		fmt.Fprintf(&sb, "%s %s\n", pal.title("Name:"), rc.Name)
	}
	fmt.Fprintf(&sb, "%s %s\n", pal.title("Circuit string:"), rc.Circuit)
	switch {
	case rc.Fit == nil:
		fmt.Fprintf(&sb, "%s no\n", pal.title("Fit:"))
	case rc.Fit.Converged && rc.Fit.Iterations > 0:
		fmt.Fprintf(&sb, "%s converged in %d iterations, cost %.4g\n", pal.title("Fit:"), rc.Fit.Iterations, rc.Fit.Cost)
	case rc.Fit.Converged:
		fmt.Fprintf(&sb, "%s converged, cost %.4g\n", pal.title("Fit:"), rc.Fit.Cost)
	default:
		fmt.Fprintf(&sb, "%s %s\n", pal.title("Fit:"), pal.bad("did not converge (%s)", rc.Fit.Reason))
	}

	fmt.Fprintf(&sb, "\n%s\n", pal.title("Initial guesses:"))
	for i, n := range names {
		line := util.FormatValueFactor(rc.Initial[i], units[i])
		if fixed(i) {
			line = pal.fixed("%s (fixed)", line)
		}
		fmt.Fprintf(&sb, "  %s = %s\n", pal.name("%*s", width, n), line)
	}

	if rc.Fit != nil {
		fmt.Fprintf(&sb, "\n%s\n", pal.title("Fit parameters:"))
		for i, n := range names {
			var line string
			switch {
			case fixed(i):
				line = pal.fixed("%s (fixed)", util.FormatValueFactor(rc.Fit.Params[i], units[i]))
			default:
				line = pal.value("%s", util.FormatUncertain(rc.Fit.Params[i], stdErr(rc.Fit, i), units[i]))
			}
			fmt.Fprintf(&sb, "  %s = %s\n", pal.name("%*s", width, n), line)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func stdErr(r *fit.Result, i int) float64 {
	if i < len(r.StdErr) {
		return r.StdErr[i]
	}
	return 0
}

// FromModel rebuilds report input from a persisted model.
func FromModel(m *model.Model) (Circuit, error) {
	c, opts, err := m.FitOptions()
	if err != nil {
		return Circuit{}, err
	}
	rc := Circuit{Name: m.Name, Circuit: c, Fixed: opts.Fixed, Initial: make([]float64, c.NumParams())}
	res := &fit.Result{
		Params:    make([]float64, c.NumParams()),
		StdErr:    make([]float64, c.NumParams()),
		Converged: m.Converged,
		Cost:      m.Cost,
		Reason:    "stored model",
	}
	for _, p := range m.Parameters {
		i, _ := c.Slot(p.Name)
		rc.Initial[i] = p.Initial
		res.Params[i] = p.Value
		res.StdErr[i] = p.StdErr
	}
	if m.Fitted {
		rc.Fit = res
	}
	return rc, nil
}
