// Package model persists circuits and their fitted parameters as YAML so a
// fit can be reloaded, evaluated or used as the starting point of another.
package model

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-yaml"

	"github.com/edp1096/toy-eis/pkg/circuit"
	"github.com/edp1096/toy-eis/pkg/fit"
	"github.com/edp1096/toy-eis/pkg/netlist"
)

var ErrInvalidModel = errors.New("invalid model")

type Model struct {
	Name       string      `yaml:"name,omitempty"`
	CircuitStr string      `yaml:"circuit"`
	Fitted     bool        `yaml:"fitted"`
	Converged  bool        `yaml:"converged,omitempty"`
	Cost       float64     `yaml:"cost,omitempty"`
	Parameters []Parameter `yaml:"parameters"`
}

// Parameter is one slot of the circuit. Bounds are omitted when open.
// StdErr is .nan when the fit could not estimate it.
type Parameter struct {
	Name    string   `yaml:"name"`
	Unit    string   `yaml:"unit,omitempty"`
	Initial float64  `yaml:"initial"`
	Value   float64  `yaml:"value"`
	StdErr  float64  `yaml:"stderr,omitempty"`
	Lower   *float64 `yaml:"lower,omitempty"`
	Upper   *float64 `yaml:"upper,omitempty"`
	Fixed   bool     `yaml:"fixed"`
}

// New describes an unfitted circuit; values start at the initial guess.
func New(name string, c *circuit.Circuit, opts fit.Options) (*Model, error) {
	initial, err := c.Bind(opts.Initial)
	if err != nil {
		return nil, err
	}
	n := len(initial)
	if (opts.Lower != nil && len(opts.Lower) != n) || (opts.Upper != nil && len(opts.Upper) != n) ||
		(opts.Fixed != nil && len(opts.Fixed) != n) {
		return nil, fmt.Errorf("%w: bounds or fixed mask do not match %d parameters", ErrInvalidModel, n)
	}
	m := &Model{Name: name, CircuitStr: c.String()}
	units := c.Units()
	for i, p := range c.ParamNames() {
		param := Parameter{
			Name:    p,
			Unit:    units[i],
			Initial: initial[i],
			Value:   initial[i],
		}
		if opts.Lower != nil && !math.IsInf(opts.Lower[i], -1) {
			lo := opts.Lower[i]
			param.Lower = &lo
		}
		if opts.Upper != nil && !math.IsInf(opts.Upper[i], 1) {
			hi := opts.Upper[i]
			param.Upper = &hi
		}
		if opts.Fixed != nil {
			param.Fixed = opts.Fixed[i]
		}
		m.Parameters = append(m.Parameters, param)
	}
	return m, nil
}

// FromFit records the outcome of fit.Fit run with opts.
func FromFit(name string, c *circuit.Circuit, opts fit.Options, res *fit.Result) (*Model, error) {
	m, err := New(name, c, opts)
	if err != nil {
		return nil, err
	}
	if len(res.Params) != len(m.Parameters) {
		return nil, fmt.Errorf("%w: result has %d parameters, circuit %d", ErrInvalidModel, len(res.Params), len(m.Parameters))
	}
	m.Fitted = true
	m.Converged = res.Converged
	m.Cost = res.Cost
	for i := range m.Parameters {
		m.Parameters[i].Value = res.Params[i]
		m.Parameters[i].StdErr = res.StdErr[i]
	}
	return m, nil
}

func Save(w io.Writer, m *Model) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// Load decodes a model and checks it against its circuit string.
func Load(r io.Reader) (*Model, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m := &Model{}
	if err := yaml.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if _, err := m.Values(); err != nil {
		return nil, err
	}
	return m, nil
}

// Circuit parses the stored circuit string.
func (m *Model) Circuit() (*circuit.Circuit, error) {
	if m.CircuitStr == "" {
		return nil, fmt.Errorf("%w: missing circuit", ErrInvalidModel)
	}
	c, err := netlist.Parse(m.CircuitStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	return c, nil
}

// Values returns the parameter vector in slot order. Parameters are matched
// by name so their order in the file does not matter.
func (m *Model) Values() ([]float64, error) {
	c, err := m.Circuit()
	if err != nil {
		return nil, err
	}
	return m.bind(c, func(p Parameter) float64 { return p.Value })
}

// FitOptions rebuilds fit options from the stored bounds and flags, with
// the stored values as the initial guess.
func (m *Model) FitOptions() (*circuit.Circuit, fit.Options, error) {
	c, err := m.Circuit()
	if err != nil {
		return nil, fit.Options{}, err
	}
	var opts fit.Options
	if opts.Initial, err = m.bind(c, func(p Parameter) float64 { return p.Value }); err != nil {
		return nil, fit.Options{}, err
	}
	opts.Lower, _ = m.bind(c, func(p Parameter) float64 {
		if p.Lower == nil {
			return math.Inf(-1)
		}
		return *p.Lower
	})
	opts.Upper, _ = m.bind(c, func(p Parameter) float64 {
		if p.Upper == nil {
			return math.Inf(1)
		}
		return *p.Upper
	})
	opts.Fixed = make([]bool, c.NumParams())
	for _, p := range m.Parameters {
		i, _ := c.Slot(p.Name)
		opts.Fixed[i] = p.Fixed
	}
	return c, opts, nil
}

func (m *Model) bind(c *circuit.Circuit, field func(Parameter) float64) ([]float64, error) {
	named := make(map[string]float64, len(m.Parameters))
	for _, p := range m.Parameters {
		if _, dup := named[p.Name]; dup {
			return nil, fmt.Errorf("%w: parameter %s listed twice", ErrInvalidModel, p.Name)
		}
		named[p.Name] = field(p)
	}
	values, err := c.BindNamed(named)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	return values, nil
}
