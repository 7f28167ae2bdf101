// Package config loads fit sessions written in HCL.
//
//	circuit = "R0-p(R1,C1)"
//	data    = "${env.DATA_DIR}/cell.csv"
//
//	param "R0" {
//	  initial = 10
//	  lower   = 0
//	}
//
// Expressions may read the process environment through the env object.
package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/edp1096/toy-eis/internal/ctxlog"
	"github.com/edp1096/toy-eis/pkg/circuit"
	"github.com/edp1096/toy-eis/pkg/fit"
	"github.com/edp1096/toy-eis/pkg/netlist"
)

var ErrInvalidConfig = errors.New("invalid fit session")

// fileRoot mirrors the HCL file.
type fileRoot struct {
	Circuit         string   `hcl:"circuit"`
	Name            string   `hcl:"name,optional"`
	Data            string   `hcl:"data,optional"`
	WeightByModulus bool     `hcl:"weight_by_modulus,optional"`
	IgnoreBelowX    bool     `hcl:"ignore_below_x,optional"`
	FMin            float64  `hcl:"f_min,optional"`
	FMax            float64  `hcl:"f_max,optional"`
	MaxIterations   int      `hcl:"max_iterations,optional"`
	Output          string   `hcl:"output,optional"`
	Params          []*param `hcl:"param,block"`
}

type param struct {
	Name    string   `hcl:"name,label"`
	Initial float64  `hcl:"initial"`
	Lower   *float64 `hcl:"lower,optional"`
	Upper   *float64 `hcl:"upper,optional"`
	Fixed   bool     `hcl:"fixed,optional"`
}

// Session is a decoded and validated fit session.
type Session struct {
	Name         string
	Circuit      *circuit.Circuit
	Options      fit.Options
	Data         string // data file, resolved against the session file
	IgnoreBelowX bool
	FMin         float64
	FMax         float64
	Output       string
}

// Load reads a session file. Relative data and output paths are taken
// relative to the directory holding the file.
func Load(ctx context.Context, filename string) (*Session, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	s, err := Parse(ctx, src, filename, Environ())
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(filename)
	if s.Data != "" && !filepath.IsAbs(s.Data) {
		s.Data = filepath.Join(dir, s.Data)
	}
	if s.Output != "" && !filepath.IsAbs(s.Output) {
		s.Output = filepath.Join(dir, s.Output)
	}
	return s, nil
}

// Parse decodes src with env exposed as the env object.
func Parse(ctx context.Context, src []byte, filename string, env map[string]string) (*Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("parsing fit session", "file", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, evalContext(env), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}

	s, err := root.session()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	logger.Debug("fit session loaded", "circuit", s.Circuit.String(), "params", len(root.Params))
	return s, nil
}

func evalContext(env map[string]string) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vars[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		pair := strings.SplitN(e, "=", 2)
		if len(pair) == 2 {
			env[pair[0]] = pair[1]
		}
	}
	return env
}

func (r *fileRoot) session() (*Session, error) {
	c, err := netlist.Parse(r.Circuit)
	if err != nil {
		return nil, fmt.Errorf("%w: circuit %q: %w", ErrInvalidConfig, r.Circuit, err)
	}

	n := c.NumParams()
	opts := fit.Options{
		Initial:         make([]float64, n),
		Lower:           make([]float64, n),
		Upper:           make([]float64, n),
		Fixed:           make([]bool, n),
		WeightByModulus: r.WeightByModulus,
		MaxIterations:   r.MaxIterations,
	}
	seen := make([]bool, n)
	for _, p := range r.Params {
		i, ok := c.Slot(p.Name)
		if !ok {
			return nil, fmt.Errorf("%w: circuit %s has no parameter %s (have %s)",
				ErrInvalidConfig, c, p.Name, strings.Join(c.ParamNames(), ", "))
		}
		if seen[i] {
			return nil, fmt.Errorf("%w: parameter %s given twice", ErrInvalidConfig, p.Name)
		}
		seen[i] = true

		opts.Initial[i] = p.Initial
		opts.Lower[i], opts.Upper[i] = math.Inf(-1), math.Inf(1)
		if p.Lower != nil {
			opts.Lower[i] = *p.Lower
		}
		if p.Upper != nil {
			opts.Upper[i] = *p.Upper
		}
		opts.Fixed[i] = p.Fixed
	}
	for i, name := range c.ParamNames() {
		if !seen[i] {
			return nil, fmt.Errorf("%w: no initial value for %s", ErrInvalidConfig, name)
		}
	}
	if r.MaxIterations < 0 {
		return nil, fmt.Errorf("%w: max_iterations %d", ErrInvalidConfig, r.MaxIterations)
	}
	if r.FMin < 0 || r.FMax < 0 || (r.FMax > 0 && r.FMin > r.FMax) {
		return nil, fmt.Errorf("%w: frequency window [%g, %g]", ErrInvalidConfig, r.FMin, r.FMax)
	}

	return &Session{
		Name:         r.Name,
		Circuit:      c,
		Options:      opts,
		Data:         r.Data,
		IgnoreBelowX: r.IgnoreBelowX,
		FMin:         r.FMin,
		FMax:         r.FMax,
		Output:       r.Output,
	}, nil
}
