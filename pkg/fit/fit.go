// Package fit adjusts the parameters of a circuit to measured impedance
// data. Optimisation is delegated to an lsq.Solver; this package builds the
// weighted residual vector and turns the solver covariance into error bars.
package fit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/edp1096/toy-eis/internal/consts"
	"github.com/edp1096/toy-eis/internal/ctxlog"
	"github.com/edp1096/toy-eis/pkg/circuit"
	"github.com/edp1096/toy-eis/pkg/element"
	"github.com/edp1096/toy-eis/pkg/lsq"
)

var (
	ErrFitDidNotConverge  = errors.New("fit did not converge")
	ErrSingularCovariance = errors.New("singular covariance")
	ErrLengthMismatch     = errors.New("frequency and impedance lengths differ")
	ErrInvalidBounds      = errors.New("invalid parameter bounds")
	ErrInvalidSigma       = errors.New("invalid measurement uncertainty")
)

type Options struct {
	Initial []float64 // one per parameter slot
	Lower   []float64 // nil for unbounded
	Upper   []float64 // nil for unbounded
	Fixed   []bool    // held-constant mask, nil for all free

	// Sigma is the per-point uncertainty, nil for unit weights.
	// WeightByModulus overrides it with |Z| of the measurement.
	Sigma           []float64
	WeightByModulus bool

	Solver        lsq.Solver // nil selects lsq.LevenbergMarquardt
	MaxIterations int        // default solver only
}

type Result struct {
	Params  []float64
	StdErr  []float64 // 0 for fixed slots, NaN when the covariance is singular
	Lower95 []float64
	Upper95 []float64

	// Covariance of the free parameters, indexed in Free order.
	Covariance [][]float64
	Free       []int

	Cost       float64
	Iterations int
	Converged  bool
	Reason     string
}

// Fit fits circ to the measured spectrum taken at freqs.
// A result is returned together with ErrFitDidNotConverge or
// ErrSingularCovariance so callers can inspect the last iterate.
func Fit(ctx context.Context, circ *circuit.Circuit, freqs []float64, measured []complex128, opts Options) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if len(freqs) != len(measured) {
		return nil, fmt.Errorf("%w: %d frequencies, %d impedances", ErrLengthMismatch, len(freqs), len(measured))
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("%w: no data points", ErrLengthMismatch)
	}

	params, err := circ.Bind(opts.Initial)
	if err != nil {
		return nil, fmt.Errorf("initial guess: %w", err)
	}
	n := len(params)

	fixed := opts.Fixed
	if fixed == nil {
		fixed = make([]bool, n)
	}
	if len(fixed) != n {
		return nil, fmt.Errorf("fixed mask: %w: got %d, want %d", element.ErrParameterCountMismatch, len(fixed), n)
	}

	lower, upper, err := bounds(opts, params, fixed)
	if err != nil {
		return nil, err
	}

	weights, err := inverseSigma(opts, measured)
	if err != nil {
		return nil, err
	}

	var free []int
	for i := range params {
		if !fixed[i] {
			free = append(free, i)
		}
	}

	res := &residual{
		circ:    circ,
		freqs:   freqs,
		base:    params,
		free:    free,
		weights: weights,
		negRe:   make([]float64, len(measured)),
		negIm:   make([]float64, len(measured)),
	}
	for i, z := range measured {
		res.negRe[i] = -real(z)
		res.negIm[i] = -imag(z)
	}

	if len(free) == 0 {
		r := make([]float64, 2*len(freqs))
		if err := res.eval(r, nil); err != nil {
			return nil, err
		}
		out := newResult(params, free)
		out.Cost = 0.5 * sumSquares(r)
		out.Converged, out.Reason = true, "all parameters fixed"
		return out, nil
	}

	problem := lsq.Problem{
		Residual: res.eval,
		M:        2 * len(freqs),
		X0:       make([]float64, len(free)),
		Lower:    make([]float64, len(free)),
		Upper:    make([]float64, len(free)),
	}
	for k, i := range free {
		problem.X0[k] = params[i]
		problem.Lower[k] = lower[i]
		problem.Upper[k] = upper[i]
	}

	solver := opts.Solver
	if solver == nil {
		solver = &lsq.LevenbergMarquardt{MaxIterations: opts.MaxIterations}
	}

	logger.Debug("fit starting", "circuit", circ.String(), "points", len(freqs), "free", len(free))
	sol, solveErr := solver.Solve(ctx, problem)
	if sol == nil {
		return nil, fmt.Errorf("fit %s: %w", circ, solveErr)
	}

	out := newResult(res.full(sol.X), free)
	out.Cost = sol.Cost
	out.Iterations = sol.Iterations
	out.Converged = sol.Converged
	out.Reason = sol.Reason
	out.Covariance = sol.Covariance
	covOK := out.errorBars()

	switch {
	case errors.Is(solveErr, lsq.ErrMaxIterations), errors.Is(solveErr, lsq.ErrStalled), !sol.Converged:
		out.Converged = false
		logger.Warn("fit did not converge", "circuit", circ.String(), "cost", out.Cost, "iterations", out.Iterations)
		if solveErr != nil {
			return out, fmt.Errorf("%w: %s: %w", ErrFitDidNotConverge, out.Reason, solveErr)
		}
		return out, fmt.Errorf("%w: %s", ErrFitDidNotConverge, out.Reason)
	case errors.Is(solveErr, lsq.ErrSingular) || (solveErr == nil && !covOK):
		logger.Warn("covariance unavailable", "circuit", circ.String(), "cost", out.Cost)
		if solveErr != nil {
			return out, fmt.Errorf("%w: %w", ErrSingularCovariance, solveErr)
		}
		return out, ErrSingularCovariance
	case solveErr != nil:
		return nil, fmt.Errorf("fit %s: %w", circ, solveErr)
	}

	logger.Info("fit finished", "circuit", circ.String(), "cost", out.Cost, "iterations", out.Iterations)
	return out, nil
}

func newResult(params []float64, free []int) *Result {
	n := len(params)
	return &Result{
		Params:  params,
		StdErr:  make([]float64, n),
		Lower95: append([]float64(nil), params...),
		Upper95: append([]float64(nil), params...),
		Free:    free,
	}
}

// errorBars fills StdErr and the 95% bounds of the free slots.
// It reports false when the covariance is missing or unusable.
func (r *Result) errorBars() bool {
	ok := len(r.Covariance) == len(r.Free)
	for k, i := range r.Free {
		se := math.NaN()
		if ok {
			if v := r.Covariance[k][k]; v >= 0 && !math.IsInf(v, 0) {
				se = math.Sqrt(v)
			} else {
				ok = false
			}
		}
		r.StdErr[i] = se
		r.Lower95[i] = r.Params[i] - consts.Z95*se
		r.Upper95[i] = r.Params[i] + consts.Z95*se
	}
	return ok
}

func bounds(opts Options, params []float64, fixed []bool) ([]float64, []float64, error) {
	n := len(params)
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := range lower {
		lower[i], upper[i] = math.Inf(-1), math.Inf(1)
	}
	if opts.Lower != nil {
		if len(opts.Lower) != n {
			return nil, nil, fmt.Errorf("lower bounds: %w: got %d, want %d", element.ErrParameterCountMismatch, len(opts.Lower), n)
		}
		copy(lower, opts.Lower)
	}
	if opts.Upper != nil {
		if len(opts.Upper) != n {
			return nil, nil, fmt.Errorf("upper bounds: %w: got %d, want %d", element.ErrParameterCountMismatch, len(opts.Upper), n)
		}
		copy(upper, opts.Upper)
	}

	for i := range params {
		switch {
		case math.IsNaN(lower[i]) || math.IsNaN(upper[i]):
			return nil, nil, fmt.Errorf("%w: NaN bound for slot %d", ErrInvalidBounds, i)
		case lower[i] > upper[i]:
			return nil, nil, fmt.Errorf("%w: slot %d lower %g above upper %g", ErrInvalidBounds, i, lower[i], upper[i])
		case !fixed[i] && (params[i] < lower[i] || params[i] > upper[i]):
			return nil, nil, fmt.Errorf("%w: slot %d initial %g outside [%g, %g]", ErrInvalidBounds, i, params[i], lower[i], upper[i])
		}
	}
	return lower, upper, nil
}

// inverseSigma returns 1/sigma per point.
func inverseSigma(opts Options, measured []complex128) ([]float64, error) {
	m := len(measured)
	sigma := make([]float64, m)

	switch {
	case opts.WeightByModulus:
		re := make([]float64, m)
		im := make([]float64, m)
		for i, z := range measured {
			re[i], im[i] = real(z), imag(z)
		}
		vecmath.Magnitude(sigma, re, im)
	case opts.Sigma != nil:
		if len(opts.Sigma) != m {
			return nil, fmt.Errorf("sigma: %w: got %d, want %d", ErrLengthMismatch, len(opts.Sigma), m)
		}
		copy(sigma, opts.Sigma)
	default:
		for i := range sigma {
			sigma[i] = 1
		}
	}

	for i, s := range sigma {
		if !(s > 0) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: point %d has sigma %g", ErrInvalidSigma, i, s)
		}
		sigma[i] = 1 / s
	}
	return sigma, nil
}

type residual struct {
	circ    *circuit.Circuit
	freqs   []float64
	base    []float64 // full vector holding the fixed values
	free    []int
	weights []float64
	negRe   []float64
	negIm   []float64
}

func (r *residual) full(x []float64) []float64 {
	p := append([]float64(nil), r.base...)
	for k, i := range r.free {
		p[i] = x[k]
	}
	return p
}

// eval writes [(Re Zm - Re Zd)/sigma..., (Im Zm - Im Zd)/sigma...] into dst.
func (r *residual) eval(dst, x []float64) error {
	n := len(r.freqs)
	p := r.full(x)
	re, im := dst[:n], dst[n:]
	for i, f := range r.freqs {
		z, err := r.circ.Evaluate(p, f)
		if err != nil {
			return err
		}
		if cmplx.IsNaN(z) || cmplx.IsInf(z) {
			return fmt.Errorf("impedance %v at %g Hz", z, f)
		}
		re[i], im[i] = real(z), imag(z)
	}

	vecmath.AddBlockInPlace(re, r.negRe)
	vecmath.AddBlockInPlace(im, r.negIm)
	vecmath.MulBlockInPlace(re, r.weights)
	vecmath.MulBlockInPlace(im, r.weights)
	return nil
}

func sumSquares(r []float64) float64 {
	s := 0.0
	for _, v := range r {
		s += v * v
	}
	return s
}
