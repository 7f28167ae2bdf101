// Package lsq solves bounded nonlinear least-squares problems
//
//	minimize 0.5 * sum(r_i(x)^2)   subject to lower <= x <= upper
//
// with a Levenberg-Marquardt iteration. The normal equations of every step
// and the covariance estimate are solved with the sparse LU in pkg/matrix.
package lsq

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	ErrMaxIterations = errors.New("maximum iterations reached")
	ErrSingular      = errors.New("singular normal equations")
	ErrStalled       = errors.New("no step reduces the cost")
)

// ResidualFunc writes the residual vector at x into dst.
// dst has the length declared in Problem.M.
type ResidualFunc func(dst, x []float64) error

type Problem struct {
	Residual ResidualFunc
	M        int       // number of residuals
	X0       []float64 // initial guess
	Lower    []float64 // nil or len(X0); -Inf for unbounded
	Upper    []float64 // nil or len(X0); +Inf for unbounded
}

type Solution struct {
	X           []float64
	Residuals   []float64
	Cost        float64     // 0.5 * sum(r^2)
	Covariance  [][]float64 // nil when it could not be estimated
	Iterations  int
	Evaluations int
	Converged   bool
	Reason      string
}

// Solver is the boundary between the fit driver and the numerical optimiser.
type Solver interface {
	Solve(ctx context.Context, p Problem) (*Solution, error)
}

func (p *Problem) validate() error {
	n := len(p.X0)
	if p.Residual == nil {
		return fmt.Errorf("lsq: nil residual function")
	}
	if n == 0 {
		return fmt.Errorf("lsq: no free parameters")
	}
	if p.M <= 0 {
		return fmt.Errorf("lsq: no residuals")
	}
	if p.Lower != nil && len(p.Lower) != n {
		return fmt.Errorf("lsq: %d lower bounds for %d parameters", len(p.Lower), n)
	}
	if p.Upper != nil && len(p.Upper) != n {
		return fmt.Errorf("lsq: %d upper bounds for %d parameters", len(p.Upper), n)
	}
	for i := range p.X0 {
		lo, hi := p.bounds(i)
		if lo > hi {
			return fmt.Errorf("lsq: parameter %d has lower bound %g above upper bound %g", i, lo, hi)
		}
	}
	return nil
}

func (p *Problem) bounds(i int) (float64, float64) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if p.Lower != nil {
		lo = p.Lower[i]
	}
	if p.Upper != nil {
		hi = p.Upper[i]
	}
	return lo, hi
}

func (p *Problem) clamp(x []float64) {
	for i := range x {
		lo, hi := p.bounds(i)
		x[i] = math.Min(math.Max(x[i], lo), hi)
	}
}

func sumSquares(r []float64) float64 {
	s := 0.0
	for _, v := range r {
		s += v * v
	}
	return s
}

func norm(x []float64) float64 {
	return math.Sqrt(sumSquares(x))
}
