package lsq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/edp1096/toy-eis/internal/consts"
	"github.com/edp1096/toy-eis/internal/ctxlog"
	"github.com/edp1096/toy-eis/pkg/matrix"
)

const (
	lambdaMin = 1e-15
	lambdaMax = 1e16
)

// LevenbergMarquardt with Marquardt diagonal scaling and forward-difference
// Jacobians. Parameters held on a bound by the gradient are left out of the
// step; the rest of the step is projected back onto the box.
// Zero values select the defaults in internal/consts.
type LevenbergMarquardt struct {
	MaxIterations int
	FTol          float64
	XTol          float64
	GTol          float64
	Lambda0       float64
}

var _ Solver = (*LevenbergMarquardt)(nil)

func NewLevenbergMarquardt() *LevenbergMarquardt {
	return &LevenbergMarquardt{
		MaxIterations: consts.MAXITER,
		FTol:          consts.FTOL,
		XTol:          consts.XTOL,
		GTol:          consts.GTOL,
		Lambda0:       consts.LAMBDA0,
	}
}

func (lm *LevenbergMarquardt) withDefaults() LevenbergMarquardt {
	s := *lm
	if s.MaxIterations <= 0 {
		s.MaxIterations = consts.MAXITER
	}
	if s.FTol <= 0 {
		s.FTol = consts.FTOL
	}
	if s.XTol <= 0 {
		s.XTol = consts.XTOL
	}
	if s.GTol <= 0 {
		s.GTol = consts.GTOL
	}
	if s.Lambda0 <= 0 {
		s.Lambda0 = consts.LAMBDA0
	}
	return s
}

type state struct {
	p     *Problem
	n, m  int
	x     []float64
	r     []float64
	jac   [][]float64 // m rows of n
	cost  float64
	evals int
}

func (s *state) eval(dst, x []float64) error {
	s.evals++
	if err := s.p.Residual(dst, x); err != nil {
		return err
	}
	for i, v := range dst {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite residual %d at x=%v", i, x)
		}
	}
	return nil
}

// jacobian fills s.jac by forward differences around s.x, stepping
// backwards when the forward step would cross the upper bound.
func (s *state) jacobian() error {
	xh := append([]float64(nil), s.x...)
	rh := make([]float64, s.m)
	for j := 0; j < s.n; j++ {
		h := consts.SQRTEPS * math.Abs(s.x[j])
		if h == 0 {
			h = consts.SQRTEPS
		}
		if _, hi := s.p.bounds(j); s.x[j]+h > hi {
			h = -h
		}

		xh[j] = s.x[j] + h
		err := s.eval(rh, xh)
		if err != nil {
			h = -h
			xh[j] = s.x[j] + h
			if err = s.eval(rh, xh); err != nil {
				return fmt.Errorf("jacobian column %d: %w", j, err)
			}
		}
		h = xh[j] - s.x[j]
		for i := 0; i < s.m; i++ {
			s.jac[i][j] = (rh[i] - s.r[i]) / h
		}
		xh[j] = s.x[j]
	}
	return nil
}

// normal returns J^T J and J^T r.
func (s *state) normal() ([][]float64, []float64) {
	a := make([][]float64, s.n)
	for i := range a {
		a[i] = make([]float64, s.n)
	}
	g := make([]float64, s.n)
	for k := 0; k < s.m; k++ {
		row := s.jac[k]
		for i := 0; i < s.n; i++ {
			if row[i] == 0 {
				continue
			}
			g[i] += row[i] * s.r[k]
			for j := i; j < s.n; j++ {
				a[i][j] += row[i] * row[j]
			}
		}
	}
	for i := 0; i < s.n; i++ {
		for j := 0; j < i; j++ {
			a[i][j] = a[j][i]
		}
	}
	return a, g
}

// free lists the parameters a step may move. A parameter sitting on a bound
// is held when the descent direction -g points out of the box.
func (s *state) free(g []float64) []int {
	idx := make([]int, 0, s.n)
	for i, x := range s.x {
		lo, hi := s.p.bounds(i)
		if (x <= lo && g[i] > 0) || (x >= hi && g[i] < 0) {
			continue
		}
		idx = append(idx, i)
	}
	return idx
}

// gradientCosine is the largest |cos| of the angle between r and a free
// Jacobian column. a[i][i] is the squared norm of column i.
func (s *state) gradientCosine(a [][]float64, g []float64, free []int) float64 {
	rn := norm(s.r)
	if rn == 0 {
		return 0
	}
	c := 0.0
	for _, i := range free {
		if a[i][i] > 0 {
			c = math.Max(c, math.Abs(g[i])/(math.Sqrt(a[i][i])*rn))
		}
	}
	return c
}

// stampStep writes (A + lambda*diag(A)) dx = -g restricted to free.
func stampStep(st matrix.Stamper, a [][]float64, g []float64, free []int, lambda float64) {
	dmax := 0.0
	for _, i := range free {
		dmax = math.Max(dmax, a[i][i])
	}
	for k, i := range free {
		for l, j := range free {
			st.AddElement(k+1, l+1, a[i][j])
		}
		st.AddElement(k+1, k+1, lambda*math.Max(a[i][i], 1e-12*dmax))
		st.AddRHS(k+1, -g[i])
	}
}

func step(ctx context.Context, a [][]float64, g []float64, free []int, lambda float64) ([]float64, error) {
	mat, err := matrix.NewMatrix(len(free))
	if err != nil {
		return nil, err
	}
	defer mat.Destroy()

	stampStep(mat, a, g, free, lambda)
	if logger := ctxlog.FromContext(ctx); logger.Enabled(ctx, slog.LevelDebug) {
		var sb strings.Builder
		mat.PrintSystem(&sb)
		logger.Debug("lm system", "lambda", lambda, "free", free, "system", sb.String())
	}
	if err := mat.Solve(); err != nil {
		return nil, err
	}
	return mat.Solution(), nil
}

func (lm *LevenbergMarquardt) Solve(ctx context.Context, p Problem) (*Solution, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	cfg := lm.withDefaults()
	logger := ctxlog.FromContext(ctx)

	s := &state{p: &p, n: len(p.X0), m: p.M}
	s.x = append([]float64(nil), p.X0...)
	p.clamp(s.x)
	s.r = make([]float64, s.m)
	if err := s.eval(s.r, s.x); err != nil {
		return nil, fmt.Errorf("lsq: initial point: %w", err)
	}
	s.cost = 0.5 * sumSquares(s.r)
	cost0 := s.cost
	s.jac = make([][]float64, s.m)
	for i := range s.jac {
		s.jac[i] = make([]float64, s.n)
	}
	if err := s.jacobian(); err != nil {
		return nil, fmt.Errorf("lsq: initial point: %w", err)
	}

	sol := &Solution{}
	lambda := cfg.Lambda0
	stalled := false
	xNew := make([]float64, s.n)
	rNew := make([]float64, s.m)

	// reject raises the damping after a failed step and reports whether
	// the damping limit has been passed.
	reject := func(iter int, err error) bool {
		logger.Debug("lm step rejected", "iter", iter, "lambda", lambda, "error", err)
		lambda *= 10
		return lambda > lambdaMax
	}

	iter := 0
	for ; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a, g := s.normal()
		free := s.free(g)
		if s.gradientCosine(a, g, free) <= cfg.GTol {
			sol.Converged, sol.Reason = true, "gradient below gtol"
			break
		}

		dx, err := step(ctx, a, g, free, lambda)
		if err != nil {
			if stalled = reject(iter, err); stalled {
				break
			}
			continue
		}

		copy(xNew, s.x)
		for k, i := range free {
			xNew[i] += dx[k]
		}
		p.clamp(xNew)

		if err := s.eval(rNew, xNew); err != nil {
			if stalled = reject(iter, err); stalled {
				break
			}
			continue
		}
		costNew := 0.5 * sumSquares(rNew)

		if !(costNew < s.cost) {
			if stalled = reject(iter, fmt.Errorf("cost %g not below %g", costNew, s.cost)); stalled {
				break
			}
			continue
		}

		moved := 0.0
		for i := range xNew {
			d := xNew[i] - s.x[i]
			moved += d * d
		}
		moved = math.Sqrt(moved)
		reduction := s.cost - costNew

		copy(s.x, xNew)
		copy(s.r, rNew)
		s.cost = costNew
		lambda = math.Max(lambda/10, lambdaMin)
		logger.Debug("lm step", "iter", iter, "cost", s.cost, "lambda", lambda, "free", len(free))

		if s.cost == 0 {
			sol.Converged, sol.Reason = true, "zero residual"
			iter++
			break
		}
		if reduction <= cfg.FTol*(s.cost+reduction) {
			sol.Converged, sol.Reason = true, "cost reduction below ftol"
			iter++
			break
		}
		if moved <= cfg.XTol*(norm(s.x)+cfg.XTol) {
			sol.Converged, sol.Reason = true, "step below xtol"
			iter++
			break
		}

		if err := s.jacobian(); err != nil {
			return nil, fmt.Errorf("lsq: iteration %d: %w", iter, err)
		}
	}

	// A stall leaves x where the gradient test just failed, so only a
	// residual already at rounding level counts as converged.
	if stalled {
		if s.cost <= consts.EPS*cost0 {
			sol.Converged, sol.Reason = true, "residual at rounding level"
		} else {
			sol.Reason = fmt.Sprintf("no step reduces the cost (damping %g)", lambda)
		}
	}

	sol.X = s.x
	sol.Residuals = s.r
	sol.Cost = s.cost
	sol.Iterations = iter
	sol.Evaluations = s.evals
	if !sol.Converged && !stalled {
		sol.Reason = fmt.Sprintf("no convergence in %d iterations", cfg.MaxIterations)
	}

	// The Jacobian must describe the returned point.
	if err := s.jacobian(); err != nil {
		return sol, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	cov, covErr := s.covariance()
	sol.Covariance = cov

	switch {
	case !sol.Converged && stalled:
		return sol, fmt.Errorf("%w: cost %g after %d iterations", ErrStalled, sol.Cost, iter)
	case !sol.Converged:
		return sol, fmt.Errorf("%w: cost %g after %d iterations", ErrMaxIterations, sol.Cost, iter)
	case covErr != nil:
		return sol, covErr
	}
	return sol, nil
}

// covariance estimates (J^T J)^-1 * s^2 with s^2 = sum(r^2)/(m-n).
func (s *state) covariance() ([][]float64, error) {
	if s.m <= s.n {
		return nil, fmt.Errorf("%w: %d residuals for %d parameters", ErrSingular, s.m, s.n)
	}

	a, _ := s.normal()
	mat, err := matrix.NewMatrix(s.n)
	if err != nil {
		return nil, err
	}
	defer mat.Destroy()
	for i := 0; i < s.n; i++ {
		for j := 0; j < s.n; j++ {
			mat.AddElement(i+1, j+1, a[i][j])
		}
	}

	inv, err := mat.Inverse()
	if err != nil {
		if errors.Is(err, matrix.ErrSingular) {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		return nil, err
	}

	s2 := sumSquares(s.r) / float64(s.m-s.n)
	for i := range inv {
		if !(inv[i][i] > 0) {
			return nil, fmt.Errorf("%w: non-positive variance for parameter %d", ErrSingular, i)
		}
		for j := range inv[i] {
			inv[i][j] *= s2
		}
	}
	return inv, nil
}
