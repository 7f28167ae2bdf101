package consts

const (
	TWOPI   = 6.283185307179586      // 2*pi (rad)
	EPS     = 2.220446049250313e-16  // machine epsilon
	SQRTEPS = 1.4901161193847656e-08 // sqrt(machine epsilon), finite difference step
	Z95     = 1.959963984540054      // two-sided 95% normal quantile
)

// Levenberg-Marquardt defaults
const (
	FTOL    = 1e-10 // relative reduction of the cost
	XTOL    = 1e-10 // relative step size
	GTOL    = 1e-8  // max |cos| between r and a column of J
	MAXITER = 1000  // accepted + rejected steps
	LAMBDA0 = 1e-3  // initial damping
)
