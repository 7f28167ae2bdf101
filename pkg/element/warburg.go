package element

import "math/cmplx"

// Warburg is the semi-infinite diffusion element, Z = A/sqrt(jw).
var Warburg = register(&Kind{
	Name:        "W",
	Arity:       1,
	Units:       []string{"Ohm sec^-1/2"},
	Description: "semi-infinite Warburg",
	impedance: func(p []float64, omega float64) complex128 {
		return complex(p[0], 0) / cmplx.Sqrt(jw(omega))
	},
})

// WarburgOpen is the finite-space (reflective boundary) Warburg,
// Z = Z0 coth(sqrt(jw tau)) / sqrt(jw tau).
var WarburgOpen = register(&Kind{
	Name:        "Wo",
	Arity:       2,
	Units:       []string{"Ohm", "sec"},
	Description: "finite-space Warburg",
	impedance: func(p []float64, omega float64) complex128 {
		z0, tau := p[0], p[1]
		s := cmplx.Sqrt(jw(omega) * complex(tau, 0))
		return complex(z0, 0) / (s * tanh(s))
	},
})

// WarburgShort is the finite-length (transmissive boundary) Warburg,
// Z = Z0 tanh(sqrt(jw tau)) / sqrt(jw tau).
var WarburgShort = register(&Kind{
	Name:        "Ws",
	Arity:       2,
	Units:       []string{"Ohm", "sec"},
	Description: "finite-length Warburg",
	impedance: func(p []float64, omega float64) complex128 {
		z0, tau := p[0], p[1]
		s := cmplx.Sqrt(jw(omega) * complex(tau, 0))
		return complex(z0, 0) * tanh(s) / s
	},
})
