package element

import "math/cmplx"

// Gerischer: Z = R / sqrt(1 + jw tau)
var Gerischer = register(&Kind{
	Name:        "G",
	Arity:       2,
	Units:       []string{"Ohm", "sec"},
	Description: "Gerischer",
	impedance: func(p []float64, omega float64) complex128 {
		r, tau := p[0], p[1]
		return complex(r, 0) / cmplx.Sqrt(1+jw(omega)*complex(tau, 0))
	},
})

// FiniteGerischer: Z = R / (sqrt(1 + jw tau) tanh(phi sqrt(1 + jw tau)))
var FiniteGerischer = register(&Kind{
	Name:        "Gs",
	Arity:       3,
	Units:       []string{"Ohm", "sec", ""},
	Description: "finite-length Gerischer",
	impedance: func(p []float64, omega float64) complex128 {
		r, tau, phi := p[0], p[1], p[2]
		s := cmplx.Sqrt(1 + jw(omega)*complex(tau, 0))
		return complex(r, 0) / (s * tanh(complex(phi, 0)*s))
	},
})
