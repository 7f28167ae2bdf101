package element

import "math/cmplx"

// Inductor: Z = jwL
var Inductor = register(&Kind{
	Name:        "L",
	Arity:       1,
	Units:       []string{"H"},
	Description: "inductor",
	impedance: func(p []float64, omega float64) complex128 {
		return jw(omega) * complex(p[0], 0)
	},
})

// ModifiedInductor: Z = L (jw)^a
var ModifiedInductor = register(&Kind{
	Name:        "La",
	Arity:       2,
	Units:       []string{"H sec", ""},
	Description: "modified inductor",
	impedance: func(p []float64, omega float64) complex128 {
		l, alpha := p[0], p[1]
		return complex(l, 0) * cmplx.Pow(jw(omega), complex(alpha, 0))
	},
})
