package element

import "math/cmplx"

// Capacitor: Z = 1/(jwC)
var Capacitor = register(&Kind{
	Name:        "C",
	Arity:       1,
	Units:       []string{"F"},
	Description: "capacitor",
	impedance: func(p []float64, omega float64) complex128 {
		return 1 / (jw(omega) * complex(p[0], 0))
	},
})

// ConstantPhase: Z = 1/(Q (jw)^a). E and Q are accepted as older spellings.
var ConstantPhase = register(&Kind{
	Name:        "CPE",
	Arity:       2,
	Units:       []string{"Ohm^-1 sec^a", ""},
	Description: "constant phase element",
	impedance: func(p []float64, omega float64) complex128 {
		q, alpha := p[0], p[1]
		return 1 / (complex(q, 0) * cmplx.Pow(jw(omega), complex(alpha, 0)))
	},
}, "E", "Q")
