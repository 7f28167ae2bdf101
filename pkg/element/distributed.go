package element

import "math/cmplx"

// Voigt is a parallel RC written in terms of its time constant,
// Z = R / (1 + jw tau).
var Voigt = register(&Kind{
	Name:        "K",
	Arity:       2,
	Units:       []string{"Ohm", "sec"},
	Description: "RC element",
	impedance: func(p []float64, omega float64) complex128 {
		r, tau := p[0], p[1]
		return complex(r, 0) / (1 + jw(omega)*complex(tau, 0))
	},
})

// Zarc: Z = R / (1 + (jw tau)^gamma)
var Zarc = register(&Kind{
	Name:        "Zarc",
	Arity:       3,
	Units:       []string{"Ohm", "sec", ""},
	Description: "ZARC (R parallel CPE)",
	impedance: func(p []float64, omega float64) complex128 {
		r, tau, gamma := p[0], p[1], p[2]
		return complex(r, 0) / (1 + cmplx.Pow(jw(omega)*complex(tau, 0), complex(gamma, 0)))
	},
})

// TransmissionLine is a simplified transmission line with a CPE interface,
// Z = sqrt(Rion Zs) coth(sqrt(Rion/Zs)) with Zs = 1/(Qs (jw)^gamma).
var TransmissionLine = register(&Kind{
	Name:        "TLMQ",
	Arity:       3,
	Units:       []string{"Ohm", "F sec^(gamma-1)", ""},
	Description: "transmission line (CPE interface)",
	impedance: func(p []float64, omega float64) complex128 {
		rion, qs, gamma := p[0], p[1], p[2]
		zs := 1 / (complex(qs, 0) * cmplx.Pow(jw(omega), complex(gamma, 0)))
		rz := complex(rion, 0)
		return cmplx.Sqrt(rz*zs) / tanh(cmplx.Sqrt(rz/zs))
	},
})
