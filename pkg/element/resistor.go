package element

// Resistor: Z = R
var Resistor = register(&Kind{
	Name:        "R",
	Arity:       1,
	Units:       []string{"Ohm"},
	Description: "resistor",
	impedance: func(p []float64, omega float64) complex128 {
		return complex(p[0], 0)
	},
})
