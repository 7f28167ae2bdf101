package matrix

// Stamper accumulates a linear system A x = b. Indices are 1-based.
type Stamper interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}
