package analysis

import (
	"context"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/edp1096/toy-eis/pkg/circuit"
)

// Result keys
const (
	FREQ   = "FREQ"
	ZRE    = "Z_RE"
	ZIM    = "Z_IM"
	ZMAG   = "Z_MAG"
	ZPHASE = "Z_PHASE" // degrees
)

type Analysis interface {
	Setup(ckt *circuit.Circuit, params []float64) error
	Execute(ctx context.Context) error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Circuit *circuit.Circuit
	Params  []float64
	results map[string][]float64
}

func NewBaseAnalysis() *BaseAnalysis {
	return &BaseAnalysis{results: make(map[string][]float64)}
}

// StoreACResult appends a block of impedance points to the results,
// with magnitude and phase alongside the rectangular parts.
func (a *BaseAnalysis) StoreACResult(freqs []float64, z []complex128) {
	b := Bode(z)
	a.results[FREQ] = append(a.results[FREQ], freqs...)
	a.results[ZRE] = append(a.results[ZRE], b.Real...)
	a.results[ZIM] = append(a.results[ZIM], b.Imag...)
	a.results[ZMAG] = append(a.results[ZMAG], b.Magnitude...)
	a.results[ZPHASE] = append(a.results[ZPHASE], b.Phase...)
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}

// BodeData is a spectrum split into rectangular and polar parts.
type BodeData struct {
	Real      []float64
	Imag      []float64
	Magnitude []float64
	Phase     []float64 // degrees
}

func Bode(z []complex128) BodeData {
	n := len(z)
	b := BodeData{
		Real:      make([]float64, n),
		Imag:      make([]float64, n),
		Magnitude: make([]float64, n),
		Phase:     make([]float64, n),
	}
	for i, v := range z {
		b.Real[i], b.Imag[i] = real(v), imag(v)
	}
	vecmath.Magnitude(b.Magnitude, b.Real, b.Imag)
	for i := range z {
		b.Phase[i] = math.Atan2(b.Imag[i], b.Real[i]) * 180.0 / math.Pi
	}
	return b
}
