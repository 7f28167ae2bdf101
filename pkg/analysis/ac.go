package analysis

import (
	"context"
	"fmt"

	"github.com/edp1096/toy-eis/pkg/circuit"
)

// ACAnalysis sweeps the impedance of a bound circuit over frequency.
type ACAnalysis struct {
	BaseAnalysis
	startFreq   float64
	stopFreq    float64
	numPoints   int
	pointsType  string // "DEC", "OCT", "LIN"
	Workers     int
	frequencies []float64
	spectrum    []complex128
}

func NewAC(fStart, fStop float64, nPoints int, pType string) *ACAnalysis {
	return &ACAnalysis{
		BaseAnalysis: *NewBaseAnalysis(),
		startFreq:    fStart,
		stopFreq:     fStop,
		numPoints:    nPoints,
		pointsType:   pType,
	}
}

// NewACAt sweeps caller-supplied frequencies, e.g. those of a data file.
func NewACAt(freqs []float64) *ACAnalysis {
	return &ACAnalysis{
		BaseAnalysis: *NewBaseAnalysis(),
		frequencies:  append([]float64(nil), freqs...),
	}
}

func (ac *ACAnalysis) Setup(ckt *circuit.Circuit, params []float64) error {
	bound, err := ckt.Bind(params)
	if err != nil {
		return fmt.Errorf("binding parameters: %w", err)
	}
	ac.Circuit = ckt
	ac.Params = bound

	if ac.frequencies == nil {
		ac.frequencies, err = GenerateFrequencies(ac.startFreq, ac.stopFreq, ac.numPoints, ac.pointsType)
		if err != nil {
			return err
		}
	}
	for _, f := range ac.frequencies {
		if !(f > 0) {
			return fmt.Errorf("%w: frequency %g", ErrInvalidSweep, f)
		}
	}
	return nil
}

func (ac *ACAnalysis) Execute(ctx context.Context) error {
	if ac.Circuit == nil {
		return fmt.Errorf("circuit not set")
	}

	z, err := Spectrum(ctx, ac.Circuit, ac.Params, ac.frequencies, ac.Workers)
	if err != nil {
		return fmt.Errorf("evaluating %s: %w", ac.Circuit, err)
	}
	ac.spectrum = z
	ac.StoreACResult(ac.frequencies, z)
	return nil
}

func (ac *ACAnalysis) Frequencies() []float64 { return ac.frequencies }

func (ac *ACAnalysis) Spectrum() []complex128 { return ac.spectrum }
