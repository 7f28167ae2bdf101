package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidSweep = errors.New("invalid frequency sweep")

// GenerateFrequencies spreads nPoints frequencies from fStart to fStop,
// both included. pType is "DEC" or "OCT" for logarithmic spacing and
// "LIN" for linear spacing.
func GenerateFrequencies(fStart, fStop float64, nPoints int, pType string) ([]float64, error) {
	if !(fStart > 0) || !(fStop >= fStart) || math.IsInf(fStop, 0) {
		return nil, fmt.Errorf("%w: start %g, stop %g", ErrInvalidSweep, fStart, fStop)
	}
	if nPoints < 1 {
		return nil, fmt.Errorf("%w: %d points", ErrInvalidSweep, nPoints)
	}
	if nPoints == 1 {
		return []float64{fStart}, nil
	}

	frequencies := make([]float64, nPoints)
	last := nPoints - 1

	switch strings.ToUpper(pType) {
	case "DEC": // Decade
		logStart := math.Log10(fStart)
		logStop := math.Log10(fStop)
		step := (logStop - logStart) / float64(last)
		for i := range nPoints {
			frequencies[i] = math.Pow(10, logStart+float64(i)*step)
		}

	case "OCT": // Octave
		logStart := math.Log2(fStart)
		logStop := math.Log2(fStop)
		step := (logStop - logStart) / float64(last)
		for i := range nPoints {
			frequencies[i] = math.Pow(2, logStart+float64(i)*step)
		}

	case "LIN": // Linear
		step := (fStop - fStart) / float64(last)
		for i := range nPoints {
			frequencies[i] = fStart + float64(i)*step
		}

	default:
		return nil, fmt.Errorf("%w: unknown spacing %q", ErrInvalidSweep, pType)
	}

	// Pin the endpoints against pow/log rounding.
	frequencies[0], frequencies[last] = fStart, fStop
	return frequencies, nil
}
