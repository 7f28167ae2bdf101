package util

import (
	"fmt"
	"math"
)

func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		return fmt.Sprintf("%v %s", value, unit)
	case absValue >= 1e9:
		return fmt.Sprintf("%.3e %s", value, unit)
	case absValue >= 1e6:
		return fmt.Sprintf("%.3f M%s", value/1e6, unit)
	case absValue >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1 || value == 0:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatUncertain renders "value ± stderr unit" with the stderr in the
// value's scale, or "value unit" when stderr is zero.
func FormatUncertain(value, stderr float64, unit string) string {
	if stderr == 0 {
		return FormatValueFactor(value, unit)
	}
	if math.IsNaN(stderr) {
		return FormatValueFactor(value, unit) + " (± n/a)"
	}
	return fmt.Sprintf("%.4e ± %.2e %s", value, stderr, unit)
}

func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e6:
		return fmt.Sprintf("%7.3f MHz", freq/1e6)
	case freq >= 1e3:
		return fmt.Sprintf("%7.3f kHz", freq/1e3)
	case freq >= 1 || freq == 0:
		return fmt.Sprintf("%7.3f Hz ", freq)
	default:
		return fmt.Sprintf("%7.3f mHz", freq*1e3)
	}
}

func FormatMagnitude(value float64) string {
	if value >= 1000 || (value < 0.001 && value != 0) {
		return fmt.Sprintf("%8.2e", value) // "1.00e+03" or "5.43e-05"
	}
	return fmt.Sprintf("%8.3g", value) // "  732.5 "
}

func FormatPhase(value float64) string {
	return fmt.Sprintf("%6.1f", value) // "  90.0"
}

func FormatMagnitudePhase(name string, value, phase float64) string {
	return fmt.Sprintf("%s=%s<%sdeg", name, FormatMagnitude(value), FormatPhase(phase))
}
