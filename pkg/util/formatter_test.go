package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{0, "Ohm", "0.000 Ohm"},
		{10, "Ohm", "10.000 Ohm"},
		{2200, "Ohm", "2.200 kOhm"},
		{4.7e6, "Ohm", "4.700 MOhm"},
		{3e10, "Ohm", "3.000e+10 Ohm"},
		{0.25, "sec", "250.000 msec"},
		{1e-5, "F", "10.000 uF"},
		{-2.2e-9, "F", "-2.200 nF"},
		{5e-12, "F", "5.000 pF"},
		{1e-15, "F", "1.000e-15 F"},
		{math.NaN(), "F", "NaN F"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, FormatValueFactor(tt.value, tt.unit))
	}
}

func TestFormatUncertain(t *testing.T) {
	require.Equal(t, "10.000 Ohm", FormatUncertain(10, 0, "Ohm"))
	require.Equal(t, "1.0000e+01 ± 2.50e-01 Ohm", FormatUncertain(10, 0.25, "Ohm"))
	require.Equal(t, "10.000 Ohm (± n/a)", FormatUncertain(10, math.NaN(), "Ohm"))
}

func TestFormatFrequency(t *testing.T) {
	require.Equal(t, "  2.500 MHz", FormatFrequency(2.5e6))
	require.Equal(t, "  1.000 kHz", FormatFrequency(1000))
	require.Equal(t, " 50.000 Hz ", FormatFrequency(50))
	require.Equal(t, "100.000 mHz", FormatFrequency(0.1))
}

func TestFormatMagnitudePhase(t *testing.T) {
	require.Equal(t, "1.00e+03", FormatMagnitude(1000))
	require.Equal(t, "    73.5", FormatMagnitude(73.5))
	require.Equal(t, " -45.0", FormatPhase(-45))
	require.Equal(t, "Z=1.00e+03< -45.0deg", FormatMagnitudePhase("Z", 1000, -45))
}
