package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/scott-cotton/cli"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-eis/pkg/analysis"
	"github.com/edp1096/toy-eis/pkg/netlist"
)

func TestFitSessionFromFlags(t *testing.T) {
	cfg := &fitConfig{
		Circuit: "R0-p(R1,C1)",
		Params:  "10, 1k, 1u",
		Fixed:   "R0",
		Data:    "cell.csv",
		Modulus: true,
		FMin:    "100m",
		FMax:    "10k",
		Out:     "out.yaml",
	}
	s, err := cfg.session()
	require.NoError(t, err)
	require.Equal(t, "R0-p(R1,C1)", s.Circuit.String())
	require.Equal(t, []float64{10, 1000, 1e-6}, s.Options.Initial)
	require.Equal(t, []bool{true, false, false}, s.Options.Fixed)
	require.True(t, s.Options.WeightByModulus)
	require.InDelta(t, 0.1, s.FMin, 1e-15)
	require.Equal(t, 1e4, s.FMax)
	require.Equal(t, "cell.csv", s.Data)
}

func TestFitSessionErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   fitConfig
		usage bool
	}{
		{"no circuit", fitConfig{}, true},
		{"bad values", fitConfig{Circuit: "R0", Params: "ten"}, true},
		{"wrong count", fitConfig{Circuit: "R0", Params: "1,2"}, false},
		{"unknown fixed", fitConfig{Circuit: "R0", Params: "1", Fixed: "R7"}, true},
		{"bad fmin", fitConfig{Circuit: "R0", Params: "1", FMin: "x"}, true},
		{"ambiguous fmax", fitConfig{Circuit: "R0", Params: "1", FMax: "1M"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.session()
			require.Error(t, err)
			require.Equal(t, tt.usage, errors.Is(err, cli.ErrUsage))
		})
	}
}

func TestPrintSpectrum(t *testing.T) {
	ckt := netlist.MustParse("R0")
	ac := analysis.NewACAt([]float64{1, 1000})
	require.NoError(t, ac.Setup(ckt, []float64{50}))
	require.NoError(t, ac.Execute(commandContext(false)))

	var buf bytes.Buffer
	printSpectrum(&buf, ckt, ac.GetResults())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	require.Contains(t, lines[0], "Impedance of R0 (2 frequency points)")
	require.Contains(t, lines[4], "1.000 kHz")
	require.Contains(t, lines[4], "50")
}

func TestUseColor(t *testing.T) {
	require.True(t, useColor(&bytes.Buffer{}, true))
	require.False(t, useColor(&bytes.Buffer{}, false))
}

func TestRoot(t *testing.T) {
	require.NotNil(t, Root())
}
