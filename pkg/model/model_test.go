package model

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-eis/pkg/fit"
	"github.com/edp1096/toy-eis/pkg/netlist"
)

func TestRoundTrip(t *testing.T) {
	c := netlist.MustParse("R0-p(R1,CPE1)-Wo1")
	opts := fit.Options{
		Initial: []float64{10, 100, 1e-5, 0.9, 50, 2},
		Lower:   []float64{0, 0, 0, 0.5, 0, 0},
		Upper:   []float64{math.Inf(1), 1e4, 1, 1, math.Inf(1), math.Inf(1)},
		Fixed:   []bool{false, false, false, true, false, false},
	}
	res := &fit.Result{
		Params:    []float64{10.25, 98.765432109876, 1.2345678901234e-5, 0.9, 48.5, 1.75},
		StdErr:    []float64{0.1, 1.5, 2e-7, 0, 0.5, math.NaN()},
		Converged: true,
		Cost:      0.0123,
	}

	m, err := FromFit("cell", c, opts, res)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, m))
	require.Contains(t, buf.String(), "circuit: R0-p(R1,CPE1)-Wo1")
	require.Contains(t, buf.String(), "stderr: .nan")

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.True(t, math.IsNaN(loaded.Parameters[5].StdErr))
	if diff := cmp.Diff(m, loaded, cmpopts.EquateNaNs()); diff != "" {
		t.Fatalf("round trip mismatch (-saved +loaded):\n%s", diff)
	}

	values, err := loaded.Values()
	require.NoError(t, err)
	require.Equal(t, res.Params, values)

	lc, err := loaded.Circuit()
	require.NoError(t, err)
	require.Equal(t, c.String(), lc.String())
	require.Equal(t, c.ParamNames(), lc.ParamNames())

	rc, ropts, err := loaded.FitOptions()
	require.NoError(t, err)
	require.Equal(t, c.String(), rc.String())
	require.Equal(t, res.Params, ropts.Initial)
	require.Equal(t, opts.Lower, ropts.Lower)
	require.Equal(t, opts.Upper, ropts.Upper)
	require.Equal(t, opts.Fixed, ropts.Fixed)
}

func TestUnboundedOmitted(t *testing.T) {
	c := netlist.MustParse("R0")
	m, err := New("", c, fit.Options{Initial: []float64{10}})
	require.NoError(t, err)
	require.False(t, m.Fitted)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, m))
	require.NotContains(t, buf.String(), "lower")
	require.NotContains(t, buf.String(), "upper")
	require.Contains(t, buf.String(), "unit: Ohm")
}

func TestLoadByName(t *testing.T) {
	src := `
circuit: R0-p(R1,C1)
parameters:
  - name: C1
    initial: 1e-6
    value: 2e-6
  - name: R0
    initial: 10
    value: 11
  - name: R1
    initial: 100
    value: 101
    fixed: true
`
	m, err := Load(strings.NewReader(src))
	require.NoError(t, err)
	values, err := m.Values()
	require.NoError(t, err)
	require.Equal(t, []float64{11, 101, 2e-6}, values)

	_, opts, err := m.FitOptions()
	require.NoError(t, err)
	require.Equal(t, []bool{false, true, false}, opts.Fixed)
	require.True(t, math.IsInf(opts.Lower[0], -1))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"not yaml", "circuit: [unterminated"},
		{"no circuit", "parameters: []"},
		{"bad circuit", "circuit: p(R1,C1\nparameters: []"},
		{"missing parameter", "circuit: R0-R1\nparameters:\n  - name: R0\n    value: 1\n"},
		{"unknown parameter", "circuit: R0\nparameters:\n  - name: R0\n    value: 1\n  - name: X9\n    value: 2\n"},
		{"duplicate parameter", "circuit: R0\nparameters:\n  - name: R0\n    value: 1\n  - name: R0\n    value: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.src))
			require.ErrorIs(t, err, ErrInvalidModel)
		})
	}
}

func TestNewValidatesLengths(t *testing.T) {
	c := netlist.MustParse("R0-C1")
	_, err := New("x", c, fit.Options{Initial: []float64{1}})
	require.Error(t, err)
	_, err = New("x", c, fit.Options{Initial: []float64{1, 2}, Lower: []float64{0}})
	require.ErrorIs(t, err, ErrInvalidModel)

	_, err = FromFit("x", c, fit.Options{Initial: []float64{1, 2}}, &fit.Result{Params: []float64{1}})
	require.ErrorIs(t, err, ErrInvalidModel)
}
