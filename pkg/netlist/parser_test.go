package netlist

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-eis/internal/testutil"
	"github.com/edp1096/toy-eis/pkg/circuit"
	"github.com/edp1096/toy-eis/pkg/element"
)

var kindByPointer = cmp.Comparer(func(a, b *element.Kind) bool { return a == b })

func TestParseCanonicalIdempotent(t *testing.T) {
	inputs := []string{
		"R0",
		"p(R1,C1)",
		"R0-p(R1,C1)",
		" R0 - p( R1 , C1 ) - Wo1 ",
		"R0-p(R1-p(R2,CPE2),CPE1)-W1",
		"p(R1)",
		"p(p(R1,C1),L1)-La2",
		"R0-p(R1,C1)-p(R2,C2)-p(R3,E3)-Gs4-K5-Zarc6-TLMQ7-G8-Ws9-L10",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first, err := Parse(in)
			require.NoError(t, err)

			canon := first.String()
			second, err := Parse(canon)
			require.NoError(t, err)
			require.Equal(t, canon, second.String())
			if diff := cmp.Diff(first.Root(), second.Root(), kindByPointer); diff != "" {
				t.Fatalf("tree changed after re-parse (-first +second):\n%s", diff)
			}
			require.Equal(t, first.ParamNames(), second.ParamNames())
		})
	}
}

func TestParseTree(t *testing.T) {
	ckt, err := Parse("R0-p(R1,CPE1)-Wo1")
	require.NoError(t, err)

	want := &circuit.Series{Children: []circuit.Node{
		&circuit.Element{Name: "R0", Kind: element.Resistor, Offset: 0},
		&circuit.Parallel{Children: []circuit.Node{
			&circuit.Element{Name: "R1", Kind: element.Resistor, Offset: 1},
			&circuit.Element{Name: "CPE1", Kind: element.ConstantPhase, Offset: 2},
		}},
		&circuit.Element{Name: "Wo1", Kind: element.WarburgOpen, Offset: 4},
	}}
	if diff := cmp.Diff(circuit.Node(want), ckt.Root(), kindByPointer); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"R0", "R1", "CPE1_0", "CPE1_1", "Wo1_0", "Wo1_1"}, ckt.ParamNames())
}

func TestParamSlotsMatchArity(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"R0", 1},
		{"p(R1,C1)", 2},
		{"R0-p(R1,CPE1)", 4},
		{"R0-p(R1,C1)-Wo1", 5},
		{"Gs0-Zarc1-TLMQ2", 9},
		{"p(R1-W1,C1)-La1-G1-K1", 9},
		{"R0-p(R1,C1)-p(R2-Ws2,E2)", 8},
	}
	for _, tc := range tests {
		in, want := tc.in, tc.want
		ckt, err := Parse(in)
		require.NoError(t, err, in)

		arity := 0
		for _, e := range ckt.Elements() {
			arity += e.Kind.Arity
		}
		require.Equal(t, want, arity, in)
		require.Equal(t, want, ckt.NumParams(), in)

		_, err = ckt.Bind(make([]float64, want+1))
		require.ErrorIs(t, err, element.ErrParameterCountMismatch, in)
		_, err = ckt.Bind(make([]float64, want-1))
		require.ErrorIs(t, err, element.ErrParameterCountMismatch, in)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"p(R1,C1", ErrUnbalancedParentheses},
		{"p(R1,C1))", ErrUnbalancedParentheses},
		{")R0(", ErrUnbalancedParentheses},
		{"p(p(R1,C1)", ErrUnbalancedParentheses},
		{"X1", element.ErrUnknownElementKind},
		{"R0-p(R1,Y2)", element.ErrUnknownElementKind},
		{"", circuit.ErrEmptyGroup},
		{"p()", circuit.ErrEmptyGroup},
		{"R0--R1", circuit.ErrEmptyGroup},
		{"p(R1,)", circuit.ErrEmptyGroup},
		{"p(,R1)", circuit.ErrEmptyGroup},
		{"R0-", circuit.ErrEmptyGroup},
		{"R0-R0", circuit.ErrDuplicateElementName},
		{"p(R1,C1)-p(R1,C2)", circuit.ErrDuplicateElementName},
		{"R", ErrSyntax},
		{"R_a", ErrSyntax},
		{"1R", ErrSyntax},
		{"R0(C1)", ErrSyntax},
		{"(R0)", ErrSyntax},
		{"R0,C1", ErrSyntax},
		{"p(R0;C1)", ErrSyntax},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			_, err := Parse(tc.in)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParsedParallelRC(t *testing.T) {
	ckt, err := Parse("p(R1,C1)")
	require.NoError(t, err)

	params, err := ckt.BindNamed(map[string]float64{"R1": 100, "C1": 1e-6})
	require.NoError(t, err)

	z, err := ckt.Evaluate(params, 1000)
	require.NoError(t, err)

	w := 2 * math.Pi * 1000
	testutil.RequireComplexNear(t, z, 1/(1.0/100+complex(0, w*1e-6)), 1e-9)
}

func TestParseValue(t *testing.T) {
	tests := map[string]float64{
		"10":     10,
		"-3.5":   -3.5,
		"1e-6":   1e-6,
		".5":     0.5,
		"10k":    10e3,
		"10K":    10e3,
		"2.2meg": 2.2e6,
		"4.7u":   4.7e-6,
		"33n":    33e-9,
		"1p":     1e-12,
		"5m":     5e-3,
		"1G":     1e9,
	}
	for in, want := range tests {
		got, err := ParseValue(in)
		require.NoError(t, err, in)
		require.InEpsilon(t, want, got, 1e-12, in)
	}

	for _, bad := range []string{"", "k", "1x", "1..2", "abc"} {
		_, err := ParseValue(bad)
		require.Error(t, err, bad)
	}

	for _, in := range []string{"1M", "2.5M"} {
		_, err := ParseValue(in)
		require.ErrorIs(t, err, ErrAmbiguousSuffix, in)
	}
}

func TestParseValues(t *testing.T) {
	got, err := ParseValues("10, 100k 1u,0.9")
	require.NoError(t, err)
	require.Equal(t, []float64{10, 100e3, 1e-6, 0.9}, got)

	_, err = ParseValues("10,zz")
	require.Error(t, err)
}
