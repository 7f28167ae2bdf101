package circuit

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-eis/internal/testutil"
	"github.com/edp1096/toy-eis/pkg/element"
)

func elem(name string, kind *element.Kind) *Element {
	return &Element{Name: name, Kind: kind}
}

func TestLoneResistorIsFlat(t *testing.T) {
	ckt, err := New(elem("R0", element.Resistor))
	require.NoError(t, err)
	require.Equal(t, "R0", ckt.String())

	for _, f := range []float64{1e-2, 1, 1e3, 1e6} {
		z, err := ckt.Evaluate([]float64{47}, f)
		require.NoError(t, err)
		require.Equal(t, complex(47, 0), z)
	}
}

func TestParallelIdenticalResistorsHalve(t *testing.T) {
	ckt, err := New(&Parallel{Children: []Node{
		elem("R1", element.Resistor),
		elem("R2", element.Resistor),
	}})
	require.NoError(t, err)

	z, err := ckt.Spectrum([]float64{220, 220}, []float64{0.1, 10, 1e5})
	require.NoError(t, err)
	testutil.RequireSpectrumNear(t, z, []complex128{110, 110, 110}, 1e-15)
}

func TestParallelRC(t *testing.T) {
	ckt, err := New(&Parallel{Children: []Node{
		elem("R1", element.Resistor),
		elem("C1", element.Capacitor),
	}})
	require.NoError(t, err)
	require.Equal(t, "p(R1,C1)", ckt.String())

	w := 2 * math.Pi * 1000
	want := 1 / (1.0/100 + complex(0, w*1e-6))
	z, err := ckt.Evaluate([]float64{100, 1e-6}, 1000)
	require.NoError(t, err)
	testutil.RequireComplexNear(t, z, want, 1e-9)
}

func TestSeriesOrderDoesNotChangeImpedance(t *testing.T) {
	a, err := New(&Series{Children: []Node{
		elem("R0", element.Resistor),
		&Parallel{Children: []Node{elem("R1", element.Resistor), elem("C1", element.Capacitor)}},
		elem("W1", element.Warburg),
	}})
	require.NoError(t, err)
	b, err := New(&Series{Children: []Node{
		elem("W1", element.Warburg),
		elem("R0", element.Resistor),
		&Parallel{Children: []Node{elem("R1", element.Resistor), elem("C1", element.Capacitor)}},
	}})
	require.NoError(t, err)

	require.Equal(t, []string{"R0", "R1", "C1", "W1"}, a.ParamNames())
	require.Equal(t, []string{"W1", "R0", "R1", "C1"}, b.ParamNames())

	values := map[string]float64{"R0": 10, "R1": 100, "C1": 1e-5, "W1": 30}
	pa, err := a.BindNamed(values)
	require.NoError(t, err)
	pb, err := b.BindNamed(values)
	require.NoError(t, err)

	for _, f := range []float64{0.01, 1, 100, 1e4} {
		za, err := a.Evaluate(pa, f)
		require.NoError(t, err)
		zb, err := b.Evaluate(pb, f)
		require.NoError(t, err)
		testutil.RequireComplexNear(t, za, zb, 1e-12)
	}
}

func TestNestedSeriesIsFlattened(t *testing.T) {
	ckt, err := New(&Series{Children: []Node{
		&Series{Children: []Node{elem("R0", element.Resistor), elem("R1", element.Resistor)}},
		&Series{Children: []Node{elem("L0", element.Inductor)}},
	}})
	require.NoError(t, err)
	require.Equal(t, "R0-R1-L0", ckt.String())

	root, ok := ckt.Root().(*Series)
	require.True(t, ok)
	require.Len(t, root.Children, 3)
}

func TestOffsetsFollowArity(t *testing.T) {
	ckt, err := New(&Series{Children: []Node{
		elem("R0", element.Resistor),
		&Parallel{Children: []Node{elem("R1", element.Resistor), elem("CPE1", element.ConstantPhase)}},
		elem("Wo1", element.WarburgOpen),
	}})
	require.NoError(t, err)

	require.Equal(t, 6, ckt.NumParams())
	require.Equal(t, []string{"R0", "R1", "CPE1_0", "CPE1_1", "Wo1_0", "Wo1_1"}, ckt.ParamNames())
	require.Equal(t, []string{"Ohm", "Ohm", "Ohm^-1 sec^a", "", "Ohm", "sec"}, ckt.Units())

	offsets := []int{}
	for _, e := range ckt.Elements() {
		offsets = append(offsets, e.Offset)
	}
	require.Equal(t, []int{0, 1, 2, 4}, offsets)

	slot, ok := ckt.Slot("Wo1_0")
	require.True(t, ok)
	require.Equal(t, 4, slot)
}

func TestSingularParallelCombination(t *testing.T) {
	ckt, err := New(&Parallel{Children: []Node{
		elem("R1", element.Resistor),
		elem("R2", element.Resistor),
	}})
	require.NoError(t, err)

	_, err = ckt.Evaluate([]float64{0, 10}, 1)
	require.ErrorIs(t, err, ErrSingularParallelCombination)
}

func TestInfiniteBranchDropsOut(t *testing.T) {
	// A zero capacitance is an open branch: 1/Inf contributes nothing.
	ckt, err := New(&Parallel{Children: []Node{
		elem("R1", element.Resistor),
		elem("C1", element.Capacitor),
	}})
	require.NoError(t, err)

	z, err := ckt.Evaluate([]float64{50, 0}, 100)
	require.NoError(t, err)
	require.False(t, cmplx.IsNaN(z))
	testutil.RequireComplexNear(t, z, 50, 1e-12)
}

func TestBindCountMismatch(t *testing.T) {
	ckt, err := New(&Series{Children: []Node{
		elem("R0", element.Resistor),
		elem("CPE1", element.ConstantPhase),
	}})
	require.NoError(t, err)

	for _, n := range []int{0, 1, 2, 4} {
		_, err := ckt.Bind(make([]float64, n))
		require.ErrorIs(t, err, element.ErrParameterCountMismatch, "n=%d", n)
	}
	params, err := ckt.Bind([]float64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, params)

	_, err = ckt.Evaluate([]float64{1}, 1)
	require.ErrorIs(t, err, element.ErrParameterCountMismatch)
}

func TestBindNamed(t *testing.T) {
	ckt, err := New(&Series{Children: []Node{
		elem("R0", element.Resistor),
		elem("C0", element.Capacitor),
	}})
	require.NoError(t, err)

	_, err = ckt.BindNamed(map[string]float64{"R0": 1})
	require.ErrorIs(t, err, element.ErrParameterCountMismatch)

	_, err = ckt.BindNamed(map[string]float64{"R0": 1, "C0": 1, "X9": 1})
	require.ErrorIs(t, err, ErrUnknownParameter)

	params, err := ckt.BindNamed(map[string]float64{"C0": 2, "R0": 1})
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2}, params)
}

func TestStructuralErrors(t *testing.T) {
	_, err := New(&Series{})
	require.ErrorIs(t, err, ErrEmptyGroup)

	_, err = New(&Series{Children: []Node{elem("R0", element.Resistor), &Parallel{}}})
	require.ErrorIs(t, err, ErrEmptyGroup)

	_, err = New(&Series{Children: []Node{elem("R0", element.Resistor), elem("R0", element.Resistor)}})
	require.ErrorIs(t, err, ErrDuplicateElementName)
}
