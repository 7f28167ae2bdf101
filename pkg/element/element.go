package element

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/edp1096/toy-eis/internal/consts"
)

var (
	ErrUnknownElementKind     = errors.New("unknown element kind")
	ErrParameterCountMismatch = errors.New("parameter count mismatch")
)

// ImpedanceFunc computes the impedance of one element at angular frequency omega.
// p always has the arity of the kind.
type ImpedanceFunc func(p []float64, omega float64) complex128

// Kind describes a primitive circuit element.
type Kind struct {
	Name        string
	Arity       int
	Units       []string // one per parameter
	Description string
	impedance   ImpedanceFunc
}

var table = map[string]*Kind{}

func register(k *Kind, aliases ...string) *Kind {
	if len(k.Units) != k.Arity {
		panic(fmt.Sprintf("element %s: %d units for %d parameters", k.Name, len(k.Units), k.Arity))
	}
	table[k.Name] = k
	for _, a := range aliases {
		table[a] = k
	}
	return k
}

// Lookup returns the kind registered under prefix, e.g. "R" or "CPE".
func Lookup(prefix string) (*Kind, error) {
	k, ok := table[prefix]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownElementKind, prefix)
	}
	return k, nil
}

// Prefixes lists every registered prefix, aliases included, sorted.
func Prefixes() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Impedance evaluates a single element of the given kind at freq (Hz).
func Impedance(kind string, params []float64, freq float64) (complex128, error) {
	k, err := Lookup(kind)
	if err != nil {
		return 0, err
	}
	return k.Impedance(params, freq)
}

func (k *Kind) Impedance(params []float64, freq float64) (complex128, error) {
	if len(params) != k.Arity {
		return 0, fmt.Errorf("%w: %s takes %d parameters, got %d", ErrParameterCountMismatch, k.Name, k.Arity, len(params))
	}
	return k.impedance(params, consts.TWOPI*freq), nil
}

// ParamNames returns the parameter slot names of an element called name.
// Single-parameter elements use the element name itself, others append _i.
func (k *Kind) ParamNames(name string) []string {
	if k.Arity == 1 {
		return []string{name}
	}
	names := make([]string, k.Arity)
	for i := range names {
		names[i] = fmt.Sprintf("%s_%d", name, i)
	}
	return names
}

func jw(omega float64) complex128 {
	return complex(0, omega)
}

// tanh saturates before cmplx.Tanh overflows cosh/sinh into NaN.
func tanh(z complex128) complex128 {
	if math.Abs(real(z)) > 20 {
		return complex(math.Copysign(1, real(z)), 0)
	}
	return cmplx.Tanh(z)
}
