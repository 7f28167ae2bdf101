package circuit

import (
	"fmt"
	"strings"

	"github.com/edp1096/toy-eis/pkg/element"
)

// Node is one vertex of a circuit composition tree: *Element, *Series or *Parallel.
type Node interface {
	impedance(params []float64, freq float64) (complex128, error)
	write(sb *strings.Builder)
}

// Element is a leaf bound to params[Offset : Offset+Kind.Arity].
type Element struct {
	Name   string
	Kind   *element.Kind
	Offset int
}

// Series combines its children additively.
type Series struct {
	Children []Node
}

// Parallel combines its children by the reciprocal-sum rule.
type Parallel struct {
	Children []Node
}

var (
	_ Node = (*Element)(nil)
	_ Node = (*Series)(nil)
	_ Node = (*Parallel)(nil)
)

func (e *Element) impedance(params []float64, freq float64) (complex128, error) {
	return e.Kind.Impedance(params[e.Offset:e.Offset+e.Kind.Arity], freq)
}

func (s *Series) impedance(params []float64, freq float64) (complex128, error) {
	var z complex128
	for _, child := range s.Children {
		zi, err := child.impedance(params, freq)
		if err != nil {
			return 0, err
		}
		z += zi
	}
	return z, nil
}

func (p *Parallel) impedance(params []float64, freq float64) (complex128, error) {
	var y complex128
	for _, child := range p.Children {
		zi, err := child.impedance(params, freq)
		if err != nil {
			return 0, err
		}
		if zi == 0 {
			return 0, fmt.Errorf("%w: branch %s of %s at f=%g", ErrSingularParallelCombination, nodeString(child), nodeString(p), freq)
		}
		y += 1 / zi
	}
	return 1 / y, nil
}

func (e *Element) write(sb *strings.Builder) {
	sb.WriteString(e.Name)
}

func (s *Series) write(sb *strings.Builder) {
	for i, child := range s.Children {
		if i > 0 {
			sb.WriteByte('-')
		}
		child.write(sb)
	}
}

func (p *Parallel) write(sb *strings.Builder) {
	sb.WriteString("p(")
	for i, child := range p.Children {
		if i > 0 {
			sb.WriteByte(',')
		}
		child.write(sb)
	}
	sb.WriteByte(')')
}

func nodeString(n Node) string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}
