package circuit

import (
	"errors"
	"fmt"

	"github.com/edp1096/toy-eis/pkg/element"
)

var (
	ErrEmptyGroup                  = errors.New("empty group")
	ErrDuplicateElementName        = errors.New("duplicate element name")
	ErrSingularParallelCombination = errors.New("singular parallel combination")
	ErrUnknownParameter            = errors.New("unknown parameter")
)

// Circuit is an immutable equivalent-circuit tree together with the ordered
// parameter slots of its elements.
type Circuit struct {
	root     Node
	elements []*Element
	names    []string
	units    []string
	slotMap  map[string]int
}

// New normalises root and assigns parameter offsets to its elements in
// left-to-right, depth-first order. Nested series are flattened and a series
// of one child is replaced by the child.
func New(root Node) (*Circuit, error) {
	c := &Circuit{slotMap: make(map[string]int)}

	var err error
	c.root, err = c.assign(root)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Circuit) assign(n Node) (Node, error) {
	switch n := n.(type) {
	case *Element:
		if n == nil || n.Kind == nil {
			return nil, fmt.Errorf("element without kind")
		}
		for _, e := range c.elements {
			if e.Name == n.Name {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateElementName, n.Name)
			}
		}
		elem := &Element{Name: n.Name, Kind: n.Kind, Offset: len(c.names)}
		for i, name := range n.Kind.ParamNames(n.Name) {
			if _, exists := c.slotMap[name]; exists {
				return nil, fmt.Errorf("%w: parameter %s of %s", ErrDuplicateElementName, name, n.Name)
			}
			c.slotMap[name] = len(c.names)
			c.names = append(c.names, name)
			c.units = append(c.units, n.Kind.Units[i])
		}
		c.elements = append(c.elements, elem)
		return elem, nil

	case *Series:
		if n == nil || len(n.Children) == 0 {
			return nil, fmt.Errorf("%w: series", ErrEmptyGroup)
		}
		children := make([]Node, 0, len(n.Children))
		for _, child := range n.Children {
			assigned, err := c.assign(child)
			if err != nil {
				return nil, err
			}
			if inner, ok := assigned.(*Series); ok {
				children = append(children, inner.Children...)
				continue
			}
			children = append(children, assigned)
		}
		if len(children) == 1 {
			return children[0], nil
		}
		return &Series{Children: children}, nil

	case *Parallel:
		if n == nil || len(n.Children) == 0 {
			return nil, fmt.Errorf("%w: parallel", ErrEmptyGroup)
		}
		children := make([]Node, 0, len(n.Children))
		for _, child := range n.Children {
			assigned, err := c.assign(child)
			if err != nil {
				return nil, err
			}
			children = append(children, assigned)
		}
		return &Parallel{Children: children}, nil

	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

func (c *Circuit) Root() Node { return c.root }

// String returns the canonical circuit description.
func (c *Circuit) String() string { return nodeString(c.root) }

func (c *Circuit) NumParams() int { return len(c.names) }

func (c *Circuit) Elements() []*Element {
	return append([]*Element(nil), c.elements...)
}

// ParamNames returns the parameter slot names in binding order.
func (c *Circuit) ParamNames() []string {
	return append([]string(nil), c.names...)
}

// Units returns the physical unit of every parameter slot.
func (c *Circuit) Units() []string {
	return append([]string(nil), c.units...)
}

// Slot returns the index of the named parameter slot.
func (c *Circuit) Slot(name string) (int, bool) {
	i, ok := c.slotMap[name]
	return i, ok
}

// Bind checks values against the parameter slots and returns a copy.
func (c *Circuit) Bind(values []float64) ([]float64, error) {
	if len(values) != len(c.names) {
		return nil, fmt.Errorf("%w: circuit %s has %d parameters, got %d",
			element.ErrParameterCountMismatch, c, len(c.names), len(values))
	}
	return append([]float64(nil), values...), nil
}

// BindNamed builds the parameter vector from a name to value map.
func (c *Circuit) BindNamed(values map[string]float64) ([]float64, error) {
	for name := range values {
		if _, ok := c.slotMap[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParameter, name)
		}
	}
	params := make([]float64, len(c.names))
	for i, name := range c.names {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing value for %s", element.ErrParameterCountMismatch, name)
		}
		params[i] = v
	}
	return params, nil
}

// Evaluate returns the total impedance at freq (Hz).
func (c *Circuit) Evaluate(params []float64, freq float64) (complex128, error) {
	if len(params) != len(c.names) {
		return 0, fmt.Errorf("%w: circuit %s has %d parameters, got %d",
			element.ErrParameterCountMismatch, c, len(c.names), len(params))
	}
	return c.root.impedance(params, freq)
}

// Spectrum evaluates the circuit at every frequency, in order.
func (c *Circuit) Spectrum(params []float64, freqs []float64) ([]complex128, error) {
	if len(params) != len(c.names) {
		return nil, fmt.Errorf("%w: circuit %s has %d parameters, got %d",
			element.ErrParameterCountMismatch, c, len(c.names), len(params))
	}
	z := make([]complex128, len(freqs))
	for i, f := range freqs {
		zi, err := c.root.impedance(params, f)
		if err != nil {
			return nil, err
		}
		z[i] = zi
	}
	return z, nil
}
