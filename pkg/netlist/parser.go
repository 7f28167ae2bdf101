package netlist

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edp1096/toy-eis/pkg/circuit"
	"github.com/edp1096/toy-eis/pkg/element"
)

var (
	ErrUnbalancedParentheses = errors.New("unbalanced parentheses")
	ErrSyntax                = errors.New("syntax error")
)

var unitMap = map[string]float64{
	"T":   1e12,  // tera
	"G":   1e9,   // giga
	"meg": 1e6,   // mega
	"K":   1e3,   // kilo
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var valueRe = regexp.MustCompile(`^([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)(meg|[TGMKkmunpf])?$`)

// ErrAmbiguousSuffix is returned for "M", which reads as milli in SPICE
// decks and as mega in impedance work.
var ErrAmbiguousSuffix = errors.New(`ambiguous suffix "M": use "meg" or "m"`)

type parser struct {
	src string
	pos int
}

// Parse builds a circuit from a description such as "R0-p(R1,C1)-Wo1".
// Elements are joined in series by '-' and in parallel by p(a,b,...).
// Whitespace is ignored.
func Parse(desc string) (*circuit.Circuit, error) {
	src := strings.Join(strings.Fields(desc), "")
	if err := checkBalance(src); err != nil {
		return nil, err
	}

	p := &parser{src: src}
	root, err := p.parseSeries()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, fmt.Errorf("%w: unexpected %q at %d in %q", ErrSyntax, p.src[p.pos], p.pos, src)
	}

	ckt, err := circuit.New(root)
	if err != nil {
		return nil, fmt.Errorf("circuit %q: %w", src, err)
	}
	return ckt, nil
}

// MustParse is like Parse but panics on error. For fixed circuit strings.
func MustParse(desc string) *circuit.Circuit {
	ckt, err := Parse(desc)
	if err != nil {
		panic(err)
	}
	return ckt
}

func checkBalance(src string) error {
	depth := 0
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unexpected ')' at %d in %q", ErrUnbalancedParentheses, i, src)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%w: %d unclosed '(' in %q", ErrUnbalancedParentheses, depth, src)
	}
	return nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// series := term ('-' term)*
func (p *parser) parseSeries() (circuit.Node, error) {
	var children []circuit.Node
	for {
		switch p.peek() {
		case 0, '-', ',', ')':
			return nil, fmt.Errorf("%w: missing element at %d in %q", circuit.ErrEmptyGroup, p.pos, p.src)
		}

		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		children = append(children, term)

		if p.peek() != '-' {
			break
		}
		p.pos++
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return &circuit.Series{Children: children}, nil
}

func (p *parser) parseTerm() (circuit.Node, error) {
	if strings.HasPrefix(p.src[p.pos:], "p(") {
		return p.parseParallel()
	}
	return p.parseElement()
}

// parallel := 'p(' series (',' series)* ')'
func (p *parser) parseParallel() (circuit.Node, error) {
	start := p.pos
	p.pos += len("p(")
	if p.peek() == ')' {
		return nil, fmt.Errorf("%w: p() at %d in %q", circuit.ErrEmptyGroup, start, p.src)
	}

	var children []circuit.Node
	for {
		child, err := p.parseSeries()
		if err != nil {
			return nil, err
		}
		children = append(children, child)

		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return &circuit.Parallel{Children: children}, nil
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d in %q", ErrSyntax, p.peek(), p.pos, p.src)
		}
	}
}

// element := kind index, kind := [A-Za-z]+, index := [0-9][A-Za-z0-9_]*
func (p *parser) parseElement() (circuit.Node, error) {
	start := p.pos
	for p.pos < len(p.src) && isLetter(p.src[p.pos]) {
		p.pos++
	}
	prefix := p.src[start:p.pos]
	if prefix == "" {
		return nil, fmt.Errorf("%w: expected element at %d in %q", ErrSyntax, start, p.src)
	}

	kind, err := element.Lookup(prefix)
	if err != nil {
		return nil, fmt.Errorf("element at %d in %q: %w", start, p.src, err)
	}

	indexStart := p.pos
	if p.pos >= len(p.src) || !isDigit(p.src[p.pos]) {
		return nil, fmt.Errorf("%w: element %s at %d needs a numeric index", ErrSyntax, prefix, start)
	}
	for p.pos < len(p.src) && (isLetter(p.src[p.pos]) || isDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
		p.pos++
	}

	return &circuit.Element{
		Name: prefix + p.src[indexStart:p.pos],
		Kind: kind,
	}, nil
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// ParseValue parses a number with an optional SI suffix, e.g. "10k", "2.2meg", "1u".
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	if matches[2] == "M" {
		return 0, fmt.Errorf("%s: %w", val, ErrAmbiguousSuffix)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	// factor
	if matches[2] != "" {
		num *= unitMap[matches[2]]
	}

	return num, nil
}

// ParseValues parses a comma or whitespace separated list of values.
func ParseValues(list string) ([]float64, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	values := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := ParseValue(f)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}
