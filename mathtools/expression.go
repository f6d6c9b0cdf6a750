package mathtools

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
)

// maxSummationTerms is the largest accepted summation range.
const maxSummationTerms = 1_000_000

var summationCharset = regexp.MustCompile(`^[0-9n\s+\-*/().^]+$`)

var errDivisionByZero = errors.New("division by zero")

type summationArgs struct {
	Start      *Number `json:"start" validate:"required" jsonschema:"description=First value of n"`
	End        *Number `json:"end" validate:"required" jsonschema:"description=Last value of n (inclusive)"`
	Expression string  `json:"expression,omitempty" jsonschema:"description=Expression of n to sum; supports + - * / ** ^ and parentheses,default=n"`
}

func summation(args *summationArgs) (Value, error) {
	start, err := args.Start.Int()
	if err != nil {
		return Value{}, err
	}
	end, err := args.End.Int()
	if err != nil {
		return Value{}, err
	}

	src := values.StringsCoalesce(args.Expression, "n")
	if !summationCharset.MatchString(src) {
		return Value{}, errors.New("Invalid expression: only basic math operations allowed")
	}
	expr, err := parseExpression(strings.ReplaceAll(src, "^", "**"))
	if err != nil {
		return Value{}, err
	}

	if !start.IsInt64() || !end.IsInt64() {
		return Value{}, errors.New("Summation range is too large")
	}
	from, to := start.Int64(), end.Int64()
	if to >= from && to-from >= maxSummationTerms {
		return Value{}, errors.New("Summation range is too large")
	}

	total := scalar{i: new(big.Int)}
	for n := from; n <= to; n++ {
		v, err := expr.eval(big.NewInt(n))
		if err != nil {
			return Value{}, err
		}
		if total, err = arith("+", total, v); err != nil {
			return Value{}, err
		}
	}
	if total.i != nil {
		return BigInt(total.i), nil
	}
	return IntIfWhole(total.f), nil
}

// maxPowerBits bounds the size of an exact integer power.
const maxPowerBits = 1 << 16

// scalar is an exact integer when i is set, a float otherwise.
type scalar struct {
	i *big.Int
	f float64
}

func (x scalar) float() float64 {
	if x.i == nil {
		return x.f
	}
	f, _ := new(big.Float).SetInt(x.i).Float64()
	return f
}

// node is a compiled arithmetic expression over the variable n.
type node interface {
	eval(n *big.Int) (scalar, error)
}

type numNode scalar

func (x numNode) eval(*big.Int) (scalar, error) { return scalar(x), nil }

type varNode struct{}

func (varNode) eval(n *big.Int) (scalar, error) { return scalar{i: n}, nil }

type negNode struct{ x node }

func (x negNode) eval(n *big.Int) (scalar, error) {
	v, err := x.x.eval(n)
	if err != nil {
		return scalar{}, err
	}
	if v.i != nil {
		return scalar{i: new(big.Int).Neg(v.i)}, nil
	}
	return scalar{f: -v.f}, nil
}

type binNode struct {
	op   string
	l, r node
}

func (b binNode) eval(n *big.Int) (scalar, error) {
	l, err := b.l.eval(n)
	if err != nil {
		return scalar{}, err
	}
	r, err := b.r.eval(n)
	if err != nil {
		return scalar{}, err
	}
	return arith(b.op, l, r)
}

// arith applies op to l and r. Integers stay exact except for true division
// and negative or oversized powers, which produce floats.
func arith(op string, l, r scalar) (scalar, error) {
	if l.i != nil && r.i != nil {
		switch op {
		case "+":
			return scalar{i: new(big.Int).Add(l.i, r.i)}, nil
		case "-":
			return scalar{i: new(big.Int).Sub(l.i, r.i)}, nil
		case "*":
			return scalar{i: new(big.Int).Mul(l.i, r.i)}, nil
		case "/":
			if r.i.Sign() == 0 {
				return scalar{}, errDivisionByZero
			}
			f, _ := new(big.Rat).SetFrac(l.i, r.i).Float64()
			return scalar{f: f}, nil
		case "//":
			if r.i.Sign() == 0 {
				return scalar{}, errDivisionByZero
			}
			q, m := new(big.Int).QuoRem(l.i, r.i, new(big.Int))
			if m.Sign() != 0 && m.Sign() != r.i.Sign() {
				q.Sub(q, big.NewInt(1))
			}
			return scalar{i: q}, nil
		default:
			if r.i.Sign() >= 0 && r.i.IsInt64() && r.i.Int64()*int64(max(l.i.BitLen(), 1)) <= maxPowerBits {
				return scalar{i: new(big.Int).Exp(l.i, r.i, nil)}, nil
			}
		}
	}

	lf, rf := l.float(), r.float()
	switch op {
	case "+":
		return scalar{f: lf + rf}, nil
	case "-":
		return scalar{f: lf - rf}, nil
	case "*":
		return scalar{f: lf * rf}, nil
	case "/":
		if rf == 0 {
			return scalar{}, errDivisionByZero
		}
		return scalar{f: lf / rf}, nil
	case "//":
		if rf == 0 {
			return scalar{}, errDivisionByZero
		}
		return scalar{f: math.Floor(lf / rf)}, nil
	default:
		if lf == 0 && rf < 0 {
			return scalar{}, errors.New("0.0 cannot be raised to a negative power")
		}
		return scalar{f: math.Pow(lf, rf)}, nil
	}
}

// parser is a recursive descent parser with the usual precedence:
//
//	expr  = term {("+"|"-") term}
//	term  = unary {("*"|"/"|"//") unary}
//	unary = ("+"|"-") unary | power
//	power = atom ["**" unary]
//	atom  = number | "n" | "(" expr ")"
type parser struct {
	src string
	pos int
}

func parseExpression(src string) (node, error) {
	p := &parser{src: src}
	x, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.syntaxError()
	}
	return x, nil
}

func (p *parser) syntaxError() error {
	return errors.Newf("invalid syntax in expression %q at position %d", p.src, p.pos)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *parser) expr() (node, error) {
	x, err := p.term()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.accept("+"):
			op = "+"
		case p.accept("-"):
			op = "-"
		default:
			return x, nil
		}
		y, err := p.term()
		if err != nil {
			return nil, err
		}
		x = binNode{op: op, l: x, r: y}
	}
}

func (p *parser) term() (node, error) {
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.accept("*"):
			op = "*"
		case p.accept("//"):
			op = "//"
		case p.accept("/"):
			op = "/"
		default:
			return x, nil
		}
		y, err := p.unary()
		if err != nil {
			return nil, err
		}
		x = binNode{op: op, l: x, r: y}
	}
}

func (p *parser) unary() (node, error) {
	switch {
	case p.accept("-"):
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return negNode{x: x}, nil
	case p.accept("+"):
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() (node, error) {
	x, err := p.atom()
	if err != nil {
		return nil, err
	}
	if p.accept("**") {
		y, err := p.unary()
		if err != nil {
			return nil, err
		}
		return binNode{op: "**", l: x, r: y}, nil
	}
	return x, nil
}

func (p *parser) atom() (node, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.syntaxError()
	}

	switch c := p.src[p.pos]; {
	case c == 'n':
		p.pos++
		return varNode{}, nil
	case c == '(':
		p.pos++
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if !p.accept(")") {
			return nil, p.syntaxError()
		}
		return x, nil
	case c == '.' || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.src) && (p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
			p.pos++
		}
		lit := p.src[start:p.pos]
		if !strings.Contains(lit, ".") {
			i, ok := new(big.Int).SetString(lit, 10)
			if !ok {
				p.pos = start
				return nil, p.syntaxError()
			}
			return numNode{i: i}, nil
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			p.pos = start
			return nil, p.syntaxError()
		}
		return numNode{f: f}, nil
	}
	return nil, p.syntaxError()
}
