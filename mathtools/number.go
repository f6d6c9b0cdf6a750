package mathtools

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// ErrInvalidNumber is the mark of every argument coercion failure.
var ErrInvalidNumber = errors.New("could not convert to number")

// Number is a leniently decoded numeric argument.
// It accepts a JSON number, a string holding a number, or a bool.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch s {
	case "true":
		*n = 1
		return nil
	case "false":
		*n = 0
		return nil
	case "null":
		return errors.Mark(errors.New("float() argument must be a string or a real number, not 'NoneType'"), ErrInvalidNumber)
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return errors.Mark(errors.WithStack(err), ErrInvalidNumber)
		}
		s = strings.TrimSpace(str)
	} else if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		return errors.Mark(errors.Newf("float() argument must be a string or a real number, not '%s'", s), ErrInvalidNumber)
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	if err != nil {
		var ne *strconv.NumError
		if !errors.As(err, &ne) || ne.Err != strconv.ErrRange {
			return errors.Mark(errors.Newf("could not convert string to float: '%s'", s), ErrInvalidNumber)
		}
	}
	*n = Number(f)
	return nil
}

// JSONSchema exposes Number as a plain JSON number to models.
func (Number) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number"}
}

// Float64 returns the number as float64.
func (n Number) Float64() float64 {
	return float64(n)
}

// Int truncates the number toward zero.
func (n Number) Int() (*big.Int, error) {
	f := float64(n)
	if math.IsInf(f, 0) {
		return nil, errors.New("cannot convert float infinity to integer")
	}
	if math.IsNaN(f) {
		return nil, errors.New("cannot convert float NaN to integer")
	}
	i, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return i, nil
}

func toFloats(list []Number) []float64 {
	res := make([]float64, len(list))
	for i, n := range list {
		res[i] = float64(n)
	}
	return res
}

// Value is a tool result: an exact integer or a float.
type Value struct {
	i *big.Int
	f float64
}

// Int returns an integer Value.
func Int(i int64) Value {
	return Value{i: big.NewInt(i)}
}

// BigInt returns an integer Value.
func BigInt(i *big.Int) Value {
	return Value{i: i}
}

// Float returns a float Value.
func Float(f float64) Value {
	return Value{f: f}
}

// IntIfWhole returns an integer Value when f is finite and has no fractional part,
// otherwise a float Value.
func IntIfWhole(f float64) Value {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return Float(f)
	}
	// float64(math.MaxInt64) is 2^63, which does not fit
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return Int(int64(f))
	}
	i, _ := big.NewFloat(f).Int(nil)
	return BigInt(i)
}

// IsInt returns true for integer values.
func (v Value) IsInt() bool {
	return v.i != nil
}

// Float64 returns the value as float64, possibly losing precision for big integers.
func (v Value) Float64() float64 {
	if v.i != nil {
		f, _ := new(big.Float).SetInt(v.i).Float64()
		return f
	}
	return v.f
}

// BigInt returns the integer value, or nil for floats.
func (v Value) BigInt() *big.Int {
	return v.i
}

// String renders integers in full and floats in the shortest repr that
// always carries a fraction or an exponent: 4.0, 2.5, 1e-05, 1e+16.
func (v Value) String() string {
	if v.i != nil {
		return v.i.String()
	}
	return FormatFloat(v.f)
}

// MarshalJSON renders the value as a JSON number.
// Non-finite floats are not representable and are written as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.i == nil && (math.IsInf(v.f, 0) || math.IsNaN(v.f)) {
		return json.Marshal(FormatFloat(v.f))
	}
	return []byte(v.String()), nil
}

// FormatFloat formats f the way the reference math server renders floats.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	exp := int(math.Floor(math.Log10(math.Abs(f))))
	// Log10 is not exact near powers of ten; the 'e' form is.
	e := strconv.FormatFloat(f, 'e', -1, 64)
	if idx := strings.LastIndexByte(e, 'e'); idx > 0 {
		if x, err := strconv.Atoi(e[idx+1:]); err == nil {
			exp = x
		}
	}
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
