package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/effective-security/mcpbench/mathtools"
)

// Values compared and reported by the benchmark are JSON values where
// numbers keep their literal type: int64 or *big.Int for integers, and
// float64 for literals with a fraction or an exponent.

// ParseValue decodes text as a JSON value, or returns the trimmed text
// when it is not a single JSON value. Infinity and NaN are accepted.
func ParseValue(text string) any {
	text = strings.TrimSpace(text)
	switch text {
	case "Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	case "NaN":
		return math.NaN()
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return text
	}
	// trailing data is not a JSON document
	if _, err := dec.Token(); err != io.EOF {
		return text
	}
	return Normalize(v)
}

// Normalize converts decoded JSON or YAML numbers to int64, *big.Int or float64.
func Normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		return parseNumber(string(t))
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint64:
		if t > math.MaxInt64 {
			return new(big.Int).SetUint64(t)
		}
		return int64(t)
	case float32:
		return float64(t)
	case []any:
		list := make([]any, len(t))
		for i, item := range t {
			list[i] = Normalize(item)
		}
		return list
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = Normalize(item)
		}
		return m
	}
	return v
}

func parseNumber(s string) any {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if bi, ok := new(big.Int).SetString(s, 10); ok {
			return bi
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f
}

func isNumber(v any) bool {
	switch v.(type) {
	case int64, float64, *big.Int:
		return true
	}
	return false
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		return t
	case *big.Int:
		f, _ := new(big.Float).SetInt(t).Float64()
		return f
	}
	return math.NaN()
}

func toBigInt(v any) (*big.Int, bool) {
	switch t := v.(type) {
	case int64:
		return big.NewInt(t), true
	case *big.Int:
		return t, true
	}
	return nil, false
}

// IsClose reports whether a and b are equal within the relative
// or absolute tolerance.
func IsClose(a, b, relTol, absTol float64) bool {
	if a == b {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) || math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	diff := math.Abs(a - b)
	return diff <= math.Max(relTol*math.Max(math.Abs(a), math.Abs(b)), absTol)
}

// Tolerance of float comparisons.
const (
	RelTolerance = 1e-6
	AbsTolerance = 1e-6
)

// Correct compares the tool result with the expected value.
// A float expectation matches a numeric result within tolerance,
// anything else must be equal.
func Correct(expected, result any) bool {
	if f, ok := expected.(float64); ok && isNumber(result) {
		return IsClose(toFloat(result), f, RelTolerance, AbsTolerance)
	}
	return Equal(expected, result)
}

// Equal compares values deeply, treating numbers by value: 5 equals 5.0.
func Equal(a, b any) bool {
	if isNumber(a) && isNumber(b) {
		ai, aok := toBigInt(a)
		bi, bok := toBigInt(b)
		if aok && bok {
			return ai.Cmp(bi) == 0
		}
		return toFloat(a) == toFloat(b)
	}

	switch at := a.(type) {
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !Equal(at[i], bt[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, av := range at {
			bv, ok := bt[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// FormatValue renders v for reports: None for nil, True/False for
// bools, the shortest float repr and JSON for lists and objects.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case *big.Int:
		return t.String()
	case float64:
		return mathtools.FormatFloat(t)
	case *float64:
		if t == nil {
			return "None"
		}
		return mathtools.FormatFloat(*t)
	case *int64:
		if t == nil {
			return "None"
		}
		return strconv.FormatInt(*t, 10)
	}
	return string(marshalValue(v))
}

// marshalValue encodes v as compact JSON, keeping float literals
// with a fraction.
func marshalValue(v any) []byte {
	var buf bytes.Buffer
	writeValue(&buf, v)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			bs, _ := json.Marshal(mathtools.FormatFloat(t))
			buf.Write(bs)
			return
		}
		buf.WriteString(mathtools.FormatFloat(t))
	case int64:
		buf.WriteString(strconv.FormatInt(t, 10))
	case *big.Int:
		buf.WriteString(t.String())
	case []any:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteString(", ")
			}
			writeValue(buf, item)
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(", ")
			}
			bs, _ := json.Marshal(k)
			buf.Write(bs)
			buf.WriteString(": ")
			writeValue(buf, t[k])
		}
		buf.WriteByte('}')
	default:
		bs, err := json.Marshal(t)
		if err != nil {
			buf.WriteString(strconv.Quote(fmt.Sprint(t)))
			return
		}
		buf.Write(bs)
	}
}
