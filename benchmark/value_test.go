package benchmark_test

import (
	"math"
	"math/big"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/effective-security/mcpbench/benchmark"
	"github.com/stretchr/testify/assert"
)

func Test_ParseValue(t *testing.T) {
	big25, _ := new(big.Int).SetString("15511210043330985984000000", 10)

	tcases := []struct {
		text string
		exp  any
	}{
		{"5", int64(5)},
		{" 5 \n", int64(5)},
		{"4.0", 4.0},
		{"1e-05", 1e-05},
		{"-3", int64(-3)},
		{"15511210043330985984000000", big25},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{`"text"`, "text"},
		{"[1, 2.5]", []any{int64(1), 2.5}},
		{`{"a": 1}`, map[string]any{"a": int64(1)}},
		{"Error: Cannot divide by zero. Please fix your mistakes.", "Error: Cannot divide by zero. Please fix your mistakes."},
		{"5 6", "5 6"},
		{"", ""},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.exp, benchmark.ParseValue(tc.text), tc.text)
	}
	assert.True(t, math.IsNaN(benchmark.ParseValue("NaN").(float64)))
}

func Test_Correct(t *testing.T) {
	tcases := []struct {
		name     string
		expected any
		result   any
		exp      bool
	}{
		{"int equals int", int64(5), int64(5), true},
		{"int equals float", int64(5), 5.0, true},
		{"int not close", int64(5), 5.0000001, false},
		{"float close", 0.5, 0.49999999999999994, true},
		{"float close to int", 3.0, int64(3), true},
		{"float within abs tol", 0.0, 1e-7, true},
		{"float outside tol", 2.0, 2.01, false},
		{"float vs text", 2.0, "2.0", false},
		{"text", "x", "x", true},
		{"nil result", int64(1), nil, false},
		{"nil both", nil, nil, true},
		{"list numeric", []any{int64(1), 2.0}, []any{1.0, int64(2)}, true},
		{"list length", []any{int64(1)}, []any{int64(1), int64(2)}, false},
		{"map", map[string]any{"a": int64(1)}, map[string]any{"a": 1.0}, true},
		{"map missing", map[string]any{"a": int64(1)}, map[string]any{"b": int64(1)}, false},
		{"big int", big.NewInt(120), int64(120), true},
		{"bool is not number", int64(1), true, false},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exp, benchmark.Correct(tc.expected, tc.result))
		})
	}
}

func Test_IsClose_Random(t *testing.T) {
	for range 100 {
		f := gofakeit.Float64Range(-1e5, 1e5)
		assert.True(t, benchmark.IsClose(f, f*(1+1e-8), benchmark.RelTolerance, benchmark.AbsTolerance), f)
		assert.False(t, benchmark.IsClose(f, f+1, benchmark.RelTolerance, benchmark.AbsTolerance), f)

		i := gofakeit.Int64()
		assert.True(t, benchmark.Correct(i, i))
	}
	assert.False(t, benchmark.IsClose(math.Inf(1), 1, 1, 1))
	assert.True(t, benchmark.IsClose(math.Inf(1), math.Inf(1), 0, 0))
}

func Test_FormatValue(t *testing.T) {
	n := int64(7)
	f := 0.25
	assert.Equal(t, "None", benchmark.FormatValue(nil))
	assert.Equal(t, "True", benchmark.FormatValue(true))
	assert.Equal(t, "False", benchmark.FormatValue(false))
	assert.Equal(t, "12.0", benchmark.FormatValue(12.0))
	assert.Equal(t, "7", benchmark.FormatValue(&n))
	assert.Equal(t, "0.25", benchmark.FormatValue(&f))
	assert.Equal(t, "None", benchmark.FormatValue((*float64)(nil)))
	assert.Equal(t, `{"a": 2, "b": 3.0}`, benchmark.FormatValue(map[string]any{"b": 3.0, "a": int64(2)}))
	assert.Equal(t, `[1, "x", null]`, benchmark.FormatValue([]any{int64(1), "x", nil}))
}
