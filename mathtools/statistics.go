package mathtools

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var errEmptyList = errors.New("Empty list")

type numbersArgs struct {
	Numbers []Number `json:"numbers" validate:"required" jsonschema:"description=List of numbers"`
}

type statisticsArgs struct {
	Operation string   `json:"operation" validate:"required" jsonschema:"description=Statistical operation,enum=mean,enum=median,enum=mode,enum=variance,enum=stdev,enum=range"`
	Data      []Number `json:"data" validate:"required" jsonschema:"description=The dataset"`
}

func maxValue(args *numbersArgs) (Value, error) {
	if len(args.Numbers) == 0 {
		return Value{}, errEmptyList
	}
	return IntIfWhole(floats.Max(toFloats(args.Numbers))), nil
}

func minValue(args *numbersArgs) (Value, error) {
	if len(args.Numbers) == 0 {
		return Value{}, errEmptyList
	}
	return IntIfWhole(floats.Min(toFloats(args.Numbers))), nil
}

func average(args *numbersArgs) (Value, error) {
	if len(args.Numbers) == 0 {
		return Value{}, errEmptyList
	}
	return Float(mean(toFloats(args.Numbers))), nil
}

func median(args *numbersArgs) (Value, error) {
	if len(args.Numbers) == 0 {
		return Value{}, errEmptyList
	}
	return Float(medianOf(toFloats(args.Numbers))), nil
}

func mode(args *numbersArgs) (Value, error) {
	if len(args.Numbers) == 0 {
		return Value{}, errEmptyList
	}
	return Float(modeOf(toFloats(args.Numbers))), nil
}

func statistics(args *statisticsArgs) (Value, error) {
	op := strings.ToLower(args.Operation)
	data := toFloats(args.Data)

	switch op {
	case "mean", "median", "mode", "variance", "stdev", "range":
	default:
		return Value{}, errors.Newf("Unsupported operation: %s", op)
	}
	if len(data) == 0 {
		return Value{}, errEmptyList
	}

	switch op {
	case "mean":
		return Float(mean(data)), nil
	case "median":
		return Float(medianOf(data)), nil
	case "mode":
		return Float(modeOf(data)), nil
	case "variance", "stdev":
		if len(data) < 2 {
			return Value{}, errors.New("variance requires at least two data points")
		}
		if op == "variance" {
			return Float(stat.Variance(data, nil)), nil
		}
		return Float(stat.StdDev(data, nil)), nil
	default:
		return Float(floats.Max(data) - floats.Min(data)), nil
	}
}

func mean(data []float64) float64 {
	return floats.Sum(data) / float64(len(data))
}

func medianOf(data []float64) float64 {
	sorted := slices.Clone(data)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// modeOf returns the most frequent value; ties go to the first one seen.
func modeOf(data []float64) float64 {
	counts := make(map[float64]int, len(data))
	top := 0
	for _, v := range data {
		counts[v]++
		top = max(top, counts[v])
	}
	for _, v := range data {
		if counts[v] == top {
			return v
		}
	}
	return data[0]
}
