package mathtools

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	lengthToMeter = map[string]float64{
		"km":   1000,
		"m":    1,
		"cm":   0.01,
		"mm":   0.001,
		"mile": 1609.344,
		"yard": 0.9144,
		"foot": 0.3048,
		"inch": 0.0254,
	}
	weightToKg = map[string]float64{
		"kg":    1,
		"g":     0.001,
		"mg":    0.000001,
		"pound": 0.45359237,
		"ounce": 0.028349523125,
	}
	timeToSecond = map[string]float64{
		"hour":   3600,
		"minute": 60,
		"second": 1,
	}
	temperatureUnits = map[string]bool{
		"celsius":    true,
		"fahrenheit": true,
		"kelvin":     true,
	}
)

type percentageArgs struct {
	Part       *Number `json:"part,omitempty" jsonschema:"description=The part value"`
	Whole      *Number `json:"whole,omitempty" jsonschema:"description=The whole value"`
	Percentage *Number `json:"percentage,omitempty" jsonschema:"description=The percentage value"`
}

type conversionArgs struct {
	Value    *Number `json:"value" validate:"required" jsonschema:"description=The value to convert"`
	FromUnit string  `json:"from_unit" validate:"required" jsonschema:"description=Source unit"`
	ToUnit   string  `json:"to_unit" validate:"required" jsonschema:"description=Target unit"`
}

func percentage(args *percentageArgs) (Value, error) {
	switch {
	case args.Whole != nil && args.Percentage == nil && args.Part != nil:
		v, err := divideFloat(args.Part.Float64(), args.Whole.Float64())
		if err != nil {
			return Value{}, err
		}
		return Float(v.Float64() * 100), nil
	case args.Whole != nil && args.Part == nil && args.Percentage != nil:
		return Float(args.Percentage.Float64() / 100 * args.Whole.Float64()), nil
	case args.Percentage != nil && args.Part != nil:
		return divideFloat(args.Part.Float64()*100, args.Percentage.Float64())
	}
	return Value{}, errors.New("Invalid combination of arguments")
}

func divideFloat(a, b float64) (Value, error) {
	if b == 0 {
		return Value{}, errors.New("float division by zero")
	}
	return Float(a / b), nil
}

func conversion(args *conversionArgs) (Value, error) {
	v := args.Value.Float64()
	from, to := strings.ToLower(args.FromUnit), strings.ToLower(args.ToUnit)

	if temperatureUnits[from] && temperatureUnits[to] {
		return convertTemperature(v, from, to)
	}
	for _, table := range []map[string]float64{lengthToMeter, weightToKg, timeToSecond} {
		f, ok1 := table[from]
		t, ok2 := table[to]
		if ok1 && ok2 {
			return Float(v * f / t), nil
		}
	}
	return Value{}, errors.Newf("Unsupported conversion from %s to %s", args.FromUnit, args.ToUnit)
}

func temperatureConversion(args *conversionArgs) (Value, error) {
	return convertTemperature(args.Value.Float64(), strings.ToLower(args.FromUnit), strings.ToLower(args.ToUnit))
}

func convertTemperature(v float64, from, to string) (Value, error) {
	var celsius float64
	switch from {
	case "celsius":
		celsius = v
	case "fahrenheit":
		celsius = (v - 32) * 5 / 9
	case "kelvin":
		celsius = v - 273.15
	default:
		return Value{}, errors.Newf("Unsupported temperature unit: %s", from)
	}

	switch to {
	case "celsius":
		return Float(celsius), nil
	case "fahrenheit":
		return Float(celsius*9/5 + 32), nil
	case "kelvin":
		return Float(celsius + 273.15), nil
	}
	return Value{}, errors.Newf("Unsupported temperature unit: %s", to)
}
