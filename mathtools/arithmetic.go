package mathtools

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
)

// maxFactorial is the largest accepted factorial input.
const maxFactorial = 100000

type binaryArgs struct {
	A *Number `json:"a" validate:"required" jsonschema:"description=First operand"`
	B *Number `json:"b" validate:"required" jsonschema:"description=Second operand"`
}

type unaryArgs struct {
	N *Number `json:"n" validate:"required" jsonschema:"description=The number"`
}

type powerArgs struct {
	Base     *Number `json:"base" validate:"required" jsonschema:"description=The base"`
	Exponent *Number `json:"exponent" validate:"required" jsonschema:"description=The exponent"`
}

type logArgs struct {
	N    *Number `json:"n" validate:"required" jsonschema:"description=The number"`
	Base *Number `json:"base,omitempty" jsonschema:"description=Logarithm base,default=10"`
}

type trigArgs struct {
	Function string  `json:"function" validate:"required" jsonschema:"description=Trigonometric function,enum=sin,enum=cos,enum=tan"`
	Angle    *Number `json:"angle" validate:"required" jsonschema:"description=The angle"`
	Unit     string  `json:"unit,omitempty" jsonschema:"description=Angle unit,enum=degrees,enum=radians,default=degrees"`
}

type roundArgs struct {
	Value         *Number `json:"value" validate:"required" jsonschema:"description=The number to round"`
	DecimalPlaces *Number `json:"decimal_places,omitempty" jsonschema:"description=Number of decimal places,default=0"`
}

func add(args *binaryArgs) (Value, error) {
	return IntIfWhole(args.A.Float64() + args.B.Float64()), nil
}

func subtract(args *binaryArgs) (Value, error) {
	return IntIfWhole(args.A.Float64() - args.B.Float64()), nil
}

func multiply(args *binaryArgs) (Value, error) {
	return IntIfWhole(args.A.Float64() * args.B.Float64()), nil
}

func divide(args *binaryArgs) (Value, error) {
	b := args.B.Float64()
	if b == 0 {
		return Value{}, errors.New("Cannot divide by zero")
	}
	return IntIfWhole(args.A.Float64() / b), nil
}

func squareRoot(args *unaryArgs) (Value, error) {
	n := args.N.Float64()
	if n < 0 {
		return Value{}, errors.New("Cannot calculate square root of negative number")
	}
	return Float(math.Sqrt(n)), nil
}

func power(args *powerArgs) (Value, error) {
	base, exp := args.Base.Float64(), args.Exponent.Float64()
	if base == 0 && exp < 0 {
		return Value{}, errors.New("0.0 cannot be raised to a negative power")
	}
	if base < 0 && exp != math.Trunc(exp) {
		return Value{}, errors.New("math domain error")
	}
	return IntIfWhole(math.Pow(base, exp)), nil
}

func logarithm(args *logArgs) (Value, error) {
	n := args.N.Float64()
	base := 10.0
	if args.Base != nil {
		base = args.Base.Float64()
	}
	if n <= 0 || base <= 0 || base == 1 {
		return Value{}, errors.New("Invalid input for logarithm")
	}
	return Float(math.Log(n) / math.Log(base)), nil
}

func trigonometry(args *trigArgs) (Value, error) {
	angle := args.Angle.Float64()
	switch strings.ToLower(values.StringsCoalesce(args.Unit, "degrees")) {
	case "degrees":
		angle *= math.Pi / 180
	case "radians":
	default:
		return Value{}, errors.New("Unit must be 'degrees' or 'radians'")
	}

	switch strings.ToLower(args.Function) {
	case "sin":
		return Float(math.Sin(angle)), nil
	case "cos":
		return Float(math.Cos(angle)), nil
	case "tan":
		return Float(math.Tan(angle)), nil
	default:
		return Value{}, errors.New("Function must be 'sin', 'cos', or 'tan'")
	}
}

func gcd(args *binaryArgs) (Value, error) {
	a, b, err := intPair(args)
	if err != nil {
		return Value{}, err
	}
	return BigInt(new(big.Int).GCD(nil, nil, a, b)), nil
}

func lcm(args *binaryArgs) (Value, error) {
	a, b, err := intPair(args)
	if err != nil {
		return Value{}, err
	}
	g := new(big.Int).GCD(nil, nil, a, b)
	if g.Sign() == 0 {
		return Value{}, errors.New("integer division or modulo by zero")
	}
	prod := new(big.Int).Mul(a, b)
	prod.Abs(prod)
	return BigInt(prod.Quo(prod, g)), nil
}

func intPair(args *binaryArgs) (*big.Int, *big.Int, error) {
	a, err := args.A.Int()
	if err != nil {
		return nil, nil, err
	}
	b, err := args.B.Int()
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

func roundNumber(args *roundArgs) (Value, error) {
	places := int64(0)
	if args.DecimalPlaces != nil {
		p, err := args.DecimalPlaces.Int()
		if err != nil {
			return Value{}, err
		}
		if !p.IsInt64() {
			return Float(args.Value.Float64()), nil
		}
		places = p.Int64()
	}
	return Float(roundHalfEven(args.Value.Float64(), places)), nil
}

// roundHalfEven rounds the exact binary value of f to places decimal digits.
func roundHalfEven(f float64, places int64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) || places > 323 {
		return f
	}
	if places >= 0 {
		r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(places), 64), 64)
		if err != nil {
			return f
		}
		return r
	}
	if places < -308 {
		return math.Copysign(0, f)
	}
	p := math.Pow(10, float64(-places))
	return math.RoundToEven(f/p) * p
}

func factorial(args *unaryArgs) (Value, error) {
	n, err := args.N.Int()
	if err != nil {
		return Value{}, err
	}
	if n.Sign() < 0 {
		return Value{}, errors.New("Factorial is only defined for non-negative integers")
	}
	if !n.IsInt64() || n.Int64() > maxFactorial {
		return Value{}, errors.Newf("Factorial input is too large: %s", n.String())
	}
	return BigInt(new(big.Int).MulRange(1, n.Int64())), nil
}

func absValue(args *unaryArgs) (Value, error) {
	return IntIfWhole(math.Abs(args.N.Float64())), nil
}

func pythagorean(args *binaryArgs) (Value, error) {
	a, b := args.A.Float64(), args.B.Float64()
	if a <= 0 || b <= 0 {
		return Value{}, errors.New("Side lengths must be positive")
	}
	return Float(math.Sqrt(a*a + b*b)), nil
}
