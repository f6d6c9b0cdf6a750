package mathtools

import (
	"math"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
)

// shapeArgs holds the named dimensions of a shape.
// Dimensions may also be nested under a "kwargs" object.
type shapeArgs struct {
	Shape    string   `json:"shape" validate:"required" jsonschema:"description=Shape name"`
	Radius   *Number  `json:"radius,omitempty" jsonschema:"description=Radius"`
	Diameter *Number  `json:"diameter,omitempty" jsonschema:"description=Diameter"`
	Length   *Number  `json:"length,omitempty" jsonschema:"description=Length"`
	Width    *Number  `json:"width,omitempty" jsonschema:"description=Width"`
	Height   *Number  `json:"height,omitempty" jsonschema:"description=Height"`
	Base     *Number  `json:"base,omitempty" jsonschema:"description=Base of a triangle"`
	Side     *Number  `json:"side,omitempty" jsonschema:"description=Side length of a square or cube"`
	Sides    []Number `json:"sides,omitempty" jsonschema:"description=The three side lengths of a triangle"`
}

type pointsArgs struct {
	Point1 []Number `json:"point1" validate:"required" jsonschema:"description=First point coordinates"`
	Point2 []Number `json:"point2" validate:"required" jsonschema:"description=Second point coordinates"`
}

func unsupportedShape(shape string) error {
	return errors.Newf("Unsupported shape: %s", shape)
}

func area(args *shapeArgs) (Value, error) {
	shape := strings.ToLower(args.Shape)
	switch shape {
	case "circle":
		switch {
		case args.Radius != nil:
			r := args.Radius.Float64()
			return Float(math.Pi * r * r), nil
		case args.Diameter != nil:
			r := args.Diameter.Float64() / 2
			return Float(math.Pi * r * r), nil
		}
		return Value{}, errors.New("Circle requires radius or diameter")
	case "rectangle":
		if args.Length != nil && args.Width != nil {
			return Float(args.Length.Float64() * args.Width.Float64()), nil
		}
		return Value{}, errors.New("Rectangle requires length and width")
	case "triangle":
		switch {
		case args.Base != nil && args.Height != nil:
			return Float(0.5 * args.Base.Float64() * args.Height.Float64()), nil
		case len(args.Sides) == 3:
			a, b, c := args.Sides[0].Float64(), args.Sides[1].Float64(), args.Sides[2].Float64()
			s := (a + b + c) / 2
			sq := s * (s - a) * (s - b) * (s - c)
			if sq < 0 {
				return Value{}, errors.New("math domain error")
			}
			return Float(math.Sqrt(sq)), nil
		}
		return Value{}, errors.New("Triangle requires base and height or three sides")
	}
	return Value{}, unsupportedShape(shape)
}

func volume(args *shapeArgs) (Value, error) {
	shape := strings.ToLower(args.Shape)
	switch shape {
	case "cube":
		if args.Side != nil {
			return Float(math.Pow(args.Side.Float64(), 3)), nil
		}
		return Value{}, errors.New("Cube requires side length")
	case "sphere":
		if args.Radius != nil {
			return Float(4.0 / 3 * math.Pi * math.Pow(args.Radius.Float64(), 3)), nil
		}
		return Value{}, errors.New("Sphere requires radius")
	case "cylinder":
		if args.Radius != nil && args.Height != nil {
			r := args.Radius.Float64()
			return Float(math.Pi * r * r * args.Height.Float64()), nil
		}
		return Value{}, errors.New("Cylinder requires radius and height")
	case "cone":
		if args.Radius != nil && args.Height != nil {
			r := args.Radius.Float64()
			return Float(1.0 / 3 * math.Pi * r * r * args.Height.Float64()), nil
		}
		return Value{}, errors.New("Cone requires radius and height")
	case "rectangular_prism", "cuboid":
		if args.Length != nil && args.Width != nil && args.Height != nil {
			return Float(args.Length.Float64() * args.Width.Float64() * args.Height.Float64()), nil
		}
		return Value{}, errors.New("Rectangular prism requires length, width, and height")
	}
	return Value{}, unsupportedShape(shape)
}

func perimeter(args *shapeArgs) (Value, error) {
	shape := strings.ToLower(args.Shape)
	switch shape {
	case "square":
		if args.Side != nil {
			return Float(4 * args.Side.Float64()), nil
		}
		return Value{}, errors.New("Square requires side length")
	case "rectangle":
		if args.Length != nil && args.Width != nil {
			return Float(2 * (args.Length.Float64() + args.Width.Float64())), nil
		}
		return Value{}, errors.New("Rectangle requires length and width")
	case "circle":
		switch {
		case args.Radius != nil:
			return Float(2 * math.Pi * args.Radius.Float64()), nil
		case args.Diameter != nil:
			return Float(math.Pi * args.Diameter.Float64()), nil
		}
		return Value{}, errors.New("Circle requires radius or diameter")
	case "triangle":
		if len(args.Sides) == 3 {
			return Float(floats.Sum(toFloats(args.Sides))), nil
		}
		return Value{}, errors.New("Triangle requires three sides")
	}
	return Value{}, unsupportedShape(shape)
}

func surfaceArea(args *shapeArgs) (Value, error) {
	shape := strings.ToLower(args.Shape)
	switch shape {
	case "cube":
		if args.Side != nil {
			s := args.Side.Float64()
			return Float(6 * s * s), nil
		}
		return Value{}, errors.New("Cube requires side length")
	case "sphere":
		if args.Radius != nil {
			r := args.Radius.Float64()
			return Float(4 * math.Pi * r * r), nil
		}
		return Value{}, errors.New("Sphere requires radius")
	case "cylinder":
		if args.Radius != nil && args.Height != nil {
			r, h := args.Radius.Float64(), args.Height.Float64()
			return Float(2 * math.Pi * r * (r + h)), nil
		}
		return Value{}, errors.New("Cylinder requires radius and height")
	case "cone":
		if args.Radius != nil && args.Height != nil {
			r, h := args.Radius.Float64(), args.Height.Float64()
			slant := math.Sqrt(r*r + h*h)
			return Float(math.Pi * r * (r + slant)), nil
		}
		return Value{}, errors.New("Cone requires radius and height")
	case "rectangular_prism", "cuboid":
		if args.Length != nil && args.Width != nil && args.Height != nil {
			l, w, h := args.Length.Float64(), args.Width.Float64(), args.Height.Float64()
			return Float(2 * (l*w + l*h + w*h)), nil
		}
		return Value{}, errors.New("Rectangular prism requires length, width, and height")
	}
	return Value{}, unsupportedShape(shape)
}

func slope(args *pointsArgs) (Value, error) {
	if len(args.Point1) != 2 || len(args.Point2) != 2 {
		return Value{}, errors.New("Points must be in the form [x, y]")
	}
	x1, y1 := args.Point1[0].Float64(), args.Point1[1].Float64()
	x2, y2 := args.Point2[0].Float64(), args.Point2[1].Float64()
	if x1 == x2 {
		return Value{}, errors.New("Slope is undefined (vertical line)")
	}
	return IntIfWhole((y2 - y1) / (x2 - x1)), nil
}

func distance(args *pointsArgs) (Value, error) {
	if len(args.Point1) != len(args.Point2) {
		return Value{}, errors.New("Points must have the same dimensions")
	}
	return Float(floats.Distance(toFloats(args.Point1), toFloats(args.Point2), 2)), nil
}
