package mathtools

import "sync"

const shapeNote = " Pass the shape name and its dimensions as named arguments" +
	" (radius, diameter, length, width, height, base, side, sides)."

// All returns every math tool in a stable order.
func All() []*Tool {
	return []*Tool{
		newTool("add", "Add two numbers.", add),
		newTool("subtract", "Subtract b from a.", subtract),
		newTool("multiply", "Multiply two numbers.", multiply),
		newTool("divide", "Divide a by b.", divide),
		newTool("sqrt", "Calculate the square root of a number.", squareRoot),
		newTool("power", "Calculate base raised to the exponent power.", power),
		newTool("log", "Calculate logarithm of n with given base (default: base 10).", logarithm),
		newTool("trigonometry", "Calculate trigonometric functions sin, cos or tan of an angle in degrees (default) or radians.", trigonometry),
		newTool("geometry", "Calculate geometric properties: the area of a circle, rectangle or triangle."+shapeNote, area),
		newTool("percentage", "Calculate percentage. Given part and whole: what percent part is of whole."+
			" Given part and percentage: the whole. Given percentage and whole: the part.", percentage),
		newTool("conversion", "Convert between different units."+
			" Length: km, m, cm, mm, mile, yard, foot, inch."+
			" Weight: kg, g, mg, pound, ounce."+
			" Temperature: celsius, fahrenheit, kelvin."+
			" Time: hour, minute, second.", conversion),
		newTool("temperature_conversion", "Convert between temperature units: Celsius, Fahrenheit, Kelvin.", temperatureConversion),
		newTool("gcd", "Calculate the greatest common divisor of two integers.", gcd),
		newTool("lcm", "Calculate the least common multiple of two integers.", lcm),
		newTool("round_number", "Round a number to specified decimal places.", roundNumber),
		newTool("factorial", "Calculate the factorial of a non-negative integer.", factorial),
		newTool("summation", "Calculate the sum of a series. Default sums the numbers from start to end."+
			" For custom expressions, use 'n' as the variable.", summation),
		newTool("abs_value", "Calculate the absolute value of a number.", absValue),
		newTool("max_value", "Find the maximum value in a list of numbers.", maxValue),
		newTool("min_value", "Find the minimum value in a list of numbers.", minValue),
		newTool("average", "Calculate the average of a list of numbers.", average),
		newTool("median", "Calculate the median of a list of numbers.", median),
		newTool("mode", "Calculate the mode of a list of numbers.", mode),
		newTool("volume", "Calculate the volume of a 3D shape: cube, sphere, cylinder, cone, rectangular_prism."+shapeNote, volume),
		newTool("perimeter", "Calculate the perimeter of a 2D shape: square, rectangle, circle, triangle."+shapeNote, perimeter),
		newTool("equation_solving", `Solve a simple linear equation for the specified variable. Equation should be in the form "expression = expression".`, solveEquation),
		newTool("slope", "Calculate the slope of a line passing through two points.", slope),
		newTool("area", "Calculate the area of a 2D shape: circle, rectangle, triangle."+shapeNote, area),
		newTool("surface_area", "Calculate the surface area of a 3D shape: cube, sphere, cylinder, cone, rectangular_prism."+shapeNote, surfaceArea),
		newTool("distance", "Calculate the distance between two points in 2D or 3D space.", distance),
		newTool("statistics_tool", "Perform statistical operations on a dataset: mean, median, mode, variance, stdev, range.", statistics),
		newTool("pythagorean", "Calculate the length of the hypotenuse using the Pythagorean theorem.", pythagorean),
	}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the shared registry of all math tools.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(All()...)
		if err != nil {
			panic(err)
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
