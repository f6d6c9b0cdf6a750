// Package mathtools implements the stateless math tools served to agents:
// arithmetic, algebra, geometry, statistics and unit conversion.
//
// Arguments are decoded leniently: numbers may arrive as JSON numbers,
// numeric strings or bools, and shape dimensions may be nested under "kwargs".
// Results are exact integers where the operation is integral, floats otherwise.
package mathtools
