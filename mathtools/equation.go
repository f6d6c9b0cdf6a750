package mathtools

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
)

var equationCharset = regexp.MustCompile(`^[0-9a-zA-Z\s+\-*/().=]+$`)

type equationArgs struct {
	Equation string `json:"equation" validate:"required" jsonschema:"description=Linear equation in the form expression = expression"`
	Variable string `json:"variable,omitempty" jsonschema:"description=Variable to solve for,default=x"`
}

func solveEquation(args *equationArgs) (Value, error) {
	if !equationCharset.MatchString(args.Equation) {
		return Value{}, errors.New("Invalid equation: only basic math operations allowed")
	}
	if !strings.Contains(args.Equation, "=") {
		return Value{}, errors.New("Equation must contain '='")
	}

	res, err := solveLinear(args.Equation, values.StringsCoalesce(args.Variable, "x"))
	if err != nil {
		return Value{}, errors.Newf("Could not solve equation: %s", err.Error())
	}
	return IntIfWhole(res), nil
}

// solveLinear solves `a*x + b = c*x + d` style equations where every term is
// either a constant or a coefficient directly followed by the variable.
func solveLinear(equation, variable string) (float64, error) {
	left, right, _ := strings.Cut(equation, "=")

	// variable terms are collected on the left, constants on the right,
	// each with the sign it has after moving
	var varTerms, constTerms []string
	for _, term := range splitTerms(left) {
		if strings.Contains(term, variable) {
			varTerms = append(varTerms, term)
		} else {
			constTerms = append(constTerms, negate(term))
		}
	}
	for _, term := range splitTerms(right) {
		if strings.Contains(term, variable) {
			varTerms = append(varTerms, negate(term))
		} else {
			constTerms = append(constTerms, term)
		}
	}

	coef := 0.0
	for _, term := range varTerms {
		c := strings.ReplaceAll(term, variable, "")
		switch c {
		case "":
			coef++
		case "-":
			coef--
		default:
			f, err := parseFloat(c)
			if err != nil {
				return 0, err
			}
			coef += f
		}
	}

	constant := 0.0
	for _, term := range constTerms {
		if term == "" || term == "+" || term == "-" {
			continue
		}
		f, err := parseFloat(term)
		if err != nil {
			return 0, err
		}
		constant += f
	}

	if coef == 0 {
		return 0, errors.Newf("Equation has no solution for %s", variable)
	}
	return constant / coef, nil
}

func splitTerms(side string) []string {
	var terms []string
	for _, term := range strings.Split(strings.ReplaceAll(side, "-", "+-"), "+") {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func negate(term string) string {
	if rest, ok := strings.CutPrefix(term, "-"); ok {
		return rest
	}
	return "-" + term
}

// parseFloat accepts surrounding whitespace, as lenient callers send " 2 ".
func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && ne.Err == strconv.ErrRange {
			return f, nil
		}
		return 0, errors.Newf("could not convert string to float: '%s'", s)
	}
	return f, nil
}
