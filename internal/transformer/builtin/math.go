package builtin

import (
	"errors"
	"fmt"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var errDivideByZero = errors.New("division by zero")

var mathTransformations = []transformer.Descriptor{
	{
		Key:    "math-add",
		Title:  "Sum {fields}",
		Fields: transformer.Fields{inputColumns("fields", "Columns", "The fields to add to each other"), outputColumn()},
		New:    foldFactory('+'),
	},
	{
		Key:   "math-min",
		Title: "Calculate {field_a} - {field_b}",
		Fields: transformer.Fields{
			inputColumn("field_a", "Field 1", "The field that should be subtracted from"),
			inputColumn("field_b", "Field 2", "The field that should be subtracted"),
			outputColumn(),
		},
		New: binaryFactory('-', false),
	},
	{
		Key:    "math-multiply",
		Title:  "Multiply {fields}",
		Fields: transformer.Fields{inputColumns("fields", "Fields", "The fields to multiply with each other"), outputColumn()},
		New:    foldFactory('*'),
	},
	{
		Key:   "math-divide",
		Title: "Calculate {field_a} / {field_b}",
		Fields: transformer.Fields{
			inputColumn("field_a", "Numerator", "The numerator"),
			inputColumn("field_b", "Denominator", "The denominator"),
			outputColumn(),
		},
		New: binaryFactory('/', true),
	},
}

// foldFactory folds op over a list of columns.
func foldFactory(op byte) transformer.Factory {
	return func(args config.Options, _ int, _ records.Record) (any, error) {
		fields, err := columnList(args, "fields")
		if err != nil {
			return nil, err
		}
		output := args.String("output", "")
		return rowFunc(func(r records.Record, i int) (records.Record, error) {
			if !present(r, fields...) {
				return r, nil
			}
			acc := r[fields[0]]
			for _, f := range fields[1:] {
				v, err := arith(op, acc, r[f])
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", f, err)
				}
				acc = v
			}
			if len(fields) == 1 {
				v, err := arith(op, acc, identity(op))
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", fields[0], err)
				}
				acc = v
			}
			r[output] = acc
			return r, nil
		}), nil
	}
}

// binaryFactory applies op to two columns. strict rows missing an operand
// fail instead of passing through.
func binaryFactory(op byte, strict bool) transformer.Factory {
	return func(args config.Options, _ int, _ records.Record) (any, error) {
		a, b := args.String("field_a", ""), args.String("field_b", "")
		output := args.String("output", "")
		return rowFunc(func(r records.Record, i int) (records.Record, error) {
			for _, c := range []string{a, b} {
				if _, ok := r[c]; !ok {
					if strict {
						return nil, fmt.Errorf("column %q not found", c)
					}
					return r, nil
				}
			}
			v, err := arith(op, r[a], r[b])
			if err != nil {
				return nil, err
			}
			r[output] = v
			return r, nil
		}), nil
	}
}

func identity(op byte) any {
	if op == '*' {
		return int64(1)
	}
	return int64(0)
}

// arith applies op keeping int64 results for integer operands, except for
// division which always yields float64. Missing operands yield nil.
func arith(op byte, a, b any) (any, error) {
	if transformer.IsMissing(a) || transformer.IsMissing(b) {
		return nil, nil
	}
	x, ok := transformer.Number(a)
	if !ok {
		return nil, fmt.Errorf("%v is not a number", a)
	}
	y, ok := transformer.Number(b)
	if !ok {
		return nil, fmt.Errorf("%v is not a number", b)
	}
	xi, xInt := x.(int64)
	yi, yInt := y.(int64)
	if xInt && yInt && op != '/' {
		switch op {
		case '+':
			return xi + yi, nil
		case '-':
			return xi - yi, nil
		case '*':
			return xi * yi, nil
		}
	}
	xf, _ := transformer.ToFloat(x)
	yf, _ := transformer.ToFloat(y)
	switch op {
	case '+':
		return xf + yf, nil
	case '-':
		return xf - yf, nil
	case '*':
		return xf * yf, nil
	case '/':
		if yf == 0 {
			return nil, errDivideByZero
		}
		return xf / yf, nil
	}
	return nil, fmt.Errorf("unknown operator %q", op)
}
