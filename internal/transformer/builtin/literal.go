package builtin

import (
	"fmt"
	"math/rand/v2"
	"time"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var seedField = transformer.Field{
	Key: "seed", Name: "Seed", Type: "number", Input: "number", Default: nil,
	Help: "Seed for the generator; rows get the same value for the same seed and position",
}

var literalTransformations = []transformer.Descriptor{
	{
		Key:   "literal-string",
		Title: "Create a string column {output} with the value {value}",
		Fields: transformer.Fields{
			textParam("value", "Value", "The value to populate the new column with"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			return constant(args.String("output", ""), args.String("value", "")), nil
		},
	},
	{
		Key:   "literal-integer",
		Title: "Create an integer column {output} with the value {value}",
		Fields: transformer.Fields{
			numberParam("value", "Value", "The value to populate the new column with"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			n, ok := transformer.Number(args.Any("value"))
			if !ok {
				return nil, fmt.Errorf("literal-integer: %v is not a number", args.Any("value"))
			}
			i, ok := n.(int64)
			if !ok {
				f, _ := transformer.ToFloat(n)
				i = int64(f)
			}
			return constant(args.String("output", ""), i), nil
		},
	},
	{
		Key:   "literal-float",
		Title: "Create a float column {output} with the value {value}",
		Fields: transformer.Fields{
			numberParam("value", "Value", "The value to populate the new column with"),
			outputColumn(),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			f, ok := transformer.ToFloat(args.Any("value"))
			if !ok {
				return nil, fmt.Errorf("literal-float: %v is not a number", args.Any("value"))
			}
			return constant(args.String("output", ""), f), nil
		},
	},
	{
		Key:    "literal-null",
		Title:  "Create a column {output} containing only null values",
		Fields: transformer.Fields{outputColumn()},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			return constant(args.String("output", ""), nil), nil
		},
	},
	{
		Key:   "literal-rand-between",
		Title: "Create a float column {output} with a random value between {start} and {end}",
		Fields: transformer.Fields{
			numberParam("start", "From", "The lower bound"),
			numberParam("end", "Till", "The upper bound"),
			outputColumn(),
			seedField,
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			lo, hi := args.Float("start", 0), args.Float("end", 0)
			if hi < lo {
				return nil, fmt.Errorf("literal-rand-between: end %v is below start %v", hi, lo)
			}
			return random(args, func(rng *rand.Rand) any {
				return lo + rng.Float64()*(hi-lo)
			}), nil
		},
	},
	{
		Key:   "literal-rand-int",
		Title: "Create an integer column {output} with a random value between {start} and {end}",
		Fields: transformer.Fields{
			numberParam("start", "From", "The lower bound (inclusive)"),
			numberParam("end", "Till", "The upper bound (exclusive)"),
			outputColumn(),
			seedField,
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			lo, hi := int64(args.Int("start", 0)), int64(args.Int("end", 0))
			if hi <= lo {
				return nil, fmt.Errorf("literal-rand-int: empty range [%d, %d)", lo, hi)
			}
			return random(args, func(rng *rand.Rand) any {
				return lo + rng.Int64N(hi-lo)
			}), nil
		},
	},
}

func constant(output string, v any) rowFunc {
	return func(r records.Record, _ int) (records.Record, error) {
		r[output] = v
		return r, nil
	}
}

// random draws one value per row from a generator keyed by the instance seed
// and the row position, so results do not depend on scheduling.
func random(args config.Options, draw func(*rand.Rand) any) rowFunc {
	output := args.String("output", "")
	seed := uint64(time.Now().UnixNano())
	if args.Has("seed") && args.Any("seed") != nil {
		seed = uint64(args.Int("seed", 0))
	}
	return func(r records.Record, i int) (records.Record, error) {
		rng := rand.New(rand.NewPCG(seed, uint64(i)))
		r[output] = draw(rng)
		return r, nil
	}
}
