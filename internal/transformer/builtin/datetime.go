package builtin

import (
	"fmt"
	"math"
	"strings"
	"time"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

// Layouts tried, in order, for textual timestamps.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006",
	"01/02/2006",
}

func datetimeDescriptor(part, title string, fn func(time.Time) any) transformer.Descriptor {
	return transformer.Descriptor{
		Key:    "datetime-extract-" + part,
		Title:  title,
		Fields: transformer.Fields{inputColumn("field", "Input", "The column to use as input"), outputColumn()},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			field, output := args.String("field", ""), args.String("output", "")
			return rowFunc(func(r records.Record, _ int) (records.Record, error) {
				v, ok := r[field]
				if !ok || transformer.IsMissing(v) {
					r[output] = math.NaN()
					return r, nil
				}
				t, err := asTime(v)
				if err != nil {
					return nil, fmt.Errorf("column %q: %w", field, err)
				}
				r[output] = fn(t)
				return r, nil
			}), nil
		},
	}
}

func asTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%q is not a timestamp", x)
	}
	return time.Time{}, fmt.Errorf("%T is not a timestamp", v)
}

var datetimeTransformations = []transformer.Descriptor{
	datetimeDescriptor("year", "Extract year from {field} into {output}", func(t time.Time) any { return int64(t.Year()) }),
	datetimeDescriptor("month", "Extract month from {field} into {output}", func(t time.Time) any { return int64(t.Month()) }),
	datetimeDescriptor("day", "Extract day from {field} into {output}", func(t time.Time) any { return int64(t.Day()) }),
	datetimeDescriptor("week", "Extract week number from {field} into {output}", func(t time.Time) any {
		_, w := t.ISOWeek()
		return int64(w)
	}),
	// Monday is 0.
	datetimeDescriptor("dayofweek", "Extract the day of the week from {field} into {output} (Monday is 0)", func(t time.Time) any {
		return int64((int(t.Weekday()) + 6) % 7)
	}),
	datetimeDescriptor("dayofyear", "Extract the day of the year from {field} into {output}", func(t time.Time) any { return int64(t.YearDay()) }),
	datetimeDescriptor("hours", "Extract the hours from {field} into {output}", func(t time.Time) any { return int64(t.Hour()) }),
	datetimeDescriptor("minutes", "Extract the minutes from {field} into {output}", func(t time.Time) any { return int64(t.Minute()) }),
	datetimeDescriptor("seconds", "Extract the seconds from {field} into {output}", func(t time.Time) any { return int64(t.Second()) }),
	datetimeDescriptor("timestamp", "Extract the timestamp from {field} into {output}", func(t time.Time) any {
		return float64(t.UnixNano()) / 1e9
	}),
}
