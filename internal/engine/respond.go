package engine

import (
	"math"
	"time"

	"datascout/internal/diag"
	"datascout/internal/schema"
	"datascout/pkg/records"
)

// Response is the JSON envelope of one engine call.
type Response struct {
	Success  bool           `json:"success"`
	Messages []diag.Message `json:"messages"`
	Data     *Data          `json:"data,omitempty"`
}

// Data carries the records of a successful call as positional rows.
type Data struct {
	Records     [][]any           `json:"records"`
	ColumnTypes []schema.Snapshot `json:"column_types"`
	ColumnNames []string          `json:"column_names"`
}

// Respond builds the envelope for the outcome of Execute. A non-nil err adds
// exactly one error message and drops the data. Values that JSON cannot carry
// are rendered as strings: NaN as "NaN", infinities as "Infinity" and
// "-Infinity", times in RFC 3339.
func Respond(res *Result, err error, dl *diag.Log) Response {
	msgs := dl.Messages()
	if err != nil {
		msgs = append(msgs, diag.Message{Code: code(err), Type: diag.Error, Message: err.Error()})
		return Response{Success: false, Messages: msgs}
	}
	data := &Data{Records: [][]any{}, ColumnTypes: []schema.Snapshot{}, ColumnNames: []string{}}
	if res != nil {
		if res.Columns != nil {
			data.ColumnNames = res.Columns
		}
		if res.Schemas != nil {
			data.ColumnTypes = res.Schemas
		}
		data.Records = make([][]any, len(res.Records))
		for i, r := range res.Records {
			row := make([]any, len(data.ColumnNames))
			for j, c := range data.ColumnNames {
				row[j] = Clean(r[c])
			}
			data.Records[i] = row
		}
	}
	return Response{Success: true, Messages: msgs, Data: data}
}

// Clean returns v with every value JSON cannot encode replaced, descending
// into lists and maps.
func Clean(v any) any {
	switch x := v.(type) {
	case float64:
		return cleanFloat(x)
	case float32:
		return cleanFloat(float64(x))
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case time.Duration:
		return x.String()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Clean(e)
		}
		return out
	case map[string]any:
		return cleanMap(x)
	case records.Record:
		return cleanMap(x)
	}
	return v
}

func cleanMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = Clean(e)
	}
	return out
}

func cleanFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}

// Fingerprint hashes the records of res in column order. Two runs of a
// pipeline without random steps over the same input have equal fingerprints.
func Fingerprint(res *Result) uint64 {
	return records.Fingerprint(res.Columns, res.Records)
}
