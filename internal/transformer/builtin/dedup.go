package builtin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"datascout/internal/config"
	"datascout/internal/frame"
	"datascout/internal/transformer"
	"datascout/pkg/records"
)

var dedupDescriptor = transformer.Descriptor{
	Key:   "dedup",
	Title: "Remove duplicate rows by {fields}",
	Fields: transformer.Fields{
		{Key: "fields", Name: "Key columns", Type: "list<string>", Input: "column", Multiple: true, Default: "",
			Help: "The columns that identify a row; all columns when empty"},
		{Key: "policy", Name: "Keep", Type: "string", Input: "select", Default: "keep-last",
			Help:    "Which duplicate wins",
			Options: map[string]string{"keep-first": "First", "keep-last": "Last", "most-complete": "Most complete"}},
		{Key: "prefer_fields", Name: "Preferred columns", Type: "list<string>", Input: "column", Multiple: true, Default: "",
			Help: "Columns that weigh more in the most-complete policy"},
	},
	Flags: transformer.Flags{Global: true},
	New: func(args config.Options, _ int, _ records.Record) (any, error) {
		d := DeDup{
			Keys:         args.StringSlice("fields"),
			Policy:       args.String("policy", "keep-last"),
			PreferFields: args.StringSlice("prefer_fields"),
		}
		switch strings.ToLower(strings.TrimSpace(d.Policy)) {
		case "", "keep-first", "keep-last", "most-complete":
		default:
			return nil, fmt.Errorf("dedup: unknown policy %q", d.Policy)
		}
		return d, nil
	},
}

// DeDup collapses duplicate rows by a key and chooses a winner according to
// a policy:
//
//   - "keep-first"   : keep the earliest occurrence
//   - "keep-last"    : keep the latest occurrence (default)
//   - "most-complete": keep the row with the most non-empty values;
//     ties break by "keep-last"
//
// Keys are xxh3 hashes of the canonical encoding of the key columns
// (records.KeyHash), so 1 and 1.0 are duplicates. Rows that lack a key column
// are passed through after the winners, in input order.
type DeDup struct {
	// Keys are the columns that form the business key. Empty means every
	// column of the frame.
	Keys []string

	// Policy selects the winner among duplicates: "keep-first", "keep-last",
	// or "most-complete" (default is "keep-last").
	Policy string

	// PreferFields add weight in "most-complete" selection when present and
	// non-empty. Ties still break by keep-last.
	PreferFields []string
}

// ApplyGlobal satisfies transformer.Global.
func (d DeDup) ApplyGlobal(f *frame.Frame) (*frame.Frame, error) {
	keys := d.Keys
	if len(keys) == 0 {
		keys = f.Columns
	}
	return &frame.Frame{Columns: f.Columns, Rows: d.apply(f.Rows, keys)}, nil
}

func (d DeDup) apply(in []records.Record, keys []string) []records.Record {
	if len(in) == 0 || len(keys) == 0 {
		return in
	}

	policy := strings.ToLower(strings.TrimSpace(d.Policy))
	if policy == "" {
		policy = "keep-last"
	}

	type slot struct {
		rec   records.Record
		index int
		score int
	}

	winners := make(map[xxh3.Uint128]slot, len(in))

	prefer := make(map[string]struct{}, len(d.PreferFields))
	for _, f := range d.PreferFields {
		prefer[f] = struct{}{}
	}

	scoreOf := func(r records.Record) int {
		score, bonus := 0, 0
		for k, v := range r {
			if transformer.IsMissing(v) {
				continue
			}
			score++
			if _, ok := prefer[k]; ok {
				bonus++
			}
		}
		return score*10 + bonus
	}

	var passthrough []records.Record
	for i, r := range in {
		if !present(r, keys...) {
			passthrough = append(passthrough, r)
			continue
		}
		key := records.KeyHash(r, keys)
		switch policy {
		case "keep-first":
			if _, exists := winners[key]; !exists {
				winners[key] = slot{rec: r, index: i}
			}
		case "most-complete":
			s := slot{rec: r, index: i, score: scoreOf(r)}
			if prev, exists := winners[key]; !exists || s.score >= prev.score {
				winners[key] = s
			}
		default:
			winners[key] = slot{rec: r, index: i}
		}
	}

	slots := make([]slot, 0, len(winners))
	for _, s := range winners {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].index < slots[j].index })

	out := make([]records.Record, 0, len(slots)+len(passthrough))
	for _, s := range slots {
		out = append(out, s.rec)
	}
	return append(out, passthrough...)
}
