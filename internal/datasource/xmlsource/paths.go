package xmlsource

import (
	"fmt"
	"strings"
)

// Config describes how to extract values from each <RecordTag> element.
// Paths are relative to the record and may carry one attribute predicate on
// the last segment, e.g. "ArticleIdList/ArticleId[@IdType='doi']".
type Config struct {
	RecordTag string
	// Fields are single valued: the first match wins.
	Fields map[string]string
	// Lists collect every match.
	Lists map[string]string
}

// seg is one path segment with an optional predicate.
type seg struct{ name, attrName, attrVal string }

type pathSpec struct{ segs []seg }

func parsePathSpec(raw string) (pathSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pathSpec{}, fmt.Errorf("empty path")
	}
	parts := strings.Split(raw, "/")
	segs := make([]seg, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return pathSpec{}, fmt.Errorf("bad empty segment in %q", raw)
		}
		s := seg{name: p}
		if i == len(parts)-1 {
			if j := strings.Index(p, "["); j != -1 && strings.HasSuffix(p, "]") {
				s.name = p[:j]
				pred := strings.TrimSpace(p[j+1 : len(p)-1])
				name, val, ok := strings.Cut(strings.TrimPrefix(pred, "@"), "=")
				if !strings.HasPrefix(pred, "@") || !ok || name == "" {
					return pathSpec{}, fmt.Errorf("bad predicate %q in %q", pred, raw)
				}
				s.attrName = name
				s.attrVal = strings.Trim(strings.TrimSpace(val), `"'`)
			}
		} else if strings.Contains(p, "[") {
			return pathSpec{}, fmt.Errorf("predicate only allowed on the last segment of %q", raw)
		}
		segs = append(segs, s)
	}
	return pathSpec{segs: segs}, nil
}

func (p pathSpec) last() seg { return p.segs[len(p.segs)-1] }

type matcher struct {
	column string
	spec   pathSpec
	list   bool
}

// compiled indexes the matchers by the name of their last element.
type compiled struct {
	recordTag string
	byLast    map[string][]matcher
	columns   []string
}

func compile(c Config) (compiled, error) {
	cc := compiled{recordTag: c.RecordTag, byLast: map[string][]matcher{}}
	if strings.TrimSpace(c.RecordTag) == "" {
		return cc, fmt.Errorf("record_tag is required")
	}
	add := func(kind string, m map[string]string, list bool) error {
		for _, col := range sortedKeys(m) {
			ps, err := parsePathSpec(m[col])
			if err != nil {
				return fmt.Errorf("%s.%s: %w", kind, col, err)
			}
			name := ps.last().name
			cc.byLast[name] = append(cc.byLast[name], matcher{column: col, spec: ps, list: list})
			cc.columns = append(cc.columns, col)
		}
		return nil
	}
	if err := add("fields", c.Fields, false); err != nil {
		return cc, err
	}
	if err := add("lists", c.Lists, true); err != nil {
		return cc, err
	}
	if len(cc.columns) == 0 {
		return cc, fmt.Errorf("no fields or lists configured for <%s>", c.RecordTag)
	}
	return cc, nil
}

// tailMatches reports whether rel, the element stack below the record, ends
// with the segments of spec.
func tailMatches(rel []string, spec pathSpec) bool {
	if len(rel) < len(spec.segs) {
		return false
	}
	off := len(rel) - len(spec.segs)
	for i := range spec.segs {
		if rel[off+i] != spec.segs[i].name {
			return false
		}
	}
	return true
}
