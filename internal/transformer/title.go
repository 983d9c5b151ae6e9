package transformer

import (
	"fmt"
	"regexp"
	"strings"

	"datascout/internal/config"
)

var placeholder = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// RenderTitle fills the {param} placeholders of the title template with the
// step arguments. Lists are joined with ", "; unknown placeholders stay as is.
func (d *Descriptor) RenderTitle(args config.Options) string {
	return placeholder.ReplaceAllStringFunc(d.Title, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := args[key]
		if !ok {
			return m
		}
		switch x := v.(type) {
		case []any:
			parts := make([]string, len(x))
			for i, p := range x {
				parts[i] = fmt.Sprint(p)
			}
			return strings.Join(parts, ", ")
		case []string:
			return strings.Join(x, ", ")
		case nil:
			return ""
		}
		return fmt.Sprint(v)
	})
}
