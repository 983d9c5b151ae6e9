package builtin

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"datascout/internal/config"
	"datascout/internal/transformer"
	"datascout/pkg/records"
	"datascout/pkg/textnorm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	symbolsRe    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

var sideOptions = map[string]string{"both": "Both", "left": "Left", "right": "Right"}

var formatTransformations = []transformer.Descriptor{
	formatDescriptor("format-uppercase", "Convert {fields} to uppercase", strings.ToUpper),
	formatDescriptor("format-lowercase", "Convert {fields} to lowercase", strings.ToLower),
	formatDescriptor("format-propercase", "Convert {fields} to proper case", properCase),
	trimDescriptor("format-trim-whitespace", "Trim {fields} of whitespace", ""),
	trimDescriptor("format-trim-quotes", "Trim {fields} of quotes", `'"`),
	formatDescriptor("format-remove-whitespace", "Remove whitespace from {fields}", func(s string) string {
		return whitespaceRe.ReplaceAllString(s, "")
	}),
	formatDescriptor("format-remove-quotes", "Remove quotes from {fields}", func(s string) string {
		return strings.NewReplacer(`'`, "", `"`, "").Replace(s)
	}),
	formatDescriptor("format-remove-symbols", "Remove symbols from {fields}", func(s string) string {
		return symbolsRe.ReplaceAllString(s, "")
	}),
	formatDescriptor("format-remove-accents", "Remove accents from {fields}", textnorm.StripAccents),
	formatDescriptor("format-strip-html", "Remove markup tags from {fields}", func(s string) string {
		return textnorm.CollapseSpace(textnorm.StripMarkup(s))
	}),
	formatDescriptor("format-collapse-whitespace", "Collapse whitespace runs in {fields}", textnorm.CollapseSpace),
	affixDescriptor("format-add-prefix", "Add the prefix {text} to {fields}", true),
	affixDescriptor("format-add-suffix", "Add the suffix {text} to {fields}", false),
	{
		Key:   "format-pad",
		Title: "Pad {fields} {side} to {length} characters with {character}",
		Fields: transformer.Fields{
			inputColumns("fields", "Columns", "The fields to pad"),
			textParam("character", "Character", "The character to pad the string with"),
			numberParam("length", "Length", "What should be the length of the resulting string"),
			selectParam("side", "Side", "On which side should the padding take place", "left",
				map[string]string{"left": "Left", "right": "Right"}),
		},
		New: newPad,
	},
}

// mapColumns builds a row transformation that rewrites each listed text
// column with fn. Rows missing a column or holding a non-text value in it keep
// that value.
func mapColumns(fields []string, fn func(string) string) rowFunc {
	return func(r records.Record, _ int) (records.Record, error) {
		for _, f := range fields {
			v, ok := r[f]
			if !ok {
				continue
			}
			s, ok := text(v)
			if !ok {
				continue
			}
			r[f] = fn(s)
		}
		return r, nil
	}
}

func formatDescriptor(key, title string, fn func(string) string) transformer.Descriptor {
	return transformer.Descriptor{
		Key:    key,
		Title:  title,
		Fields: transformer.Fields{inputColumns("fields", "Columns", "The fields to re-format")},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			fields, err := columnList(args, "fields")
			if err != nil {
				return nil, err
			}
			return mapColumns(fields, fn), nil
		},
	}
}

func trimDescriptor(key, title, cutset string) transformer.Descriptor {
	return transformer.Descriptor{
		Key:   key,
		Title: title,
		Fields: transformer.Fields{
			inputColumns("fields", "Columns", "The fields to trim"),
			selectParam("side", "Side", "Which side of the string should be trimmed?", "both", sideOptions),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			fields, err := columnList(args, "fields")
			if err != nil {
				return nil, err
			}
			fn, err := trimmer(args.String("side", "both"), cutset)
			if err != nil {
				return nil, err
			}
			return mapColumns(fields, fn), nil
		},
	}
}

// trimmer strips cutset, or whitespace when cutset is empty.
func trimmer(side, cutset string) (func(string) string, error) {
	ws := cutset == ""
	switch side {
	case "left":
		if ws {
			return func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) }, nil
		}
		return func(s string) string { return strings.TrimLeft(s, cutset) }, nil
	case "right":
		if ws {
			return func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) }, nil
		}
		return func(s string) string { return strings.TrimRight(s, cutset) }, nil
	case "both", "":
		if ws {
			return strings.TrimSpace, nil
		}
		return func(s string) string { return strings.Trim(s, cutset) }, nil
	}
	return nil, fmt.Errorf("side must be left, right or both, got %q", side)
}

func affixDescriptor(key, title string, prefix bool) transformer.Descriptor {
	return transformer.Descriptor{
		Key:   key,
		Title: title,
		Fields: transformer.Fields{
			inputColumns("fields", "Columns", "The fields to extend"),
			textParam("text", "Text", "The text to add"),
		},
		New: func(args config.Options, _ int, _ records.Record) (any, error) {
			fields, err := columnList(args, "fields")
			if err != nil {
				return nil, err
			}
			t := args.String("text", "")
			if prefix {
				return mapColumns(fields, func(s string) string { return t + s }), nil
			}
			return mapColumns(fields, func(s string) string { return s + t }), nil
		},
	}
}

func newPad(args config.Options, _ int, _ records.Record) (any, error) {
	fields, err := columnList(args, "fields")
	if err != nil {
		return nil, err
	}
	char := args.String("character", " ")
	if utf8.RuneCountInString(char) != 1 {
		return nil, fmt.Errorf("format-pad: character must be exactly one character, got %q", char)
	}
	length := args.Int("length", 0)
	left := args.String("side", "left") == "left"
	return mapColumns(fields, func(s string) string {
		n := length - utf8.RuneCountInString(s)
		if n <= 0 {
			return s
		}
		fill := strings.Repeat(char, n)
		if left {
			return fill + s
		}
		return s + fill
	}), nil
}

// properCase upper-cases the first letter of every word and lower-cases the
// rest.
func properCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
