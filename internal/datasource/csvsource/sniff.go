package csvsource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

var candidates = []rune{',', ';', '\t', '|'}

// sniffRows is how many complete rows are compared.
const sniffRows = 20

// Sniff guesses the delimiter of a CSV prefix: the candidate that splits the
// complete rows into the same number of fields (more than one) and the most
// of them wins. Ties go to the earlier candidate; nothing convincing yields
// ','.
func Sniff(head []byte) rune {
	if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
		head = head[:i+1]
	}
	best, bestWidth := ',', 1
	for _, c := range candidates {
		if w := consistentWidth(head, c); w > bestWidth {
			best, bestWidth = c, w
		}
	}
	return best
}

func consistentWidth(head []byte, comma rune) int {
	cr := csv.NewReader(bytes.NewReader(head))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	width := 0
	for n := 0; n < sniffRows; n++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0
		}
		switch {
		case width == 0:
			width = len(row)
		case len(row) != width:
			return 0
		}
	}
	return width
}
