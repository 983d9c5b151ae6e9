package xmlsource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
)

// shard splits r into the re-encoded bytes of each <recordTag> element and
// hands them to emit in document order. A truncated trailing record is
// dropped and ends the scan without an error.
func shard(ctx context.Context, r io.Reader, recordTag string, emit func(i int, b []byte) error) error {
	dec := xml.NewDecoder(bufio.NewReaderSize(r, 1<<20))
	dec.Strict = false

	for i := 0; ; {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || isTruncErr(err) {
				return nil
			}
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != recordTag {
			continue
		}
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		var buf bytes.Buffer
		enc := xml.NewEncoder(&buf)
		if err := enc.EncodeToken(se); err != nil {
			return err
		}
		for depth := 1; depth > 0; {
			tok, err = dec.Token()
			if err != nil {
				return nil
			}
			switch tok.(type) {
			case xml.StartElement:
				depth++
			case xml.EndElement:
				depth--
			}
			if err := enc.EncodeToken(tok); err != nil {
				return err
			}
		}
		if err := enc.Flush(); err != nil {
			return err
		}
		if err := emit(i, buf.Bytes()); err != nil {
			return err
		}
		i++
	}
}

// count returns the number of complete <recordTag> elements in r.
func count(ctx context.Context, r io.Reader, recordTag string) (int, error) {
	dec := xml.NewDecoder(bufio.NewReaderSize(r, 1<<20))
	dec.Strict = false

	n, depth := 0, 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) || isTruncErr(err) {
				return n, nil
			}
			return 0, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
			} else if t.Name.Local == recordTag {
				depth = 1
			}
		case xml.EndElement:
			if depth == 0 {
				continue
			}
			if depth--; depth == 0 {
				n++
				if n%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return 0, err
					}
				}
			}
		}
	}
}
