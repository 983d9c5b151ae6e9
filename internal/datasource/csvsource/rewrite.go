package csvsource

import (
	"bufio"
	"bytes"
	"io"
	"sort"
)

// streamingRewriter replaces every occurrence of pat with repl while reading,
// without buffering the whole stream. The last len(pat)-1 bytes of each block
// are carried into the next one so matches spanning chunk boundaries are seen.
type streamingRewriter struct {
	br    *bufio.Reader
	pat   []byte
	repl  []byte
	chunk []byte
	carry []byte
	buf   bytes.Buffer
	eof   bool
}

func newStreamingRewriter(r io.Reader, pat, repl []byte) *streamingRewriter {
	return &streamingRewriter{
		br:    bufio.NewReaderSize(r, 64*1024),
		pat:   pat,
		repl:  repl,
		chunk: make([]byte, 64*1024),
		carry: make([]byte, 0, max(len(pat)-1, 0)),
	}
}

func (sr *streamingRewriter) Read(p []byte) (int, error) {
	for sr.buf.Len() == 0 {
		if sr.eof {
			return 0, io.EOF
		}
		if err := sr.fill(); err != nil {
			return 0, err
		}
	}
	return sr.buf.Read(p)
}

func (sr *streamingRewriter) fill() error {
	n, err := sr.br.Read(sr.chunk)
	if n > 0 {
		block := append(append([]byte(nil), sr.carry...), sr.chunk[:n]...)
		if len(sr.pat) > 0 {
			block = bytes.ReplaceAll(block, sr.pat, sr.repl)
		}
		k := max(len(sr.pat)-1, 0)
		if len(block) > k {
			sr.buf.Write(block[:len(block)-k])
			block = block[len(block)-k:]
		}
		sr.carry = append(sr.carry[:0], block...)
	}
	switch {
	case err == io.EOF:
		sr.buf.Write(sr.carry)
		sr.carry = sr.carry[:0]
		sr.eof = true
	case err != nil:
		return err
	}
	return nil
}

// scrub chains one rewriter per from→to pair, longest pattern first so that
// overlapping rules behave predictably.
func scrub(r io.Reader, rules map[string]string) io.Reader {
	from := make([]string, 0, len(rules))
	for k := range rules {
		if k != "" && k != rules[k] {
			from = append(from, k)
		}
	}
	sort.Slice(from, func(i, j int) bool {
		if len(from[i]) != len(from[j]) {
			return len(from[i]) > len(from[j])
		}
		return from[i] < from[j]
	})
	for _, k := range from {
		r = newStreamingRewriter(r, []byte(k), []byte(rules[k]))
	}
	return r
}
