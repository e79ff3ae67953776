package frame

// textio.go normalizes raw CSV bytes before they reach the parser:
//
//   - decodeCharset: transcodes a named legacy encoding to UTF-8
//   - skipBOM: drops a leading UTF-8 byte order mark
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - countingReader: records decoded bytes for the load log
//
// normalizeInput applies them in that order.

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeCharset wraps r in a decoder for the named encoding. Empty names and
// any spelling of UTF-8 return r unchanged.
func decodeCharset(r io.Reader, name string) (io.Reader, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return r, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// ValidEncoding reports whether name is accepted by Read.
func ValidEncoding(name string) bool {
	_, err := decodeCharset(strings.NewReader(""), name)
	return err == nil
}

// skipBOM consumes a leading UTF-8 BOM if present.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err == nil && string(head) == string(utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// utf8Sanitizer rewrites invalid UTF-8 bytes to '?' as they stream through.
// Replacing with a single byte keeps output no longer than input so the
// rewrite happens in place.
type utf8Sanitizer struct {
	src     io.Reader
	pending []byte // incomplete trailing sequence from the previous read
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{src: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	off := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.src.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

func (s *utf8Sanitizer) sanitize(buf []byte, atEOF bool) int {
	w := 0
	for r := 0; r < len(buf); {
		if buf[r] < utf8.RuneSelf {
			buf[w] = buf[r]
			w++
			r++
			continue
		}
		if !atEOF && !utf8.FullRune(buf[r:]) {
			s.pending = append(s.pending, buf[r:]...)
			return w
		}
		ch, size := utf8.DecodeRune(buf[r:])
		if ch == utf8.RuneError && size == 1 {
			buf[w] = '?'
			w++
			r++
			continue
		}
		copy(buf[w:], buf[r:r+size])
		w += size
		r += size
	}
	return w
}

type countingReader struct {
	src io.Reader
	n   int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	c.n += int64(n)
	return n, err
}

// normalizeInput chains the transforms. The order matters: the BOM check
// must see decoded bytes, and sanitizing must run after decoding.
func normalizeInput(r io.Reader, encoding string) (*countingReader, error) {
	decoded, err := decodeCharset(r, encoding)
	if err != nil {
		return nil, err
	}
	return &countingReader{src: newUTF8Sanitizer(skipBOM(decoded))}, nil
}
