package sources

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/unicode/norm"
)

// Fields holds the child element text of one row, keyed by element name.
// Only the first occurrence of a child name is kept.
type Fields map[string]string

// Get returns the named child's text or "" when the row had no such child.
func (f Fields) Get(name string) string {
	return f[name]
}

// ParseError reports a missing or malformed source document. No rows of a
// source that failed to parse are usable.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse source: %v", e.Err)
	}
	return fmt.Sprintf("parse source %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNoRoot = errors.New("document has no root element")

// Rows lazily yields every element named element that sits directly below the
// document root. The cap check runs before each row as counter++ > limit, so
// up to limit+1 rows are yielded. A negative limit disables the cap. Errors
// are yielded once and end the sequence.
func Rows(r io.Reader, element string, limit int) iter.Seq2[Fields, error] {
	return func(yield func(Fields, error) bool) {
		dec := xml.NewDecoder(r)
		dec.CharsetReader = charsetReader
		depth := 0
		sawRoot := false
		counter := 0
		for {
			tok, err := dec.Token()
			if err == io.EOF {
				if !sawRoot {
					yield(nil, errNoRoot)
				}
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			switch t := tok.(type) {
			case xml.StartElement:
				depth++
				if depth == 1 {
					sawRoot = true
					continue
				}
				if depth != 2 || t.Name.Local != element {
					continue
				}
				if limit >= 0 {
					if counter > limit {
						return
					}
					counter++
				}
				row, err := readRow(dec, t)
				depth--
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(row, nil) {
					return
				}
			case xml.EndElement:
				depth--
			}
		}
	}
}

// readRow consumes tokens up to and including the end of start, collecting
// the text of direct children. Nested grandchildren contribute their text to
// the enclosing child.
func readRow(dec *xml.Decoder, start xml.StartElement) (Fields, error) {
	row := Fields{}
	var (
		current string
		text    strings.Builder
		depth   int
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("unexpected end of document inside <%s>", start.Name.Local)
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				current = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth >= 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				return row, nil
			}
			if depth == 1 {
				if _, seen := row[current]; !seen {
					row[current] = cleanText(text.String())
				}
			}
			depth--
		}
	}
}

// charsetReader lets exports declared as ISO-8859-1 or windows-1252 decode.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

func cleanText(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}
