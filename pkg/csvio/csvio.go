// Package csvio wraps encoding/csv with the conventions spreadsheet
// tools expect: a UTF-8 BOM on output, CRLF row terminators, tolerant
// parsing of ragged input and elision of fully blank rows. All row
// offsets and counts seen by callers are therefore expressed in
// non-blank data rows.
package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Reader struct {
	cr *csv.Reader
}

func NewReader(r io.Reader) *Reader {
	br := bufio.NewReader(r)
	br = stripUTF8BOM(br)

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = false
	return &Reader{cr: cr}
}

func Open(path string) (*Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReader(f), f.Close, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == utf8BOM[0] && b[1] == utf8BOM[1] && b[2] == utf8BOM[2] {
		_, _ = r.Discard(3)
	}
	return r
}

// ReadHeader reads the first row. Header cells are trimmed; an empty
// file is reported as a missing header.
func (r *Reader) ReadHeader() ([]string, error) {
	h, err := r.cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(h[i]) {
			return nil, fmt.Errorf("invalid header encoding")
		}
	}
	return h, nil
}

// Read returns the next non-blank row, or io.EOF.
func (r *Reader) Read() ([]string, error) {
	for {
		row, err := r.cr.Read()
		if err != nil {
			return nil, err
		}
		if !blankRow(row) {
			return row, nil
		}
	}
}

// Skip discards n non-blank rows. It returns the number actually
// discarded, which is less than n only when the input ends early.
func (r *Reader) Skip(n int) (int, error) {
	for i := 0; i < n; i++ {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				return i, nil
			}
			return i, err
		}
	}
	return n, nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

type Writer struct {
	cw       *csv.Writer
	raw      io.Writer
	wroteBOM bool
}

// NewWriter returns a Writer that emits a UTF-8 BOM before the first
// record and terminates rows with CRLF.
func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return &Writer{cw: cw, raw: w}
}

func (w *Writer) Write(record []string) error {
	if !w.wroteBOM {
		if _, err := w.raw.Write(utf8BOM); err != nil {
			return err
		}
		w.wroteBOM = true
	}
	return w.cw.Write(record)
}

func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}
