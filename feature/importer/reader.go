package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Reader streams normalized records from delimited text input. The first
// row is the header; field names are matched case-insensitively with
// surrounding whitespace trimmed. Rows are never buffered beyond the one
// being processed.
type Reader struct {
	csv    *csv.Reader
	header []string
}

// NewReader prepares a streaming reader over r, consuming the header row.
func NewReader(r io.Reader, delimiter rune) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	normalized := make([]string, len(header))
	for i, name := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(name))
	}

	return &Reader{csv: cr, header: normalized}, nil
}

// Next returns the next record, or io.EOF when the input is exhausted.
// A row shorter than the header leaves the trailing fields empty, which
// schema validation then reports as missing.
func (r *Reader) Next() (Record, error) {
	row, err := r.csv.Read()
	if err != nil {
		return nil, err
	}

	record := make(Record, len(r.header))
	for i, name := range r.header {
		if name == "" {
			continue
		}
		if i < len(row) {
			record[name] = strings.TrimSpace(row[i])
		} else {
			record[name] = ""
		}
	}
	return record, nil
}
