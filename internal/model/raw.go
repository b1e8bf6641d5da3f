package model

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RawTable is a source-specific table of string cells, exactly as read from a
// CSV export or API response. Header names are matched exactly.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Index returns the position of col in the header.
func (t RawTable) Index(col string) (int, error) {
	for i, h := range t.Header {
		if strings.TrimSpace(h) == col {
			return i, nil
		}
	}
	return -1, &SchemaError{Table: t.Name, Column: col}
}

// Cell returns row[idx], or "" when the row is short. Missing cells are
// treated as empty values.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Columns resolves several header names at once, failing on the first
// missing one.
func (t RawTable) Columns(cols ...string) (map[string]int, error) {
	out := make(map[string]int, len(cols))
	for _, c := range cols {
		idx, err := t.Index(c)
		if err != nil {
			return nil, err
		}
		out[c] = idx
	}
	return out, nil
}

// ReadCSV reads a CSV document whose first record is the header. Rows may
// have fewer or more fields than the header; a leading UTF-8 BOM is dropped.
func ReadCSV(name string, r io.Reader) (RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return RawTable{Name: name}, nil
	}
	if err != nil {
		return RawTable{}, fmt.Errorf("reading header of %s: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := RawTable{Name: name, Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawTable{}, fmt.Errorf("reading %s: %w", name, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
