package publish

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Tiliavir/nt-hours/internal/config"
	"github.com/Tiliavir/nt-hours/internal/model"
)

// Field types accepted in a range's data_types map.
const (
	TypeStr   = "str"
	TypeDate  = "date"
	TypeTime  = "time"
	TypeInt   = "int"
	TypeFloat = "float"
)

// Table is a spreadsheet range read back with its header.
type Table struct {
	Header []string
	Rows   [][]any
}

// Read fetches the header and data ranges of rc and coerces each column
// named in rc.DataTypes. Empty int cells become 0 and empty float cells nil.
func Read(ctx context.Context, sheet Sheet, rc config.RangeConfig) (Table, error) {
	if rc.Header == "" {
		return Table{}, fmt.Errorf("range %s has no header range", rc.Data)
	}
	hdr, err := sheet.ReadRange(ctx, rc.BookID, rc.Header)
	if err != nil {
		return Table{}, err
	}
	if len(hdr) == 0 {
		return Table{}, &model.SchemaError{Table: rc.Header, Column: "header"}
	}
	header := hdr[0]

	data, err := sheet.ReadRange(ctx, rc.BookID, rc.Data)
	if err != nil {
		return Table{}, err
	}

	types := make([]string, len(header))
	for i, h := range header {
		types[i] = TypeStr
		if t, ok := rc.DataTypes[h]; ok {
			types[i] = t
		}
	}
	for field, t := range rc.DataTypes {
		if !slices.Contains(header, field) {
			return Table{}, &model.SchemaError{Table: rc.Data, Column: field}
		}
		switch t {
		case TypeStr, TypeDate, TypeTime, TypeInt, TypeFloat:
		default:
			return Table{}, fmt.Errorf("range %s: unknown data type %q for %s", rc.Data, t, field)
		}
	}

	out := Table{Header: header, Rows: make([][]any, 0, len(data))}
	for r, row := range data {
		typed := make([]any, len(header))
		for i := range header {
			cell := strings.TrimSpace(model.Cell(row, i))
			v, err := coerce(cell, types[i], rc)
			if err != nil {
				return Table{}, &model.ParseError{Row: r + 1, Field: header[i], Value: cell, Err: err}
			}
			typed[i] = v
		}
		out.Rows = append(out.Rows, typed)
	}
	return out, nil
}

func coerce(cell, typ string, rc config.RangeConfig) (any, error) {
	switch typ {
	case TypeInt:
		if cell == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil {
			return nil, err
		}
		return int(f), nil
	case TypeFloat:
		if cell == "" {
			return nil, nil
		}
		return strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	case TypeDate:
		if cell == "" {
			return nil, nil
		}
		return time.Parse(rc.DateFormat, cell)
	case TypeTime:
		if cell == "" {
			return nil, nil
		}
		return time.Parse(rc.TimeFormat, cell)
	default:
		return cell, nil
	}
}
