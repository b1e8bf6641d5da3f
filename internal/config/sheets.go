package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Sheets maps logical range codes to spreadsheet ranges.
//
//	workbook_id: 1AbC...
//	ranges:
//	  events:
//	    data: events!A2:I
//	    header: events!A1:I1
//	    date_format: 2006-01-02
//	    time_format: "15:04:05"
//	    input_option: USER_ENTERED
//	    data_types: {duration_hrs: float, year: int}
type Sheets struct {
	WorkbookID string                 `yaml:"workbook_id"`
	Ranges     map[string]RangeConfig `yaml:"ranges"`
}

// RangeConfig describes one published range. Formats are Go time layouts.
type RangeConfig struct {
	BookID      string            `yaml:"book_id"`
	Data        string            `yaml:"data"`
	Header      string            `yaml:"header"`
	DateFormat  string            `yaml:"date_format"`
	TimeFormat  string            `yaml:"time_format"`
	InputOption string            `yaml:"input_option"`
	DataTypes   map[string]string `yaml:"data_types"`
}

const (
	DefaultDateFormat  = "2006-01-02"
	DefaultTimeFormat  = "15:04:05"
	InputRaw           = "RAW"
	InputUserEntered   = "USER_ENTERED"
	defaultInputOption = InputUserEntered
)

// LoadSheets reads the YAML range configuration.
func LoadSheets(path string) (*Sheets, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("sheets config %s not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading sheets config %s: %w", path, err)
	}
	var s Sheets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing sheets config %s: %w", path, err)
	}
	return &s, nil
}

// Range returns the configuration for code with defaults applied.
func (s *Sheets) Range(code string) (RangeConfig, error) {
	r, ok := s.Ranges[code]
	if !ok {
		return RangeConfig{}, fmt.Errorf("range %q not configured", code)
	}
	if r.BookID == "" {
		r.BookID = s.WorkbookID
	}
	if r.BookID == "" {
		return RangeConfig{}, fmt.Errorf("range %q: no workbook id", code)
	}
	if r.Data == "" {
		return RangeConfig{}, fmt.Errorf("range %q: no data range", code)
	}
	if r.DateFormat == "" {
		r.DateFormat = DefaultDateFormat
	}
	if r.TimeFormat == "" {
		r.TimeFormat = DefaultTimeFormat
	}
	switch r.InputOption {
	case "":
		r.InputOption = defaultInputOption
	case InputRaw, InputUserEntered:
	default:
		return RangeConfig{}, fmt.Errorf("range %q: unknown input_option %q", code, r.InputOption)
	}
	return r, nil
}
