package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/edaprompt-cli/internal/errs"
)

// LoadOptions controls how a CSV file becomes a Table.
type LoadOptions struct {
	// ParseDates lists columns to parse as timestamps. Other columns are
	// never converted to dates, even when every value looks like one.
	ParseDates []string
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// missingMarkers are the cell values treated as absent.
var missingMarkers = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isMissing(s string) bool {
	_, ok := missingMarkers[s]
	return ok
}

// LoadCSVFile opens path and loads it with LoadCSV, naming the table after
// the file's base name.
func LoadCSVFile(path string, opt LoadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return LoadCSV(f, filepath.Base(path), opt)
}

// LoadCSV reads a comma-delimited file with a header row and infers a type
// for each column. Malformed input yields a ParseFailure error.
func LoadCSV(r io.Reader, name string, opt LoadOptions) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.New(errs.ErrKindParseFailure, "no columns to parse from file")
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindParseFailure, "read header", err)
	}
	names := mangleHeader(header)

	raw := make([][]string, len(names))
	rows := 0
	for {
		if opt.MaxRows > 0 && rows >= opt.MaxRows {
			break
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindParseFailure, "read row", err)
		}
		if len(rec) > len(names) {
			line, _ := cr.FieldPos(0)
			return nil, errs.Newf(errs.ErrKindParseFailure,
				"expected %d fields in line %d, saw %d", len(names), line, len(rec))
		}
		for i := range names {
			if i < len(rec) {
				raw[i] = append(raw[i], rec[i])
			} else {
				raw[i] = append(raw[i], "")
			}
		}
		rows++
	}

	dates := make(map[string]bool, len(opt.ParseDates))
	for _, d := range opt.ParseDates {
		dates[strings.TrimSpace(d)] = true
	}
	for _, d := range opt.ParseDates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if !contains(names, d) {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "missing column provided to parse dates: %q", d)
		}
	}

	t := &Table{Name: name, Rows: rows, Columns: make([]*Column, len(names))}
	for i, n := range names {
		t.Columns[i] = inferColumn(n, raw[i], dates[n])
	}
	return t, nil
}

// mangleHeader makes column names unique: blank names become "Unnamed: i"
// and repeats get ".1", ".2" suffixes.
func mangleHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		cand := h
		for k := 1; seen[cand]; k++ {
			cand = fmt.Sprintf("%s.%d", h, k)
		}
		seen[cand] = true
		names[i] = cand
	}
	return names
}

func inferColumn(name string, vals []string, parseDates bool) *Column {
	c := &Column{Name: name, Missing: make([]bool, len(vals))}
	present := 0
	for i, v := range vals {
		if isMissing(v) {
			c.Missing[i] = true
		} else {
			present++
		}
	}
	anyMissing := present < len(vals)

	if parseDates {
		if times, ok := parseAll(vals, c.Missing, parseTimeMaybe); ok {
			c.Type = TypeDatetime
			c.Times = times
			return c
		}
	}
	if len(vals) == 0 {
		// header-only file: no values to infer from
		c.Type = TypeString
		return c
	}
	if present == 0 {
		c.Type = TypeFloat64
		c.Floats = make([]float64, len(vals))
		return c
	}
	if !anyMissing {
		if ints, ok := parseAll(vals, c.Missing, parseInt); ok {
			c.Type = TypeInt64
			c.Ints = ints
			return c
		}
	}
	if floats, ok := parseAll(vals, c.Missing, parseFloat); ok {
		c.Type = TypeFloat64
		c.Floats = floats
		return c
	}
	if !anyMissing {
		if bools, ok := parseAll(vals, c.Missing, parseBool); ok {
			c.Type = TypeBool
			c.Bools = bools
			return c
		}
	}
	c.Type = TypeString
	c.Strings = make([]string, len(vals))
	for i, v := range vals {
		if !c.Missing[i] {
			c.Strings[i] = v
		}
	}
	return c
}

// parseAll converts every present value with conv, failing on the first miss.
func parseAll[T any](vals []string, missing []bool, conv func(string) (T, bool)) ([]T, bool) {
	out := make([]T, len(vals))
	for i, v := range vals {
		if missing[i] {
			continue
		}
		x, ok := conv(v)
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return out, true
}

func parseInt(s string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v, err == nil
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	// strconv also accepts hex floats and digit separators.
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "True", "TRUE", "true":
		return true, true
	case "False", "FALSE", "false":
		return false, true
	}
	return false, false
}

func parseTimeMaybe(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	layouts := []string{
		time.RFC3339Nano, "2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999", "1/2/2006 15:04", "1/2/2006 15:04:05", "1/2/2006",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
