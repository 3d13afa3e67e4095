// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sales

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultDateLayouts are tried in order when parsing the date column.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"2006/01/02",
}

// LoadOptions controls how a CSV export is interpreted.
type LoadOptions struct {
	Columns     ColumnMapping
	DateLayouts []string       // defaults to DefaultDateLayouts
	Location    *time.Location // defaults to UTC
}

// NormalizeColumn lower-cases a header, trims it and replaces inner spaces with
// underscores, so "Total Items " becomes "total_items".
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, opts LoadOptions) (*Dataset, error) {
	// #nosec G304 -- dataset path is provided by the operator via config/flags
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sales data: %w", err)
	}
	defer func() { _ = f.Close() }()

	ds, err := Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ds, nil
}

// Load reads a CSV export, normalises its header and returns the cleaned
// dataset. Rows whose date, quantity or revenue cannot be parsed are dropped
// and counted in Stats.RowsDropped. Input without any valid row fails with
// ErrEmptyInput.
func Load(r io.Reader, opts LoadOptions) (*Dataset, error) {
	cols := opts.Columns.withDefaults()
	layouts := opts.DateLayouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeColumn(h)
		columns[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	required := []struct {
		column  string
		purpose string
	}{
		{cols.Date, "date"},
		{cols.Quantity, "quantity"},
		{cols.Revenue, "revenue"},
		{cols.Product, "product"},
	}
	for _, req := range required {
		if _, ok := index[req.column]; !ok {
			return nil, &MissingColumnError{Column: req.column, Purpose: req.purpose}
		}
	}

	dateIdx := index[cols.Date]
	qtyIdx := index[cols.Quantity]
	revIdx := index[cols.Revenue]
	productIdx := index[cols.Product]
	cityIdx, hasCity := index[cols.City]

	ds := &Dataset{
		Columns: columns,
		HasCity: hasCity,
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				ds.Stats.RowsRead++
				ds.Stats.RowsDropped++
				continue
			}
			return nil, fmt.Errorf("read row %d: %w", ds.Stats.RowsRead+1, err)
		}
		ds.Stats.RowsRead++

		date, ok := parseDate(cell(row, dateIdx), layouts, loc)
		if !ok {
			ds.Stats.RowsDropped++
			continue
		}
		qty, ok := parseNumber(cell(row, qtyIdx))
		if !ok {
			ds.Stats.RowsDropped++
			continue
		}
		rev, ok := parseNumber(cell(row, revIdx))
		if !ok {
			ds.Stats.RowsDropped++
			continue
		}

		rec := Record{
			Date:      date,
			YearMonth: date.Format(YearMonthLayout),
			Product:   strings.TrimSpace(cell(row, productIdx)),
			Quantity:  qty,
			Revenue:   rev,
		}
		if hasCity {
			rec.City = strings.TrimSpace(cell(row, cityIdx))
		}
		ds.Records = append(ds.Records, rec)
	}

	if len(ds.Records) == 0 {
		return nil, fmt.Errorf("%w: no valid rows (%d read, %d dropped)", ErrEmptyInput, ds.Stats.RowsRead, ds.Stats.RowsDropped)
	}
	return ds, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseDate(raw string, layouts []string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumber accepts plain numbers plus the currency and grouping decorations
// commonly found in spreadsheet exports ("$1,234.50").
func parseNumber(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	raw = strings.TrimPrefix(raw, "$")
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
