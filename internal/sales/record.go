// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package sales

import "time"

// YearMonthLayout is the grouping key format for monthly aggregates.
const YearMonthLayout = "2006-01"

// Record is one cleaned sales transaction.
type Record struct {
	Date      time.Time `json:"date"`
	YearMonth string    `json:"year_month"`
	Product   string    `json:"product,omitempty"`
	City      string    `json:"city,omitempty"`
	Quantity  float64   `json:"quantity"`
	Revenue   float64   `json:"revenue"`
}

// IngestStats describes what happened while loading a dataset.
type IngestStats struct {
	RowsRead    int `json:"rows_read"`
	RowsDropped int `json:"rows_dropped"`
}

// Dataset is the cleaned, immutable set of transactions.
type Dataset struct {
	Records []Record    `json:"-"`
	HasCity bool        `json:"has_city"`
	Columns []string    `json:"columns"`
	Stats   IngestStats `json:"stats"`
}

// Len returns the number of cleaned rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// ColumnMapping names the normalised CSV columns that feed each record field.
type ColumnMapping struct {
	Date     string `yaml:"date" json:"date"`
	Quantity string `yaml:"quantity" json:"quantity"`
	Revenue  string `yaml:"revenue" json:"revenue"`
	Product  string `yaml:"product" json:"product"`
	City     string `yaml:"city" json:"city"`
}

// DefaultColumns matches the layout of the online sales export.
func DefaultColumns() ColumnMapping {
	return ColumnMapping{
		Date:     "date",
		Quantity: "total_items",
		Revenue:  "total_cost",
		Product:  "product",
		City:     "city",
	}
}

// withDefaults fills empty entries from DefaultColumns and normalises the rest.
func (m ColumnMapping) withDefaults() ColumnMapping {
	def := DefaultColumns()
	pick := func(v, fallback string) string {
		if n := NormalizeColumn(v); n != "" {
			return n
		}
		return fallback
	}
	return ColumnMapping{
		Date:     pick(m.Date, def.Date),
		Quantity: pick(m.Quantity, def.Quantity),
		Revenue:  pick(m.Revenue, def.Revenue),
		Product:  pick(m.Product, def.Product),
		City:     pick(m.City, def.City),
	}
}
