package embedsdk

import (
	"fmt"
	"strings"
)

// Kind is the presentation type of a visual.
type Kind int

const (
	KindUnknown Kind = iota
	KindLine
	KindPie
	KindBar
	KindTable
)

var kindNames = map[Kind]string{
	KindLine:  "line",
	KindPie:   "pie",
	KindBar:   "bar",
	KindTable: "table",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseKind maps a kind name to a Kind. The "-chart" suffix used by the
// vendor's type strings ("line-chart") is accepted.
func ParseKind(s string) (Kind, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "-chart")
	for k, v := range kindNames {
		if v == name {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("embedsdk: unknown visual kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Visual is one chart or table inside a report. Name is unique within a report.
type Visual struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Kind    Kind   `json:"kind"`
	// Data is the payload the renderer draws. Its concrete type depends on
	// Kind: []SalesPoint for line and bar, []Share for pie, []ProductRow for table.
	Data any `json:"data,omitempty"`
}

// SalesPoint is one month of sales against target.
type SalesPoint struct {
	Month  string  `json:"month"`
	Sales  float64 `json:"sales"`
	Target float64 `json:"target"`
}

// Share is a category's percentage of the whole.
type Share struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

// ProductRow is a row of the product sales table.
type ProductRow struct {
	Product string `json:"product"`
	Sales   int    `json:"sales"`
	Revenue int64  `json:"revenue"`
}

// Mock datasets.
var (
	SalesData = []SalesPoint{
		{Month: "Jan", Sales: 1200, Target: 1000},
		{Month: "Feb", Sales: 1500, Target: 1100},
		{Month: "Mar", Sales: 1800, Target: 1200},
		{Month: "Apr", Sales: 1600, Target: 1300},
		{Month: "May", Sales: 2000, Target: 1400},
		{Month: "Jun", Sales: 2200, Target: 1500},
	}

	PieData = []Share{
		{Category: "Electronics", Value: 35},
		{Category: "Clothing", Value: 25},
		{Category: "Food", Value: 20},
		{Category: "Other", Value: 20},
	}

	TableData = []ProductRow{
		{Product: "Laptop", Sales: 150, Revenue: 75000},
		{Product: "Phone", Sales: 300, Revenue: 45000},
		{Product: "Tablet", Sales: 200, Revenue: 40000},
		{Product: "Monitor", Sales: 100, Revenue: 20000},
	}
)

// Names of the visuals in the default report.
const (
	VisualSalesTrend          = "Sales Trend"
	VisualRevenueDistribution = "Revenue Distribution"
	VisualProductPerformance  = "Product Performance"
	VisualSalesDetails        = "Sales Details"
)

// DefaultVisuals returns a fresh copy of the demo report's visuals, all visible.
func DefaultVisuals() []*Visual {
	return []*Visual{
		{Name: VisualSalesTrend, Visible: true, Kind: KindLine, Data: SalesData},
		{Name: VisualRevenueDistribution, Visible: true, Kind: KindPie, Data: PieData},
		{Name: VisualProductPerformance, Visible: true, Kind: KindBar, Data: SalesData},
		{Name: VisualSalesDetails, Visible: true, Kind: KindTable, Data: TableData},
	}
}
