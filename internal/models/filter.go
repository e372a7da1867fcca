package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Categorical column names recognized by a FilterSpec.
const (
	ColumnPartner      = "partner"
	ColumnBank         = "bank"
	ColumnContractType = "contractType"
	ColumnStatus       = "status"
	ColumnRegion       = "region"
)

// RecognizedColumns lists the categorical columns a filter may restrict.
var RecognizedColumns = []string{
	ColumnPartner,
	ColumnBank,
	ColumnContractType,
	ColumnStatus,
	ColumnRegion,
}

// FilterSpec restricts which contracts are shown. Date bounds are
// inclusive and apply to the signed date. An empty value set (or absent
// column key) places no restriction on that column. Years restrict on
// the signed date's year.
type FilterSpec struct {
	DateFrom   *time.Time          `json:"dateFrom,omitempty"`
	DateTo     *time.Time          `json:"dateTo,omitempty"`
	Categories map[string][]string `json:"categories,omitempty"`
	Years      []int               `json:"years,omitempty"`
}

// IsUnrestricted reports whether the spec matches every record.
func (f *FilterSpec) IsUnrestricted() bool {
	if f == nil {
		return true
	}
	if f.DateFrom != nil || f.DateTo != nil || len(f.Years) > 0 {
		return false
	}
	for _, values := range f.Categories {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// Validate rejects specs referencing unrecognized columns or an inverted
// date range.
func (f *FilterSpec) Validate() error {
	if f == nil {
		return nil
	}
	for column := range f.Categories {
		if !isRecognizedColumn(column) {
			return fmt.Errorf("unrecognized filter column: %s", column)
		}
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return fmt.Errorf("dateTo %s precedes dateFrom %s",
			f.DateTo.Format("2006-01-02"), f.DateFrom.Format("2006-01-02"))
	}
	return nil
}

func isRecognizedColumn(column string) bool {
	for _, c := range RecognizedColumns {
		if c == column {
			return true
		}
	}
	return false
}

// CategoryKeys returns the accepted values of a column folded for
// case-insensitive equality, or nil when the column is unrestricted.
func (f *FilterSpec) CategoryKeys(column string) map[string]struct{} {
	if f == nil {
		return nil
	}
	values := f.Categories[column]
	if len(values) == 0 {
		return nil
	}
	keys := make(map[string]struct{}, len(values))
	for _, v := range values {
		keys[FoldCategory(v)] = struct{}{}
	}
	return keys
}

// FoldCategory normalizes a categorical value for equality-based
// filtering: trimmed, inner whitespace collapsed, lowercased.
func FoldCategory(v string) string {
	return strings.ToLower(CollapseSpaces(v))
}

// CollapseSpaces trims a value and collapses runs of whitespace to a
// single space.
func CollapseSpaces(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// FilterOptions holds the distinct values offered by the filter widgets.
type FilterOptions struct {
	Partners      []string  `json:"partners"`
	Banks         []string  `json:"banks"`
	ContractTypes []string  `json:"contractTypes"`
	Statuses      []string  `json:"statuses,omitempty"`
	Regions       []string  `json:"regions,omitempty"`
	Years         []int     `json:"years"`
	DateRange     DateRange `json:"dateRange"`
}

// DateRange is the inclusive min/max signed date present in the dataset.
type DateRange struct {
	Min *time.Time `json:"min"`
	Max *time.Time `json:"max"`
}

// SortedDistinct returns the sorted unique display values of a set keyed
// by folded value. The first casing seen wins for display.
func SortedDistinct(seen map[string]string) []string {
	out := make([]string, 0, len(seen))
	for _, display := range seen {
		out = append(out, display)
	}
	sort.Strings(out)
	return out
}
