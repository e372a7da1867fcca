package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/debt-dashboard/backend/internal/models"
)

// Date layouts accepted in the dataset, tried in order. The original
// exports use ISO dates; older ones carry Brazilian day-first dates.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Prepare normalizes raw contracts into typed rows. It is a pure,
// deterministic transform: the same input always yields the same table.
//
// Policy for bad values: an unparseable date nulls the field and keeps
// the record; an unparseable or missing amount skips the whole record.
// Either way a PrepareError is recorded, never a failure.
func Prepare(raw *RawDataset) ([]models.Contract, []models.PrepareError) {
	contracts := make([]models.Contract, 0, len(raw.Contracts))
	var prepErrs []models.PrepareError

	for i, rc := range raw.Contracts {
		amount, err := coerceAmount(rc.TotalValue)
		if err != nil {
			prepErrs = append(prepErrs, models.PrepareError{
				Record: i,
				Field:  "totalValue",
				Value:  fmt.Sprintf("%v", rc.TotalValue),
				Reason: err.Error(),
			})
			continue
		}

		c := models.Contract{
			ID:           models.CollapseSpaces(rc.ID),
			Partner:      models.CollapseSpaces(rc.Partner),
			Bank:         models.CollapseSpaces(rc.Bank),
			ContractType: models.CollapseSpaces(rc.ContractType),
			Status:       models.CollapseSpaces(rc.Status),
			Region:       models.CollapseSpaces(rc.Region),
			TotalValue:   amount,
		}
		if c.ID == "" {
			c.ID = fmt.Sprintf("row-%d", i)
		}

		c.SignedDate = parseDate(rc.SignedDate, i, "signedDate", &prepErrs)
		c.MaturityDate = parseDate(rc.MaturityDate, i, "maturityDate", &prepErrs)

		contracts = append(contracts, c)
	}

	return contracts, prepErrs
}

// parseDate tries the accepted layouts and nulls the field on failure.
// An empty source value is nulled silently; only present-but-broken
// values are reported.
func parseDate(value string, record int, field string, prepErrs *[]models.PrepareError) *time.Time {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	*prepErrs = append(*prepErrs, models.PrepareError{
		Record: record,
		Field:  field,
		Value:  s,
		Reason: "unparseable date",
	})
	return nil
}

// coerceAmount converts a loosely typed JSON amount to float64. Accepts
// numbers and numeric strings in either "1234.56" or "1.234,56" form.
func coerceAmount(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing amount")
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("non-numeric amount")
		}
		return f, nil
	case float64:
		return n, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, fmt.Errorf("missing amount")
		}
		s = strings.TrimPrefix(s, "R$")
		s = strings.TrimSpace(s)
		if strings.Contains(s, ",") {
			// Brazilian notation: "." groups thousands, "," is decimal.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("non-numeric amount")
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported amount type %T", v)
	}
}
