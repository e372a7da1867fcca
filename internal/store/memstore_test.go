package store

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/debt-dashboard/backend/internal/models"
)

func day(t *testing.T, s string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	parsed = parsed.UTC()
	return &parsed
}

func testContracts(t *testing.T) []models.Contract {
	t.Helper()
	return []models.Contract{
		{ID: "CT-1", Partner: "Maria Souza", Bank: "Banco Alfa", ContractType: "Custeio", SignedDate: day(t, "2023-01-05"), TotalValue: 100},
		{ID: "CT-2", Partner: "Joao Lima", Bank: "Banco Beta", ContractType: "Investimento", SignedDate: day(t, "2023-02-10"), TotalValue: 200},
		{ID: "CT-3", Partner: "Maria Souza", Bank: "Banco Alfa", ContractType: "Investimento", SignedDate: day(t, "2022-06-20"), TotalValue: 300},
		{ID: "CT-4", Partner: "Ana Prado", Bank: "Banco Beta", ContractType: "Custeio", SignedDate: nil, TotalValue: 50},
	}
}

func TestUnrestrictedFilterReturnsEverything(t *testing.T) {
	s := NewMemStore(testContracts(t))

	sum, err := s.Summary(context.Background(), &models.FilterSpec{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Count != s.Len() {
		t.Errorf("expected count %d, got %d", s.Len(), sum.Count)
	}
	if sum.TotalValue != 650 {
		t.Errorf("expected total 650, got %v", sum.TotalValue)
	}

	rows, total, err := s.Contracts(context.Background(), &models.FilterSpec{}, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 4 || len(rows) != 4 {
		t.Errorf("expected 4 rows, got total=%d len=%d", total, len(rows))
	}
}

func TestDateRangeFilterInclusive(t *testing.T) {
	// Example from the requirements: two records, a January window
	// keeps only the first and sums 100.
	s := NewMemStore([]models.Contract{
		{ID: "a", Partner: "P", Bank: "B", ContractType: "T", SignedDate: day(t, "2023-01-05"), TotalValue: 100, Status: "A"},
		{ID: "b", Partner: "P", Bank: "B", ContractType: "T", SignedDate: day(t, "2023-02-10"), TotalValue: 200, Status: "B"},
	})

	spec := &models.FilterSpec{DateFrom: day(t, "2023-01-01"), DateTo: day(t, "2023-01-31")}
	rows, total, err := s.Contracts(context.Background(), spec, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 1 || rows[0].ID != "a" {
		t.Fatalf("expected only record a, got total=%d rows=%v", total, rows)
	}

	sum, err := s.Summary(context.Background(), spec)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.TotalValue != 100 {
		t.Errorf("expected sum 100, got %v", sum.TotalValue)
	}

	// Bounds are inclusive on both ends.
	spec = &models.FilterSpec{DateFrom: day(t, "2023-01-05"), DateTo: day(t, "2023-02-10")}
	_, total, _ = s.Contracts(context.Background(), spec, 1, 100)
	if total != 2 {
		t.Errorf("expected inclusive bounds to keep both records, got %d", total)
	}
}

func TestDateRangeExcludingAllRecords(t *testing.T) {
	s := NewMemStore(testContracts(t))

	spec := &models.FilterSpec{DateFrom: day(t, "1990-01-01"), DateTo: day(t, "1990-12-31")}
	sum, err := s.Summary(context.Background(), spec)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if sum.Count != 0 || sum.TotalValue != 0 {
		t.Errorf("expected zero-valued aggregates, got count=%d total=%v", sum.Count, sum.TotalValue)
	}
	if len(sum.ByBank) != 0 || len(sum.ByPartner) != 0 || len(sum.ContractsPerYear) != 0 {
		t.Errorf("expected no groups on empty result, got %+v", sum)
	}

	rows, total, err := s.Contracts(context.Background(), spec, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Errorf("expected zero rows, got total=%d len=%d", total, len(rows))
	}
}

func TestCategoricalFilterCaseInsensitive(t *testing.T) {
	s := NewMemStore(testContracts(t))

	spec := &models.FilterSpec{Categories: map[string][]string{
		models.ColumnBank: {"banco alfa"},
	}}
	_, total, err := s.Contracts(context.Background(), spec, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 Banco Alfa contracts, got %d", total)
	}

	// Extra whitespace in the requested value folds away too.
	spec = &models.FilterSpec{Categories: map[string][]string{
		models.ColumnPartner: {"  Maria   Souza "},
	}}
	_, total, _ = s.Contracts(context.Background(), spec, 1, 100)
	if total != 2 {
		t.Errorf("expected 2 Maria Souza contracts, got %d", total)
	}
}

func TestYearFilter(t *testing.T) {
	s := NewMemStore(testContracts(t))

	spec := &models.FilterSpec{Years: []int{2022}}
	rows, total, err := s.Contracts(context.Background(), spec, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 1 || rows[0].ID != "CT-3" {
		t.Errorf("expected only CT-3 for 2022, got total=%d rows=%v", total, rows)
	}
}

func TestNullDateExcludedFromDateRestrictions(t *testing.T) {
	s := NewMemStore(testContracts(t))

	// CT-4 has a nulled signed date: it matches unrestricted specs but
	// never a date or year restriction.
	spec := &models.FilterSpec{Years: []int{2022, 2023}}
	_, total, err := s.Contracts(context.Background(), spec, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 dated contracts, got %d", total)
	}
}

func TestFilterIdempotent(t *testing.T) {
	s := NewMemStore(testContracts(t))
	spec := &models.FilterSpec{
		DateFrom:   day(t, "2023-01-01"),
		Categories: map[string][]string{models.ColumnBank: {"Banco Alfa"}},
	}

	first, _, err := s.Contracts(context.Background(), spec, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}

	// Filtering the already-filtered rows with the same spec changes nothing.
	second, _, err := NewMemStore(first).Contracts(context.Background(), spec, 1, 100)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("filter not idempotent:\nfirst:  %v\nsecond: %v", first, second)
	}
}

func TestGroupedSumsConsistentWithOverallSum(t *testing.T) {
	s := NewMemStore(testContracts(t))

	specs := []*models.FilterSpec{
		{},
		{DateFrom: day(t, "2023-01-01")},
		{Categories: map[string][]string{models.ColumnContractType: {"Investimento"}}},
	}
	for _, spec := range specs {
		sum, err := s.Summary(context.Background(), spec)
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}

		var byBank, byPartner float64
		var bankCount, partnerCount int
		for _, g := range sum.ByBank {
			byBank += g.Total
			bankCount += g.Count
		}
		for _, g := range sum.ByPartner {
			byPartner += g.Total
			partnerCount += g.Count
		}

		if math.Abs(byBank-sum.TotalValue) > 1e-9 || math.Abs(byPartner-sum.TotalValue) > 1e-9 {
			t.Errorf("grouped sums disagree with overall: total=%v byBank=%v byPartner=%v", sum.TotalValue, byBank, byPartner)
		}
		if bankCount != sum.Count || partnerCount != sum.Count {
			t.Errorf("grouped counts disagree with overall: count=%d bank=%d partner=%d", sum.Count, bankCount, partnerCount)
		}
	}
}

func TestSummaryGroupsSortedAndDeterministic(t *testing.T) {
	s := NewMemStore(testContracts(t))

	first, err := s.Summary(context.Background(), &models.FilterSpec{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	second, err := s.Summary(context.Background(), &models.FilterSpec{})
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical queries produced different summaries")
	}

	if len(first.ByBank) != 2 || first.ByBank[0].Key != "Banco Alfa" {
		t.Errorf("expected sorted bank groups, got %+v", first.ByBank)
	}
	if first.ByBank[0].Count != 2 || first.ByBank[0].Total != 400 {
		t.Errorf("unexpected Banco Alfa bucket: %+v", first.ByBank[0])
	}

	expectedYears := []models.YearCount{{Year: 2022, Count: 1}, {Year: 2023, Count: 2}}
	if !reflect.DeepEqual(first.ContractsPerYear, expectedYears) {
		t.Errorf("expected %+v, got %+v", expectedYears, first.ContractsPerYear)
	}
}

func TestContractsPagination(t *testing.T) {
	contracts := make([]models.Contract, 0, 25)
	for i := 0; i < 25; i++ {
		contracts = append(contracts, models.Contract{
			ID: string(rune('a' + i)), Partner: "P", Bank: "B", ContractType: "T",
			SignedDate: day(t, "2023-01-05"), TotalValue: 1,
		})
	}
	s := NewMemStore(contracts)

	rows, total, err := s.Contracts(context.Background(), &models.FilterSpec{}, 3, 10)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 25 || len(rows) != 5 {
		t.Errorf("expected page 3 to hold 5 of 25 rows, got len=%d total=%d", len(rows), total)
	}

	rows, total, err = s.Contracts(context.Background(), &models.FilterSpec{}, 10, 10)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if total != 25 || len(rows) != 0 {
		t.Errorf("expected empty page past the end, got len=%d", len(rows))
	}
}

func TestOptions(t *testing.T) {
	s := NewMemStore(testContracts(t))

	opts, err := s.Options(context.Background())
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}

	if !reflect.DeepEqual(opts.Banks, []string{"Banco Alfa", "Banco Beta"}) {
		t.Errorf("unexpected banks: %v", opts.Banks)
	}
	if !reflect.DeepEqual(opts.Years, []int{2022, 2023}) {
		t.Errorf("unexpected years: %v", opts.Years)
	}
	if opts.DateRange.Min == nil || !opts.DateRange.Min.Equal(*day(t, "2022-06-20")) {
		t.Errorf("unexpected min date: %v", opts.DateRange.Min)
	}
	if opts.DateRange.Max == nil || !opts.DateRange.Max.Equal(*day(t, "2023-02-10")) {
		t.Errorf("unexpected max date: %v", opts.DateRange.Max)
	}
}
