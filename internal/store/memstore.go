package store

import (
	"context"
	"sort"
	"time"

	"github.com/debt-dashboard/backend/internal/models"
)

// MemStore keeps the prepared rows in a slice and answers queries with a
// full scan. The dataset is loaded once and never mutated, so no locking
// is needed; derived views are fresh slices.
type MemStore struct {
	contracts []models.Contract
}

// NewMemStore wraps prepared rows. The slice is owned by the store and
// must not be mutated afterwards.
func NewMemStore(contracts []models.Contract) *MemStore {
	return &MemStore{contracts: contracts}
}

func (s *MemStore) Len() int { return len(s.contracts) }

func (s *MemStore) Close() error { return nil }

// Contracts returns one page of the filtered rows in load order.
func (s *MemStore) Contracts(_ context.Context, spec *models.FilterSpec, page, pageSize int) ([]models.Contract, int, error) {
	filtered := s.filter(spec)
	total := len(filtered)

	start := (page - 1) * pageSize
	if start < 0 {
		start = 0
	}
	if start >= total {
		return []models.Contract{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return filtered[start:end], total, nil
}

// Summary aggregates the filtered subset: count, total debt, per-bank
// and per-partner sums, and contracts per signed year. Group buckets are
// sorted by key so the output is deterministic.
func (s *MemStore) Summary(_ context.Context, spec *models.FilterSpec) (*models.Summary, error) {
	filtered := s.filter(spec)

	sum := &models.Summary{
		ByBank:           []models.GroupSum{},
		ByPartner:        []models.GroupSum{},
		ContractsPerYear: []models.YearCount{},
	}

	byBank := newGrouper()
	byPartner := newGrouper()
	perYear := make(map[int]int)

	for i := range filtered {
		c := &filtered[i]
		sum.Count++
		sum.TotalValue += c.TotalValue
		byBank.add(c.Bank, c.TotalValue)
		byPartner.add(c.Partner, c.TotalValue)
		if year := c.SignedYear(); year > 0 {
			perYear[year]++
		}
	}

	sum.ByBank = byBank.sorted()
	sum.ByPartner = byPartner.sorted()

	years := make([]int, 0, len(perYear))
	for y := range perYear {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		sum.ContractsPerYear = append(sum.ContractsPerYear, models.YearCount{Year: y, Count: perYear[y]})
	}

	return sum, nil
}

// Options scans the table for the distinct values each filter widget
// offers. Values differing only in case or spacing collapse to the first
// casing seen.
func (s *MemStore) Options(_ context.Context) (*models.FilterOptions, error) {
	partners := make(map[string]string)
	banks := make(map[string]string)
	types := make(map[string]string)
	statuses := make(map[string]string)
	regions := make(map[string]string)
	years := make(map[int]struct{})

	var minDate, maxDate *time.Time

	for i := range s.contracts {
		c := &s.contracts[i]
		collect(partners, c.Partner)
		collect(banks, c.Bank)
		collect(types, c.ContractType)
		collect(statuses, c.Status)
		collect(regions, c.Region)
		if c.SignedDate != nil {
			years[c.SignedDate.Year()] = struct{}{}
			if minDate == nil || c.SignedDate.Before(*minDate) {
				minDate = c.SignedDate
			}
			if maxDate == nil || c.SignedDate.After(*maxDate) {
				maxDate = c.SignedDate
			}
		}
	}

	yearList := make([]int, 0, len(years))
	for y := range years {
		yearList = append(yearList, y)
	}
	sort.Ints(yearList)

	return &models.FilterOptions{
		Partners:      models.SortedDistinct(partners),
		Banks:         models.SortedDistinct(banks),
		ContractTypes: models.SortedDistinct(types),
		Statuses:      models.SortedDistinct(statuses),
		Regions:       models.SortedDistinct(regions),
		Years:         yearList,
		DateRange:     models.DateRange{Min: minDate, Max: maxDate},
	}, nil
}

func collect(seen map[string]string, value string) {
	if value == "" {
		return
	}
	key := models.FoldCategory(value)
	if _, ok := seen[key]; !ok {
		seen[key] = value
	}
}

// filter returns the matching rows in load order. An unrestricted spec
// returns the backing slice itself; same input, same output.
func (s *MemStore) filter(spec *models.FilterSpec) []models.Contract {
	if spec.IsUnrestricted() {
		return s.contracts
	}

	partners := spec.CategoryKeys(models.ColumnPartner)
	banks := spec.CategoryKeys(models.ColumnBank)
	types := spec.CategoryKeys(models.ColumnContractType)
	statuses := spec.CategoryKeys(models.ColumnStatus)
	regions := spec.CategoryKeys(models.ColumnRegion)

	yearSet := make(map[int]struct{}, len(spec.Years))
	for _, y := range spec.Years {
		yearSet[y] = struct{}{}
	}

	out := make([]models.Contract, 0, len(s.contracts))
	for i := range s.contracts {
		c := &s.contracts[i]
		if !inSet(partners, c.Partner) || !inSet(banks, c.Bank) ||
			!inSet(types, c.ContractType) || !inSet(statuses, c.Status) ||
			!inSet(regions, c.Region) {
			continue
		}
		if !matchesDate(c.SignedDate, spec.DateFrom, spec.DateTo, yearSet) {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func inSet(keys map[string]struct{}, value string) bool {
	if keys == nil {
		return true
	}
	_, ok := keys[models.FoldCategory(value)]
	return ok
}

// matchesDate applies the inclusive date bounds and the year set.
// A record whose signed date was nulled during preparation never matches
// a date or year restriction.
func matchesDate(signed, from, to *time.Time, years map[int]struct{}) bool {
	restricted := from != nil || to != nil || len(years) > 0
	if signed == nil {
		return !restricted
	}
	day := signed.Truncate(24 * time.Hour)
	if from != nil && day.Before(from.Truncate(24*time.Hour)) {
		return false
	}
	if to != nil && day.After(to.Truncate(24*time.Hour)) {
		return false
	}
	if len(years) > 0 {
		if _, ok := years[signed.Year()]; !ok {
			return false
		}
	}
	return true
}

// grouper accumulates count and sum per folded categorical key while
// remembering the first display casing.
type grouper struct {
	display map[string]string
	counts  map[string]int
	totals  map[string]float64
}

func newGrouper() *grouper {
	return &grouper{
		display: make(map[string]string),
		counts:  make(map[string]int),
		totals:  make(map[string]float64),
	}
}

func (g *grouper) add(value string, amount float64) {
	if value == "" {
		value = "(unspecified)"
	}
	key := models.FoldCategory(value)
	if _, ok := g.display[key]; !ok {
		g.display[key] = value
	}
	g.counts[key]++
	g.totals[key] += amount
}

func (g *grouper) sorted() []models.GroupSum {
	keys := make([]string, 0, len(g.display))
	for k := range g.display {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.GroupSum, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.GroupSum{
			Key:   g.display[k],
			Count: g.counts[k],
			Total: g.totals[k],
		})
	}
	return out
}
