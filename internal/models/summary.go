package models

// GroupSum is one bucket of a grouped aggregate: record count and summed
// total value for a single categorical key.
type GroupSum struct {
	Key            string  `json:"key"`
	Count          int     `json:"count"`
	Total          float64 `json:"total"`
	TotalFormatted string  `json:"totalFormatted,omitempty"`
}

// YearCount is the number of contracts signed in a given year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Summary holds the aggregates derived from a filtered subset. An empty
// subset is a valid summary: zero count, zero totals, no groups.
type Summary struct {
	Count               int         `json:"count"`
	TotalValue          float64     `json:"totalValue"`
	TotalValueFormatted string      `json:"totalValueFormatted,omitempty"`
	ByBank              []GroupSum  `json:"byBank"`
	ByPartner           []GroupSum  `json:"byPartner"`
	ContractsPerYear    []YearCount `json:"contractsPerYear"`
}
