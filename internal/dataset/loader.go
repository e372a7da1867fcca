// Package dataset loads the contracts JSON file and normalizes it into
// the immutable tabular snapshot served by the dashboard.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadError indicates the dataset file is missing, unreadable, or
// malformed. It is fatal at startup: the file is static and local, so
// there is nothing to retry.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load dataset %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error { return e.Cause }

// RawDataset mirrors the on-disk JSON document before normalization.
type RawDataset struct {
	Client    RawClient     `json:"client"`
	Contracts []RawContract `json:"contracts"`
}

// RawClient is the dataset owner block.
type RawClient struct {
	CompanyName string `json:"companyName"`
	Document    string `json:"document"`
}

// RawContract is one contract object exactly as written in the file.
// Dates stay strings and the amount stays loosely typed until the
// preparer coerces them.
type RawContract struct {
	ID           string `json:"contractId"`
	Partner      string `json:"partner"`
	Bank         string `json:"bank"`
	ContractType string `json:"contractType"`
	Status       string `json:"status"`
	Region       string `json:"region"`
	SignedDate   string `json:"signedDate"`
	MaturityDate string `json:"maturityDate"`
	TotalValue   any    `json:"totalValue"`
}

// Load reads and decodes the dataset file. Numbers are decoded as
// json.Number so amounts survive exactly as written.
func Load(path string) (*RawDataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Cause: err}
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.UseNumber()

	var raw RawDataset
	if err := dec.Decode(&raw); err != nil {
		return nil, &LoadError{Path: path, Cause: fmt.Errorf("malformed JSON: %w", err)}
	}

	if raw.Contracts == nil {
		return nil, &LoadError{Path: path, Cause: fmt.Errorf("document has no contracts array")}
	}

	return &raw, nil
}
