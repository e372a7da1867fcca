// Package models contains domain types for the debt dashboard.
package models

import "time"

// Contract represents a single credit/debt contract row of the dataset.
// Rows are immutable after preparation; filters produce derived views.
type Contract struct {
	ID           string     `json:"id"`
	Partner      string     `json:"partner"`
	Bank         string     `json:"bank"`
	ContractType string     `json:"contractType"`
	Status       string     `json:"status,omitempty"`
	Region       string     `json:"region,omitempty"`
	SignedDate   *time.Time `json:"signedDate"`
	MaturityDate *time.Time `json:"maturityDate,omitempty"`
	TotalValue   float64    `json:"totalValue"`
}

// SignedYear returns the year of the signed date, or 0 when the date
// failed normalization and was nulled.
func (c *Contract) SignedYear() int {
	if c.SignedDate == nil {
		return 0
	}
	return c.SignedDate.Year()
}

// ClientInfo describes the dataset owner shown in the dashboard header.
type ClientInfo struct {
	CompanyName string `json:"companyName"`
	Document    string `json:"document,omitempty"`
}

// PrepareError records a single record/field that failed normalization.
// Preparation never fails the whole dataset; offending fields are nulled
// or the record is skipped, and the error is reported alongside.
type PrepareError struct {
	Record int    `json:"record"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}
