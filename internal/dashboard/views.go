// Package dashboard loads the chart definitions the frontend renders.
package dashboard

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Chart kinds, dimensions, and metrics the frontend understands.
var (
	validKinds      = map[string]bool{"bar": true, "line": true}
	validDimensions = map[string]bool{"bank": true, "partner": true, "year": true}
	validMetrics    = map[string]bool{"totalValue": true, "count": true}
)

// Chart describes one chart on the dashboard.
type Chart struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Kind      string `yaml:"kind" json:"kind"`
	Dimension string `yaml:"dimension" json:"dimension"`
	Metric    string `yaml:"metric" json:"metric"`
}

// Views is the full dashboard view configuration.
type Views struct {
	Title  string  `yaml:"title" json:"title"`
	Charts []Chart `yaml:"charts" json:"charts"`
}

// DefaultViews returns the compiled-in dashboard: the debt-by-bank bar
// chart and the contracts-per-year line, matching the original layout.
func DefaultViews() *Views {
	return &Views{
		Title: "Debt Management Dashboard",
		Charts: []Chart{
			{ID: "debt-by-bank", Title: "Total Debt by Bank", Kind: "bar", Dimension: "bank", Metric: "totalValue"},
			{ID: "contracts-by-year", Title: "Contracts per Signing Year", Kind: "line", Dimension: "year", Metric: "count"},
		},
	}
}

// ParseViews parses a YAML views file. A missing file falls back to the
// defaults; a present but invalid file is an error.
func ParseViews(filePath string) (*Views, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultViews(), nil
		}
		return nil, err
	}
	defer file.Close()

	return ParseViewsFromReader(file)
}

// ParseViewsFromReader parses views from an io.Reader.
func ParseViewsFromReader(r io.Reader) (*Views, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var views Views
	if err := yaml.Unmarshal(data, &views); err != nil {
		return nil, err
	}

	if err := views.validate(); err != nil {
		return nil, err
	}
	if views.Title == "" {
		views.Title = DefaultViews().Title
	}
	return &views, nil
}

func (v *Views) validate() error {
	if len(v.Charts) == 0 {
		return fmt.Errorf("views define no charts")
	}
	seen := make(map[string]bool, len(v.Charts))
	for i, c := range v.Charts {
		if c.ID == "" {
			return fmt.Errorf("chart %d has no id", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate chart id: %s", c.ID)
		}
		seen[c.ID] = true
		if !validKinds[c.Kind] {
			return fmt.Errorf("chart %s: unknown kind %q", c.ID, c.Kind)
		}
		if !validDimensions[c.Dimension] {
			return fmt.Errorf("chart %s: unknown dimension %q", c.ID, c.Dimension)
		}
		if !validMetrics[c.Metric] {
			return fmt.Errorf("chart %s: unknown metric %q", c.ID, c.Metric)
		}
	}
	return nil
}
