package domain

import "time"

// Company is the target of a report generation job. The json tags define
// the /v1/companies wire shape consumed by the client package.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	Summary   string    `json:"summary"`
	Metrics   []Metric  `json:"metrics"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Metric is one named financial figure for a company, e.g. quarterly revenue.
type Metric struct {
	Name   string  `json:"name"`
	Period string  `json:"period"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
}
