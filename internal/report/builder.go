package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"reportd/internal/domain"
	"reportd/pkg/zip"
)

// Builder renders the investment-summary bundle for a company.
type Builder struct {
	now func() time.Time
}

// NewBuilder returns a Builder. The clock is injectable for tests.
func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Render produces the markdown body of the report.
func (b *Builder) Render(company *domain.Company) ([]byte, error) {
	if company == nil {
		return nil, fmt.Errorf("report: company is required")
	}
	if strings.TrimSpace(company.Name) == "" {
		return nil, fmt.Errorf("report: company %d has no name", company.ID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Investment Summary: %s\n\n", company.Name)
	fmt.Fprintf(&sb, "Generated: %s\n\n", b.now().UTC().Format(time.RFC3339))
	if company.Sector != "" {
		fmt.Fprintf(&sb, "Sector: %s\n\n", company.Sector)
	}
	if company.Summary != "" {
		sb.WriteString("## Overview\n\n")
		sb.WriteString(company.Summary)
		sb.WriteString("\n\n")
	}
	if len(company.Metrics) > 0 {
		sb.WriteString("## Key Figures\n\n")
		for _, m := range company.Metrics {
			fmt.Fprintf(&sb, "- %s (%s): %s %s\n", m.Name, m.Period, formatValue(m.Value), m.Unit)
		}
		sb.WriteString("\n")
	}
	return []byte(sb.String()), nil
}

// Financials produces a CSV of the company's metrics.
func (b *Builder) Financials(company *domain.Company) ([]byte, error) {
	if company == nil {
		return nil, fmt.Errorf("report: company is required")
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"name", "period", "value", "unit"}); err != nil {
		return nil, fmt.Errorf("report: write csv header: %w", err)
	}
	for _, m := range company.Metrics {
		record := []string{m.Name, m.Period, formatValue(m.Value), m.Unit}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("report: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("report: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Compile assembles the final downloadable bundle.
func (b *Builder) Compile(body, financials []byte) ([]byte, error) {
	return zip.Bundle([]zip.File{
		{Name: "report.md", MIME: "text/markdown", Data: body},
		{Name: "financials.csv", MIME: "text/csv", Data: financials},
	})
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
