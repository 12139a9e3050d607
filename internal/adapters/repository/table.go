package repository

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/leadscore/internal/domain/lead"
)

// Format is a tabular serialization.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates s. The empty string means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Extension returns the file extension of f without the dot.
func (f Format) Extension() string { return string(f) }

// header maps column names to positions.
type header map[string]int

func newHeader(cells []string, required ...string) (header, error) {
	h := make(header, len(cells))
	for i, c := range cells {
		c = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if _, dup := h[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidDataset, c)
		}
		h[c] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidDataset, col)
		}
	}
	return h, nil
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

// cell returns the trimmed value of col, or "" when the row is short.
func (h header) cell(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

var requiredColumns = []string{
	lead.ColName, lead.ColEmail, lead.ColCompany, lead.ColIndustry,
	lead.ColRole, lead.ColLocation, lead.ColCompanySize, lead.ColPastInteractionScore,
}

var scoredRequiredColumns = append(append([]string{}, requiredColumns...), lead.ColPredictedScore)

// parseLeads converts table rows (header first) into leads.
func parseLeads(rows [][]string) (lead.Unscored, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidDataset)
	}
	h, err := newHeader(rows[0], requiredColumns...)
	if err != nil {
		return nil, err
	}
	out := make(lead.Unscored, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		l, err := parseLead(h, row)
		if err != nil {
			// i+2: one for the header, one for 1-based line numbers
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidDataset, i+2, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// parseScored converts table rows that carry a PredictedScore column.
func parseScored(rows [][]string) (lead.Scored, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidDataset)
	}
	h, err := newHeader(rows[0], scoredRequiredColumns...)
	if err != nil {
		return nil, err
	}
	out := make(lead.Scored, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		l, err := parseLead(h, row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidDataset, i+2, err)
		}
		score, err := strconv.ParseFloat(h.cell(row, lead.ColPredictedScore), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s: %v", ErrInvalidDataset, i+2, lead.ColPredictedScore, err)
		}
		out = append(out, lead.ScoredLead{Lead: l, PredictedScore: score})
	}
	return out, nil
}

func parseLead(h header, row []string) (lead.Lead, error) {
	l := lead.Lead{
		Name:     h.cell(row, lead.ColName),
		Email:    h.cell(row, lead.ColEmail),
		Company:  h.cell(row, lead.ColCompany),
		Industry: h.cell(row, lead.ColIndustry),
		Role:     h.cell(row, lead.ColRole),
		Location: h.cell(row, lead.ColLocation),
	}
	size, err := strconv.Atoi(h.cell(row, lead.ColCompanySize))
	if err != nil {
		return lead.Lead{}, fmt.Errorf("%s: %w", lead.ColCompanySize, err)
	}
	l.CompanySize = size

	past, err := strconv.ParseFloat(h.cell(row, lead.ColPastInteractionScore), 64)
	if err != nil {
		return lead.Lead{}, fmt.Errorf("%s: %w", lead.ColPastInteractionScore, err)
	}
	l.PastInteractionScore = past

	if h.has(lead.ColLeadScore) {
		if v := h.cell(row, lead.ColLeadScore); v != "" {
			label, err := strconv.Atoi(v)
			if err != nil || (label != 0 && label != 1) {
				return lead.Lead{}, fmt.Errorf("%s: %q is not 0 or 1", lead.ColLeadScore, v)
			}
			l.LeadScore = lead.Label(label)
		}
	}
	return l, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// record is one output row as typed cells; CSV stringifies them and XLSX
// stores numbers as numbers.
type record []any

func leadRecord(l lead.Lead) record {
	var label any = ""
	if l.LeadScore != nil {
		label = *l.LeadScore
	}
	return record{
		l.Name, l.Email, l.Company, l.Industry, l.Role, l.Location,
		l.CompanySize, l.PastInteractionScore, label,
	}
}

func scoredRecords(rows lead.Scored) []record {
	out := make([]record, len(rows))
	for i, r := range rows {
		out[i] = append(leadRecord(r.Lead), r.PredictedScore)
	}
	return out
}

func unscoredRecords(rows lead.Unscored) []record {
	out := make([]record, len(rows))
	for i, r := range rows {
		out[i] = leadRecord(r)
	}
	return out
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
