package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"clockwise-api/internal/models"
)

// ParseResult holds the parsed upload: one ascending series per portfolio
// column plus the latest date seen across all columns.
type ParseResult struct {
	Series   map[string][]models.DailyValue `json:"series"`
	AsOfDate string                         `json:"as_of_date"`
}

// ParseTimeSeries parses uploaded CSV text whose first column is a date
// (MM/DD/YY or MM/DD/YYYY) and whose remaining columns are named
// portfolios. Quoted fields may contain embedded commas. Numeric cells may
// use comma thousands separators; empty or "-" cells mean "no value" for
// that portfolio/date and are skipped, not treated as zero.
func ParseTimeSeries(raw string) (*ParseResult, error) {
	lines := splitLines(raw)
	if len(lines) < 2 {
		return nil, fmt.Errorf("CSV must contain a header and at least one data row, got %d line(s)", len(lines))
	}

	header := splitFields(lines[0])
	if len(header) < 2 {
		return nil, fmt.Errorf("CSV header must contain a date column and at least one portfolio column")
	}

	names := make([]string, 0, len(header)-1)
	for _, h := range header[1:] {
		names = append(names, strings.TrimSpace(h))
	}

	series := make(map[string][]models.DailyValue, len(names))
	for _, name := range names {
		if name != "" {
			series[name] = nil
		}
	}

	asOf := ""
	for lineNo, line := range lines[1:] {
		fields := splitFields(line)
		if len(fields) == 0 || strings.TrimSpace(fields[0]) == "" {
			continue
		}

		date, err := normalizeDate(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", lineNo+2, err)
		}
		if date > asOf {
			asOf = date
		}

		for i, name := range names {
			if name == "" || i+1 >= len(fields) {
				continue
			}
			value, ok := parseNumeric(fields[i+1])
			if !ok {
				continue
			}
			series[name] = append(series[name], models.DailyValue{Date: date, Value: value})
		}
	}

	// Dates are normalized to YYYY-MM-DD, so string order is date order.
	for name := range series {
		s := series[name]
		sort.Slice(s, func(i, j int) bool { return s[i].Date < s[j].Date })
	}

	return &ParseResult{Series: series, AsOfDate: asOf}, nil
}

// splitLines splits on newlines, tolerating CRLF and trailing blank lines.
func splitLines(raw string) []string {
	rawLines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(rawLines))
	for _, line := range rawLines {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitFields splits one CSV line on commas with a simple quote-toggle
// scan. This intentionally is not a full RFC-4180 parser: quotes only
// guard embedded commas, which is all the upstream exports produce.
func splitFields(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())
	return fields
}

// normalizeDate converts MM/DD/YY or MM/DD/YYYY to YYYY-MM-DD. Two-digit
// years below 50 map to 20YY, the rest to 19YY.
func normalizeDate(s string) (string, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid date %q: expected MM/DD/YY or MM/DD/YYYY", s)
	}

	month, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || month < 1 || month > 12 {
		return "", fmt.Errorf("invalid month in date %q", s)
	}
	day, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || day < 1 || day > 31 {
		return "", fmt.Errorf("invalid day in date %q", s)
	}
	year, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil || year < 0 {
		return "", fmt.Errorf("invalid year in date %q", s)
	}

	switch {
	case year < 50:
		year += 2000
	case year < 100:
		year += 1900
	}

	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), nil
}

// parseNumeric parses a cell that may carry comma thousands separators
// and surrounding quotes. Empty and "-" cells report no value.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\"", ""))
	if s == "" || s == "-" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
