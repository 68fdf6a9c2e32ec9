package query

import (
	"net/http"
	"strings"
)

// Sorter turns ?ordering=field,-other into an ORDER BY clause. Only fields in
// Columns are honoured; unknown fields are ignored.
type Sorter struct {
	// Columns maps public field names to SQL expressions
	Columns map[string]string
	// Default is used when no valid field was requested, e.g. "-created_at"
	Default string
	// Tiebreak is appended to keep pagination stable, e.g. "b.id"
	Tiebreak string
}

// OrderField is one parsed ordering term
type OrderField struct {
	Name string
	Desc bool
}

// Parse returns the whitelisted ordering terms in raw
func (s Sorter) Parse(raw string) []OrderField {
	var out []OrderField
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		if _, ok := s.Columns[name]; !ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, OrderField{Name: name, Desc: desc})
	}
	return out
}

// OrderBy builds the ORDER BY clause for raw, falling back to Default
func (s Sorter) OrderBy(raw string) string {
	fields := s.Parse(raw)
	if len(fields) == 0 {
		fields = s.Parse(s.Default)
	}

	terms := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		dir := " ASC"
		if f.Desc {
			dir = " DESC"
		}
		terms = append(terms, s.Columns[f.Name]+dir)
	}
	if s.Tiebreak != "" {
		terms = append(terms, s.Tiebreak+" ASC")
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

// Ordering returns the raw ?ordering= parameter
func Ordering(r *http.Request) string {
	return r.URL.Query().Get("ordering")
}

// Search returns the trimmed ?search= parameter
func Search(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("search"))
}
