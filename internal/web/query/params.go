// Package query parses list-endpoint query strings (pagination, ordering,
// filters) and turns them into parameterized SQL fragments.
package query

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/inkwell-dev/inkwell/internal/validation"
)

// Params reads typed filter values from a query string and collects parse
// errors per parameter.
type Params struct {
	values url.Values
	errs   *validation.Errors
}

// NewParams wraps the request's query string
func NewParams(r *http.Request) *Params {
	return &Params{values: r.URL.Query(), errs: validation.New()}
}

// String returns the trimmed value of name and whether it was non-empty
func (p *Params) String(name string) (string, bool) {
	v := strings.TrimSpace(p.values.Get(name))
	return v, v != ""
}

// Int parses name as an integer. Malformed values record "Enter a number."
func (p *Params) Int(name string) (int, bool) {
	raw, ok := p.String(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs.Add(name, "Enter a number.")
		return 0, false
	}
	return n, true
}

// Int64 parses name as a 64-bit integer
func (p *Params) Int64(name string) (int64, bool) {
	raw, ok := p.String(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.errs.Add(name, "Enter a number.")
		return 0, false
	}
	return n, true
}

// Bool parses true/false, 1/0 or yes/no
func (p *Params) Bool(name string) (bool, bool) {
	raw, ok := p.String(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	p.errs.Add(name, "Select a valid choice. "+raw+" is not one of the available choices.")
	return false, false
}

// Choice returns name's value when it is one of choices
func (p *Params) Choice(name string, choices ...string) (string, bool) {
	raw, ok := p.String(name)
	if !ok {
		return "", false
	}
	for _, c := range choices {
		if raw == c {
			return raw, true
		}
	}
	p.errs.Add(name, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", raw))
	return "", false
}

// Err returns the collected parse errors, or nil
func (p *Params) Err() error {
	return p.errs.Err()
}
