package query

import (
	"strconv"
	"strings"
)

// Where accumulates AND-ed SQL conditions with positional arguments.
// Conditions are written with '?' placeholders, which are renumbered to
// $1, $2, ... in the order they are added.
type Where struct {
	conds []string
	args  []any
}

// Add appends cond, binding one argument per '?' in cond
func (w *Where) Add(cond string, args ...any) *Where {
	var b strings.Builder
	i := 0
	for _, r := range cond {
		if r == '?' && i < len(args) {
			w.args = append(w.args, args[i])
			b.WriteString("$" + strconv.Itoa(len(w.args)))
			i++
			continue
		}
		b.WriteRune(r)
	}
	w.conds = append(w.conds, b.String())
	return w
}

// Eq adds col = value
func (w *Where) Eq(col string, value any) *Where {
	return w.Add(col+" = ?", value)
}

// IContains adds a case-insensitive substring match
func (w *Where) IContains(col, value string) *Where {
	return w.Add(col+" ILIKE ?", "%"+EscapeLike(value)+"%")
}

// IStartsWith adds a case-insensitive prefix match
func (w *Where) IStartsWith(col, value string) *Where {
	return w.Add(col+" ILIKE ?", EscapeLike(value)+"%")
}

// IExact adds a case-insensitive equality match
func (w *Where) IExact(col, value string) *Where {
	return w.Add(col+" ILIKE ?", EscapeLike(value))
}

// Gt adds col > value
func (w *Where) Gt(col string, value any) *Where {
	return w.Add(col+" > ?", value)
}

// Lt adds col < value
func (w *Where) Lt(col string, value any) *Where {
	return w.Add(col+" < ?", value)
}

// Gte adds col >= value
func (w *Where) Gte(col string, value any) *Where {
	return w.Add(col+" >= ?", value)
}

// Lte adds col <= value
func (w *Where) Lte(col string, value any) *Where {
	return w.Add(col+" <= ?", value)
}

// Between adds lo <= col <= hi
func (w *Where) Between(col string, lo, hi any) *Where {
	return w.Add(col+" BETWEEN ? AND ?", lo, hi)
}

// AnyIContains adds a case-insensitive substring match against any of cols
func (w *Where) AnyIContains(value string, cols ...string) *Where {
	if len(cols) == 0 {
		return w
	}
	pattern := "%" + EscapeLike(value) + "%"
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		parts[i] = col + " ILIKE ?"
		args[i] = pattern
	}
	return w.Add("("+strings.Join(parts, " OR ")+")", args...)
}

// Len returns the number of conditions
func (w *Where) Len() int {
	return len(w.conds)
}

// SQL returns " WHERE a AND b", or "" when there are no conditions
func (w *Where) SQL() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Args returns the bound arguments
func (w *Where) Args() []any {
	return w.args
}

// Paginate returns " LIMIT $n OFFSET $n+1" and the full argument list
func (w *Where) Paginate(p Page) (string, []any) {
	n := len(w.args)
	args := append(append([]any(nil), w.args...), p.Limit(), p.Offset())
	return " LIMIT $" + strconv.Itoa(n+1) + " OFFSET $" + strconv.Itoa(n+2), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE wildcards in s
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
