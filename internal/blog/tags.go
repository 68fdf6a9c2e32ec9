package blog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTagLength bounds tag names and slugs
const MaxTagLength = 50

// TagList decodes from either a JSON array of names or one comma separated
// string
type TagList []string

// UnmarshalJSON implements json.Unmarshaler
func (t *TagList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("expected a list of items or a comma separated string")
	}
	*t = strings.Split(s, ",")
	return nil
}

// Slugify lowercases name and joins its letter and digit runs with hyphens
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// NormalizeTags trims names, drops empty entries and removes duplicates by
// slug, keeping the first spelling. It returns the field messages for names
// that cannot be used.
func NormalizeTags(names []string) ([]string, []string) {
	out := []string{}
	var problems []string
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if utf8.RuneCountInString(name) > MaxTagLength {
			problems = append(problems, fmt.Sprintf("Tag %q has more than %d characters.", name, MaxTagLength))
			continue
		}
		slug := Slugify(name)
		if slug == "" {
			problems = append(problems, fmt.Sprintf("Tag %q must contain a letter or digit.", name))
			continue
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, name)
	}
	return out, problems
}
