package graph

import (
	"fmt"
	"strconv"
	"strings"
)

// Timestamp marks a string that is already an ISO-8601 datetime and must be
// rendered as a datetime literal rather than a plain string.
type Timestamp string

// Prop is one named property value. Props preserve declaration order so
// that INSERT column lists and value lists stay aligned.
type Prop struct {
	Name  string
	Value any
}

// Props is an ordered property list. It is the only path by which values
// reach nGQL text: every insert and existence check encodes through it, so
// escaping stays consistent across the whole write surface.
type Props []Prop

// EscapeString escapes a value for embedding in a double-quoted nGQL
// string literal: backslash, quote and control characters.
func EscapeString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(s)
}

// Literal renders a single value as an nGQL literal. Supported kinds are
// the store's value domain: string, integer, float, boolean, null and
// timestamp. Anything else is stringified and quoted.
func Literal(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case string:
		return `"` + EscapeString(t) + `"`
	case Timestamp:
		if t == "" {
			return "NULL"
		}
		return `datetime("` + EscapeString(string(t)) + `")`
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return `"` + EscapeString(fmt.Sprint(t)) + `"`
	}
}

// isNull reports whether a value renders as the NULL literal. Equality
// against NULL evaluates to NULL in nGQL and never matches, so these
// values must compare with IS NULL.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	ts, ok := v.(Timestamp)
	return ok && ts == ""
}

// Names renders the comma-joined property name list for an INSERT.
func (p Props) Names() string {
	names := make([]string, len(p))
	for i, prop := range p {
		names[i] = prop.Name
	}
	return strings.Join(names, ", ")
}

// Values renders the comma-joined literal list for an INSERT, in the same
// order as Names.
func (p Props) Values() string {
	vals := make([]string, len(p))
	for i, prop := range p {
		vals[i] = Literal(prop.Value)
	}
	return strings.Join(vals, ", ")
}

// Predicate renders an AND-joined equality predicate over the properties,
// each qualified by ref ("e" for an edge, "a.Company" for a tagged
// vertex). Null values compare with IS NULL since NULL never equals NULL.
func (p Props) Predicate(ref string) string {
	terms := make([]string, 0, len(p))
	for _, prop := range p {
		if isNull(prop.Value) {
			terms = append(terms, fmt.Sprintf("%s.%s IS NULL", ref, prop.Name))
			continue
		}
		terms = append(terms, fmt.Sprintf("%s.%s == %s", ref, prop.Name, Literal(prop.Value)))
	}
	return strings.Join(terms, " AND ")
}
