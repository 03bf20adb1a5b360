package query

import (
	"maps"
	"slices"
	"strings"
)

// Filters maps a filter name to its values. Single-valued filters hold
// exactly one element; a name is never present with no values.
type Filters map[string][]string

// Get returns the first value of a filter, or "".
func (f Filters) Get(name string) string {
	if v := f[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Has reports whether the filter is part of the query.
func (f Filters) Has(name string) bool {
	return len(f[name]) > 0
}

// Names returns the filter names present, in catalog display order.
func (f Filters) Names() []string {
	names := make([]string, 0, len(f))
	for _, spec := range filterCatalog {
		if f.Has(spec.Name) {
			names = append(names, spec.Name)
		}
	}
	return names
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	if f == nil {
		return nil
	}
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = slices.Clone(v)
	}
	return out
}

// Equal reports whether both mappings hold the same values in the same
// order. Nil and empty mappings are equal.
func (f Filters) Equal(o Filters) bool {
	return maps.EqualFunc(f, o, slices.Equal[[]string])
}

// Query is an immutable journal query: an interval plus field filters.
type Query struct {
	interval Interval
	filters  Filters
}

// New assembles a Query from already validated parts. Most callers want
// Build, which validates raw input.
func New(interval Interval, filters Filters) Query {
	return Query{interval: interval, filters: filters.Clone()}
}

// Interval returns the query's time window.
func (q Query) Interval() Interval { return q.interval }

// Filters returns a copy of the filter mapping.
func (q Query) Filters() Filters {
	if q.filters == nil {
		return Filters{}
	}
	return q.filters.Clone()
}

// Filter returns the values of one filter.
func (q Query) Filter(name string) []string {
	return slices.Clone(q.filters[name])
}

// Equal reports whether two queries are the same.
func (q Query) Equal(o Query) bool {
	return q.interval.Equal(o.interval) && q.filters.Equal(o.filters)
}

func (q Query) String() string {
	var b strings.Builder
	b.WriteString(q.interval.String())
	for _, name := range q.filters.Names() {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(strings.Join(q.filters[name], ","))
	}
	return b.String()
}
