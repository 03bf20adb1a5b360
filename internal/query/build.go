package query

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// IntervalInput is the raw interval selection from a presentation layer.
// Since and Until are read only when Tag is TagRange; blank means unset.
type IntervalInput struct {
	Tag   string
	Since string
	Until string
}

// RawFilter is the raw state of one filter widget: whether it is switched
// on and the text typed or chosen for it.
type RawFilter struct {
	Enabled bool
	Value   string
}

// RawFilters maps a filter name to its raw state.
type RawFilters map[string]RawFilter

// RawInputs is everything a presentation layer hands to Build.
type RawInputs struct {
	Interval IntervalInput
	Filters  RawFilters
}

// Builder turns raw input into a Query. The zero value interprets zoneless
// timestamps in the local time zone.
type Builder struct {
	// Location for timestamps that carry no zone. Nil means time.Local.
	Location *time.Location
}

// Build validates raw input with the zero Builder.
func Build(in IntervalInput, raw RawFilters) (Query, error) {
	return Builder{}.Build(in, raw)
}

// Build validates and normalizes raw input into a Query. Enabled filters
// whose value is blank are dropped, not reported. Every problem found is
// returned, joined; no partial Query is ever returned.
func (b Builder) Build(in IntervalInput, raw RawFilters) (Query, error) {
	var errs []error

	interval, err := b.interval(in)
	if err != nil {
		errs = append(errs, err)
	}

	filters := make(Filters)
	for _, name := range sortedNames(raw) {
		spec, ok := LookupFilter(name)
		if !ok {
			errs = append(errs, &UnknownFilterNameError{Name: name})
			continue
		}
		rf := raw[name]
		if !rf.Enabled {
			continue
		}
		values, err := checkValues(spec, deriveValues(spec, rf.Value))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(values) == 0 {
			continue
		}
		filters[name] = values
	}

	if len(errs) > 0 {
		return Query{}, errors.Join(errs...)
	}
	return Query{interval: interval, filters: filters}, nil
}

// FromValues builds a Query from already split filter values, as found in
// structured encodings. Every listed filter counts as enabled; blank values
// are dropped and a filter left with none is omitted.
func (b Builder) FromValues(in IntervalInput, values map[string][]string) (Query, error) {
	var errs []error

	interval, err := b.interval(in)
	if err != nil {
		errs = append(errs, err)
	}

	filters := make(Filters)
	for _, name := range sortedNames(values) {
		spec, ok := LookupFilter(name)
		if !ok {
			errs = append(errs, &UnknownFilterNameError{Name: name})
			continue
		}
		vs, err := checkValues(spec, values[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(vs) > 0 {
			filters[name] = vs
		}
	}

	if len(errs) > 0 {
		return Query{}, errors.Join(errs...)
	}
	return Query{interval: interval, filters: filters}, nil
}

// BuildRaw is Build for a RawInputs value.
func (b Builder) BuildRaw(in RawInputs) (Query, error) {
	return b.Build(in.Interval, in.Filters)
}

func (b Builder) interval(in IntervalInput) (Interval, error) {
	if _, ok := LookupInterval(in.Tag); !ok {
		return Interval{}, &UnknownIntervalError{Tag: in.Tag}
	}
	if in.Tag != TagRange {
		return Named(in.Tag), nil
	}

	loc := b.location()
	since, sinceErr := parseBound("since", in.Since, loc)
	until, untilErr := parseBound("until", in.Until, loc)
	if err := errors.Join(sinceErr, untilErr); err != nil {
		return Interval{}, err
	}
	if !since.IsZero() && !until.IsZero() && since.After(until) {
		return Interval{}, &InvalidRangeError{Since: since, Until: until}
	}
	return Range(since, until), nil
}

func (b Builder) location() *time.Location {
	if b.Location == nil {
		return time.Local
	}
	return b.Location
}

func parseBound(bound, s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := ParseTimestamp(s, loc)
	// The zero time stands for an open bound and cannot be given explicitly.
	if err != nil || t.IsZero() {
		return time.Time{}, &InvalidTimestampError{Bound: bound, Value: s}
	}
	return t, nil
}

func deriveValues(spec FilterSpec, raw string) []string {
	if spec.Multiple {
		return strings.Fields(raw)
	}
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return []string{v}
}

func checkValues(spec FilterSpec, values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if !spec.Multiple && len(out) > 1 {
		return nil, fmt.Errorf("%w: filter %s takes a single value, got %d", ErrValidation, spec.Name, len(out))
	}
	for _, v := range out {
		if !spec.Allows(v) {
			return nil, &InvalidFilterValueError{Name: spec.Name, Value: v, Allowed: spec.AllowedValues}
		}
	}
	return out, nil
}

// sortedNames orders raw filter names by catalog position, unknown names
// last and alphabetically, so joined errors come out deterministically.
func sortedNames[V any](raw map[string]V) []string {
	names := make([]string, 0, len(raw))
	var unknown []string
	for _, spec := range filterCatalog {
		if _, ok := raw[spec.Name]; ok {
			names = append(names, spec.Name)
		}
	}
	for name := range raw {
		if _, ok := filterIndex[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	slices.Sort(unknown)
	return append(names, unknown...)
}

// ToRawInputs converts a Query back into raw input. Feeding the result to
// Build yields an equal Query, provided no multi-value filter value
// contains whitespace.
func ToRawInputs(q Query) RawInputs {
	var in IntervalInput
	switch q.interval.Kind() {
	case KindNamed:
		in = IntervalInput{Tag: q.interval.tag}
	case KindRange:
		in = IntervalInput{
			Tag:   TagRange,
			Since: formatBound(q.interval.since),
			Until: formatBound(q.interval.until),
		}
	}

	raw := make(RawFilters, len(q.filters))
	for name, values := range q.filters {
		raw[name] = RawFilter{Enabled: true, Value: strings.Join(values, " ")}
	}
	return RawInputs{Interval: in, Filters: raw}
}

// DefaultRange is the since/until a presentation layer shows before the
// user has picked a range: the last 24 hours.
func DefaultRange(now time.Time) (since, until time.Time) {
	return now.Add(-24 * time.Hour), now
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an RFC 3339 timestamp or one of the zoneless forms
// "2006-01-02[ T]15:04[:05]" and "2006-01-02", the latter read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
