package query

import (
	"fmt"
	"time"
)

// IntervalKind distinguishes the two shapes an Interval can take.
type IntervalKind int

const (
	KindNamed IntervalKind = iota // a catalog preset such as "today"
	KindRange                     // explicit since/until bounds
)

func (k IntervalKind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindRange:
		return "range"
	default:
		return fmt.Sprintf("IntervalKind(%d)", int(k))
	}
}

// Interval is the time window of a query: either Named(tag) or
// Range(since, until). The zero value is Named("") and is never produced
// by Build.
type Interval struct {
	kind  IntervalKind
	tag   string
	since time.Time
	until time.Time
}

// Named returns an interval referring to a catalog preset.
func Named(tag string) Interval {
	return Interval{kind: KindNamed, tag: tag}
}

// Range returns an explicit interval. A zero since means "from the earliest
// entry"; a zero until means "up to now".
func Range(since, until time.Time) Interval {
	return Interval{kind: KindRange, since: since, until: until}
}

// Kind reports which shape the interval has.
func (iv Interval) Kind() IntervalKind { return iv.kind }

// Tag returns the preset tag for a named interval, or TagRange.
func (iv Interval) Tag() string {
	if iv.kind == KindRange {
		return TagRange
	}
	return iv.tag
}

// Since returns the lower bound of a range and whether it is set.
func (iv Interval) Since() (time.Time, bool) {
	return iv.since, iv.kind == KindRange && !iv.since.IsZero()
}

// Until returns the upper bound of a range and whether it is set.
func (iv Interval) Until() (time.Time, bool) {
	return iv.until, iv.kind == KindRange && !iv.until.IsZero()
}

// Equal reports whether two intervals describe the same window.
func (iv Interval) Equal(o Interval) bool {
	if iv.kind != o.kind {
		return false
	}
	switch iv.kind {
	case KindNamed:
		return iv.tag == o.tag
	case KindRange:
		return iv.since.Equal(o.since) && iv.until.Equal(o.until)
	}
	return false
}

func (iv Interval) String() string {
	switch iv.kind {
	case KindNamed:
		return iv.tag
	case KindRange:
		return fmt.Sprintf("%s..%s", formatBound(iv.since), formatBound(iv.until))
	}
	return iv.kind.String()
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
