package journal

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbrock/jview/internal/query"
)

// ErrNoBoot is returned when a boot-relative interval names a boot the
// journal does not contain.
var ErrNoBoot = errors.New("no such boot in journal")

// Env supplies what resolving a named interval needs.
type Env struct {
	Now      time.Time      // zero means time.Now()
	Location *time.Location // for "today" and "yesterday"; nil means time.Local

	// Boot returns the boot ID at offset: 0 is the latest boot, -1 the one
	// before it.
	Boot func(offset int) (string, error)

	// UID, when set, restricts the plan to entries logged by that user and
	// makes the unit filter match user units, as journalctl --user does.
	UID string
}

// Match restricts one journal field to a set of values.
type Match struct {
	Field  string
	Values []string
}

// Plan is a query resolved against a clock and a journal: absolute bounds
// plus field matches. Matches on different fields must all hold; a field
// matches if it equals any of its values, as in sd_journal_add_match.
type Plan struct {
	Since   time.Time // inclusive; zero means the earliest entry
	Until   time.Time // inclusive; zero means now
	Matches []Match   // sorted by field
	Pattern *regexp.Regexp

	// Empty is set when constraints contradict each other, e.g. the
	// current-boot interval combined with another boot's ID.
	Empty bool
}

// Resolve turns q into a Plan.
func Resolve(q query.Query, env Env) (Plan, error) {
	now := env.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := env.Location
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	var p Plan
	fields := make(map[string][]string)

	iv := q.Interval()
	switch iv.Kind() {
	case query.KindNamed:
		switch tag := iv.Tag(); tag {
		case query.TagBoot, query.TagPreviousBoot:
			offset := 0
			if tag == query.TagPreviousBoot {
				offset = -1
			}
			id, err := lookupBoot(env, offset)
			if err != nil {
				return Plan{}, fmt.Errorf("resolving %s: %w", tag, err)
			}
			fields[FieldBootID] = []string{id}
		case query.TagLastHour:
			p.Since = now.Add(-time.Hour)
		case query.TagToday:
			p.Since = midnight(now)
		case query.TagYesterday:
			today := midnight(now)
			p.Since = today.AddDate(0, 0, -1)
			p.Until = today.Add(-time.Microsecond)
		default:
			return Plan{}, fmt.Errorf("resolving interval %q: not a known preset", tag)
		}
	case query.KindRange:
		p.Since, _ = iv.Since()
		p.Until, _ = iv.Until()
	}

	if env.UID != "" {
		fields[FieldUID] = []string{env.UID}
	}

	filters := q.Filters()
	for _, name := range filters.Names() {
		spec, _ := query.LookupFilter(name)
		field := spec.Field
		values := filters[name]
		if name == query.FilterUnit && env.UID != "" {
			field = FieldUserUnit
		}

		switch name {
		case query.FilterGrep:
			re, err := compilePattern(values[0])
			if err != nil {
				return Plan{}, fmt.Errorf("filter %s: %w", name, err)
			}
			p.Pattern = re
			continue
		case query.FilterPriority:
			level, _ := query.PriorityLevel(values[0])
			values = priorityValues(level)
		case query.FilterUnit, query.FilterUserUnit:
			values = unitNames(values)
		case query.FilterBootID:
			values = []string{NormalizeBootID(values[0])}
		}

		if prev, ok := fields[field]; ok {
			values = intersect(prev, values)
			if len(values) == 0 {
				p.Empty = true
			}
		}
		fields[field] = values
	}

	for _, field := range slices.Sorted(maps.Keys(fields)) {
		if len(fields[field]) > 0 {
			p.Matches = append(p.Matches, Match{Field: field, Values: fields[field]})
		}
	}
	return p, nil
}

// Match reports whether r satisfies the plan.
func (p Plan) Match(r Record) bool {
	if p.Empty {
		return false
	}
	if !p.Since.IsZero() && r.Timestamp.Before(p.Since) {
		return false
	}
	if !p.Until.IsZero() && r.Timestamp.After(p.Until) {
		return false
	}
	for _, m := range p.Matches {
		v, ok := r.Fields[m.Field]
		if !ok || !slices.Contains(m.Values, v) {
			return false
		}
	}
	if p.Pattern != nil && !p.Pattern.MatchString(r.Message) {
		return false
	}
	return true
}

// past reports whether r lies after the upper bound, which for
// chronological reads means nothing further can match.
func (p Plan) past(r Record) bool {
	return !p.Until.IsZero() && r.Timestamp.After(p.Until)
}

// startUsec returns the realtime position to seek to for a lower bound, or
// false when reading should start at the head. Journal timestamps are
// unsigned, so bounds at or before the epoch start at the head.
func startUsec(since time.Time) (uint64, bool) {
	us := since.UnixMicro()
	if us <= 0 {
		return 0, false
	}
	return uint64(us), true
}

// NormalizeBootID lowercases a boot ID and strips UUID dashes, the form
// journald stores in _BOOT_ID.
func NormalizeBootID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return strings.ReplaceAll(u.String(), "-", "")
	}
	return strings.ToLower(id)
}

func lookupBoot(env Env, offset int) (string, error) {
	if env.Boot == nil {
		return "", ErrNoBoot
	}
	id, err := env.Boot(offset)
	if err != nil {
		return "", err
	}
	return NormalizeBootID(id), nil
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// priorityValues lists every PRIORITY at or above level in severity.
func priorityValues(level int) []string {
	values := make([]string, 0, level+1)
	for i := 0; i <= level; i++ {
		values = append(values, strconv.Itoa(i))
	}
	return values
}

// unitNames appends ".service" to names without a unit type suffix.
func unitNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if !strings.Contains(n, ".") {
			n += ".service"
		}
		out[i] = n
	}
	return out
}

// compilePattern compiles a message pattern. A pattern without upper case
// letters matches case-insensitively.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if strings.ToLower(pattern) == pattern {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func intersect(a, b []string) []string {
	var out []string
	for _, v := range a {
		if slices.Contains(b, v) {
			out = append(out, v)
		}
	}
	return out
}
