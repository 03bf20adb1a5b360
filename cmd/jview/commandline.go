package main

import (
	"fmt"
	"strings"

	"github.com/mbrock/jview/internal/query"
)

// defaultInterval is used when neither a preset nor flags pick one.
const defaultInterval = query.TagBoot

// commandLine is the raw query as typed on the command line.
type commandLine struct {
	Interval string
	Since    string
	Until    string
	Filters  []string // NAME=VALUE
}

// parseCommandLine layers command line input over base (a preset, or nil)
// and returns raw input for query.Build. Every filter named on the command
// line is enabled; naming a multi-value filter twice adds values, naming a
// single-value filter twice keeps the last.
func parseCommandLine(cl commandLine, base *query.RawInputs) (query.RawInputs, error) {
	in := query.RawInputs{
		Interval: query.IntervalInput{Tag: defaultInterval},
		Filters:  query.RawFilters{},
	}
	if base != nil {
		in.Interval = base.Interval
		for name, rf := range base.Filters {
			in.Filters[name] = rf
		}
	}

	rangeGiven := cl.Since != "" || cl.Until != ""
	switch {
	case cl.Interval != "":
		in.Interval = query.IntervalInput{Tag: cl.Interval}
	case rangeGiven && in.Interval.Tag != query.TagRange:
		in.Interval = query.IntervalInput{Tag: query.TagRange}
	}
	if rangeGiven {
		if in.Interval.Tag != query.TagRange {
			return query.RawInputs{}, fmt.Errorf("%w: --since and --until need --interval=%s, not %s",
				query.ErrValidation, query.TagRange, in.Interval.Tag)
		}
		if cl.Since != "" {
			in.Interval.Since = cl.Since
		}
		if cl.Until != "" {
			in.Interval.Until = cl.Until
		}
	}

	seen := make(map[string]bool)
	for _, f := range cl.Filters {
		name, value, ok := strings.Cut(f, "=")
		if !ok {
			return query.RawInputs{}, fmt.Errorf("%w: filter %q is not NAME=VALUE", query.ErrValidation, f)
		}
		name = strings.TrimSpace(name)
		spec, known := query.LookupFilter(name)
		if known && spec.Multiple && seen[name] {
			value = in.Filters[name].Value + " " + value
		}
		seen[name] = true
		in.Filters[name] = query.RawFilter{Enabled: true, Value: value}
	}
	return in, nil
}

// shellJoin renders argv so it can be pasted into a POSIX shell.
func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = shellQuote(a)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsFunc(s, needsQuote) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuote(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_=./:@,+%", r):
		return false
	}
	return true
}
