package journal

import (
	"fmt"
	"time"

	"github.com/mbrock/jview/internal/query"
)

// Args returns the journalctl arguments selecting the same entries as q.
// Options come first, then FIELD=value matches.
func Args(q query.Query) []string {
	var args []string

	iv := q.Interval()
	switch iv.Kind() {
	case query.KindNamed:
		switch iv.Tag() {
		case query.TagBoot:
			args = append(args, "--boot")
		case query.TagPreviousBoot:
			args = append(args, "--boot=-1")
		case query.TagLastHour:
			args = append(args, "--since=-1h")
		case query.TagToday:
			args = append(args, "--since=today")
		case query.TagYesterday:
			args = append(args, "--since=yesterday", "--until=today")
		}
	case query.KindRange:
		if since, ok := iv.Since(); ok {
			args = append(args, "--since="+epoch(since))
		}
		if until, ok := iv.Until(); ok {
			args = append(args, "--until="+epoch(until))
		}
	}

	var matches []string
	filters := q.Filters()
	for _, name := range filters.Names() {
		spec, _ := query.LookupFilter(name)
		for _, v := range filters[name] {
			switch {
			case name == query.FilterBootID:
				matches = append(matches, spec.Field+"="+NormalizeBootID(v))
			case spec.Option != "":
				args = append(args, spec.Option+"="+v)
			default:
				matches = append(matches, spec.Field+"="+v)
			}
		}
	}
	return append(args, matches...)
}

// epoch formats t in journalctl's "@seconds" notation, which needs no
// time zone.
func epoch(t time.Time) string {
	us := t.UnixMicro()
	sign := ""
	if us < 0 {
		sign, us = "-", -us
	}
	if frac := us % 1e6; frac != 0 {
		return fmt.Sprintf("@%s%d.%06d", sign, us/1e6, frac)
	}
	return fmt.Sprintf("@%s%d", sign, us/1e6)
}
