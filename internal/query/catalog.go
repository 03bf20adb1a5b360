// Package query holds the journal query model: the static catalog of
// intervals and filters, the Query value built from raw user input, and the
// conversion back to raw input.
package query

import "slices"

// Interval tags understood by the catalog.
const (
	TagBoot         = "boot"
	TagPreviousBoot = "previous-boot"
	TagLastHour     = "last-hour"
	TagToday        = "today"
	TagYesterday    = "yesterday"

	// TagRange selects an explicit since/until range instead of a preset.
	TagRange = "range"
)

// Filter names understood by the catalog.
const (
	FilterUnit       = "unit"
	FilterUserUnit   = "user-unit"
	FilterIdentifier = "identifier"
	FilterPriority   = "priority"
	FilterTransport  = "transport"
	FilterBootID     = "boot-id"
	FilterPID        = "pid"
	FilterUID        = "uid"
	FilterGrep       = "grep"
)

// IntervalOption is one selectable interval in display order.
type IntervalOption struct {
	Tag   string
	Label string
}

// FilterSpec describes a filter the query model understands.
type FilterSpec struct {
	Name     string
	Label    string
	Multiple bool // value is split on whitespace into several values

	// AllowedValues, when non-nil, restricts the value to a fixed set
	// (combo-box style). Nil means free text.
	AllowedValues []string

	// Field is the journal field the filter matches.
	Field string

	// Option is the journalctl option that expresses the filter. Empty
	// means the filter is passed as a FIELD=value match.
	Option string
}

// Syslog priority names; the index is the numeric PRIORITY value.
var priorities = []string{"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug"}

var transports = []string{"audit", "driver", "syslog", "journal", "stdout", "kernel"}

var intervalCatalog = []IntervalOption{
	{Tag: TagBoot, Label: "Current boot"},
	{Tag: TagPreviousBoot, Label: "Previous boot"},
	{Tag: TagLastHour, Label: "Last hour"},
	{Tag: TagToday, Label: "Today"},
	{Tag: TagYesterday, Label: "Yesterday"},
	{Tag: TagRange, Label: "Explicit range"},
}

var filterCatalog = []FilterSpec{
	{Name: FilterUnit, Label: "Unit", Multiple: true, Field: "_SYSTEMD_UNIT", Option: "--unit"},
	{Name: FilterUserUnit, Label: "User unit", Multiple: true, Field: "_SYSTEMD_USER_UNIT", Option: "--user-unit"},
	{Name: FilterIdentifier, Label: "Syslog identifier", Multiple: true, Field: "SYSLOG_IDENTIFIER", Option: "--identifier"},
	{Name: FilterPriority, Label: "Priority", AllowedValues: priorities, Field: "PRIORITY", Option: "--priority"},
	{Name: FilterTransport, Label: "Transport", AllowedValues: transports, Field: "_TRANSPORT"},
	{Name: FilterBootID, Label: "Boot ID", Field: "_BOOT_ID"},
	{Name: FilterPID, Label: "Process ID", Multiple: true, Field: "_PID"},
	{Name: FilterUID, Label: "User ID", Field: "_UID"},
	{Name: FilterGrep, Label: "Message pattern", Field: "MESSAGE", Option: "--grep"},
}

var (
	intervalIndex = make(map[string]int, len(intervalCatalog))
	filterIndex   = make(map[string]int, len(filterCatalog))
)

func init() {
	for i, o := range intervalCatalog {
		intervalIndex[o.Tag] = i
	}
	for i, f := range filterCatalog {
		filterIndex[f.Name] = i
	}
}

// Intervals returns the selectable intervals in display order. The last one
// is always the TagRange sentinel.
func Intervals() []IntervalOption {
	return slices.Clone(intervalCatalog)
}

// FilterCatalog returns every supported filter in display order.
func FilterCatalog() []FilterSpec {
	out := make([]FilterSpec, len(filterCatalog))
	for i, f := range filterCatalog {
		out[i] = f.clone()
	}
	return out
}

// LookupInterval returns the catalog entry for tag.
func LookupInterval(tag string) (IntervalOption, bool) {
	i, ok := intervalIndex[tag]
	if !ok {
		return IntervalOption{}, false
	}
	return intervalCatalog[i], true
}

// LookupFilter returns the catalog entry for name.
func LookupFilter(name string) (FilterSpec, bool) {
	i, ok := filterIndex[name]
	if !ok {
		return FilterSpec{}, false
	}
	return filterCatalog[i].clone(), true
}

// PriorityLevel returns the numeric syslog level for a priority name.
func PriorityLevel(name string) (int, bool) {
	i := slices.Index(priorities, name)
	return i, i >= 0
}

// PriorityName returns the name for a numeric syslog level.
func PriorityName(level int) (string, bool) {
	if level < 0 || level >= len(priorities) {
		return "", false
	}
	return priorities[level], true
}

// Allows reports whether v is acceptable for the filter.
func (f FilterSpec) Allows(v string) bool {
	return f.AllowedValues == nil || slices.Contains(f.AllowedValues, v)
}

func (f FilterSpec) clone() FilterSpec {
	f.AllowedValues = slices.Clone(f.AllowedValues)
	return f
}
