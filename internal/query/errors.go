package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation is matched by every error Build returns.
var ErrValidation = errors.New("invalid query")

// InvalidRangeError reports an explicit range whose since is after until.
type InvalidRangeError struct {
	Since, Until time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("since %s is after until %s",
		e.Since.Format(time.RFC3339), e.Until.Format(time.RFC3339))
}

func (e *InvalidRangeError) Is(target error) bool { return target == ErrValidation }

// InvalidTimestampError reports a since or until value that is not a
// recognised timestamp.
type InvalidTimestampError struct {
	Bound string // "since" or "until"
	Value string
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("%s: cannot parse %q as a timestamp", e.Bound, e.Value)
}

func (e *InvalidTimestampError) Is(target error) bool { return target == ErrValidation }

// UnknownIntervalError reports an interval tag missing from the catalog.
type UnknownIntervalError struct {
	Tag string
}

func (e *UnknownIntervalError) Error() string {
	return fmt.Sprintf("unknown interval %q", e.Tag)
}

func (e *UnknownIntervalError) Is(target error) bool { return target == ErrValidation }

// UnknownFilterNameError reports raw input for a filter missing from the
// catalog. It points at a caller bug rather than bad user input.
type UnknownFilterNameError struct {
	Name string
}

func (e *UnknownFilterNameError) Error() string {
	return fmt.Sprintf("unknown filter %q", e.Name)
}

func (e *UnknownFilterNameError) Is(target error) bool { return target == ErrValidation }

// InvalidFilterValueError reports a value outside a filter's allowed set.
type InvalidFilterValueError struct {
	Name    string
	Value   string
	Allowed []string
}

func (e *InvalidFilterValueError) Error() string {
	return fmt.Sprintf("filter %s: %q is not one of %s", e.Name, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *InvalidFilterValueError) Is(target error) bool { return target == ErrValidation }
