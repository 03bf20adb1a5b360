// Package journal executes journal queries. A query.Query is resolved into
// a Plan of absolute time bounds and field matches, which a Reader runs
// against a log store: libsystemd through sdjournal, the journalctl binary,
// or an in-memory fake.
package journal

import (
	"context"
	"strconv"
	"time"

	"github.com/mbrock/jview/internal/query"
)

// Journal field names the readers look at.
const (
	FieldMessage    = "MESSAGE"
	FieldPriority   = "PRIORITY"
	FieldIdentifier = "SYSLOG_IDENTIFIER"
	FieldComm       = "_COMM"
	FieldPID        = "_PID"
	FieldBootID     = "_BOOT_ID"
	FieldHostname   = "_HOSTNAME"
	FieldUID        = "_UID"
	FieldUserUnit   = "_SYSTEMD_USER_UNIT"
)

// Record is a single journal entry.
type Record struct {
	Cursor    string
	Timestamp time.Time
	Message   string
	Fields    map[string]string
}

// Priority returns the numeric syslog priority, if the entry has one.
func (r Record) Priority() (int, bool) {
	v, ok := r.Fields[FieldPriority]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Identifier returns SYSLOG_IDENTIFIER, falling back to the command name.
func (r Record) Identifier() string {
	if id := r.Fields[FieldIdentifier]; id != "" {
		return id
	}
	return r.Fields[FieldComm]
}

// Reader executes a query against a log store.
type Reader interface {
	// Read returns the entries matching q in chronological order. A
	// positive limit keeps only the newest limit entries.
	Read(ctx context.Context, q query.Query, limit int) ([]Record, error)

	// Close releases any resources.
	Close() error
}

// keep appends r to records, dropping the oldest entry once limit is
// exceeded.
func keep(records []Record, r Record, limit int) []Record {
	records = append(records, r)
	if limit > 0 && len(records) > limit {
		records = records[1:]
	}
	return records
}
