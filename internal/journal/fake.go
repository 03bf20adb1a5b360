package journal

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/mbrock/jview/internal/query"
)

// FakeJournal is an in-memory Reader for unit tests.
type FakeJournal struct {
	mu      sync.RWMutex
	records []Record
	cursor  int64
	closed  bool

	// Now is the clock used to resolve relative intervals. Nil means
	// time.Now.
	Now func() time.Time

	// Location for "today" and "yesterday". Nil means time.Local.
	Location *time.Location

	// UID scopes reads to one user's entries, like Env.UID.
	UID string
}

var _ Reader = (*FakeJournal)(nil)

// NewFakeJournal creates an empty FakeJournal.
func NewFakeJournal() *FakeJournal {
	return &FakeJournal{}
}

// Add stores a record, keeping the journal in timestamp order. Missing
// cursors and timestamps are filled in.
func (f *FakeJournal) Add(r Record) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cursor++
	if r.Cursor == "" {
		r.Cursor = strconv.FormatInt(f.cursor, 10)
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = f.now()
	}
	if r.Message == "" {
		r.Message = r.Fields[FieldMessage]
	}
	r.Fields = copyFields(r.Fields)
	if _, ok := r.Fields[FieldMessage]; !ok && r.Message != "" {
		r.Fields[FieldMessage] = r.Message
	}

	i, _ := slices.BinarySearchFunc(f.records, r.Timestamp, func(e Record, t time.Time) int {
		if e.Timestamp.After(t) {
			return 1
		}
		return -1
	})
	f.records = slices.Insert(f.records, i, r)
}

// Boot returns the boot ID at offset, counting boots in the order their
// first entries appear.
func (f *FakeJournal) Boot(offset int) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var boots []string
	for _, r := range f.records {
		id := r.Fields[FieldBootID]
		if id != "" && !slices.Contains(boots, id) {
			boots = append(boots, id)
		}
	}
	i := len(boots) - 1 + offset
	if offset > 0 || i < 0 {
		return "", fmt.Errorf("boot %d: %w", offset, ErrNoBoot)
	}
	return boots[i], nil
}

// Read implements Reader.
func (f *FakeJournal) Read(ctx context.Context, q query.Query, limit int) ([]Record, error) {
	plan, err := Resolve(q, Env{Now: f.now(), Location: f.Location, Boot: f.Boot, UID: f.UID})
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, fmt.Errorf("journal closed")
	}

	var out []Record
	for _, r := range f.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if plan.past(r) {
			break
		}
		if plan.Match(r) {
			out = keep(out, copyRecord(r), limit)
		}
	}
	return out, nil
}

// Close marks the journal closed.
func (f *FakeJournal) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *FakeJournal) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func copyRecord(r Record) Record {
	r.Fields = copyFields(r.Fields)
	return r
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
