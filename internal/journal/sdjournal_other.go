//go:build !linux || !cgo

package journal

import (
	"context"
	"errors"
	"time"

	"github.com/mbrock/jview/internal/query"
)

var errNoSDJournal = errors.New("sdjournal reader requires linux and cgo; use the journalctl backend")

// SDJournalReader is unavailable without libsystemd.
type SDJournalReader struct {
	Now func() time.Time
	UID string
}

var _ Reader = (*SDJournalReader)(nil)

// OpenSDJournal always fails without libsystemd.
func OpenSDJournal(dir string, files ...string) (*SDJournalReader, error) {
	return nil, errNoSDJournal
}

// Read implements Reader.
func (s *SDJournalReader) Read(ctx context.Context, q query.Query, limit int) ([]Record, error) {
	return nil, errNoSDJournal
}

// Boot always fails without libsystemd.
func (s *SDJournalReader) Boot(offset int) (string, error) {
	return "", errNoSDJournal
}

// Close implements Reader.
func (s *SDJournalReader) Close() error {
	return nil
}
