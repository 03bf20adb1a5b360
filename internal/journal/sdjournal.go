//go:build linux && cgo

package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/sdjournal"

	"github.com/mbrock/jview/internal/query"
)

// SDJournalReader runs queries through libsystemd via go-systemd/sdjournal.
type SDJournalReader struct {
	journal *sdjournal.Journal
	source  string

	// Now is the clock used to resolve relative intervals. Nil means
	// time.Now.
	Now func() time.Time

	// UID scopes reads to one user's entries, like Env.UID.
	UID string
}

var _ Reader = (*SDJournalReader)(nil)

// OpenSDJournal opens the system journal, or dir when non-empty, or the
// given journal files when any are listed.
func OpenSDJournal(dir string, files ...string) (*SDJournalReader, error) {
	var (
		j      *sdjournal.Journal
		err    error
		source string
	)
	switch {
	case len(files) > 0:
		j, err = sdjournal.NewJournalFromFiles(files...)
		source = fmt.Sprintf("%d file(s)", len(files))
	case dir != "":
		j, err = sdjournal.NewJournalFromDir(dir)
		source = dir
	default:
		j, err = sdjournal.NewJournal()
		source = "system journal"
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &SDJournalReader{journal: j, source: source}, nil
}

// Read implements Reader.
func (s *SDJournalReader) Read(ctx context.Context, q query.Query, limit int) ([]Record, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	plan, err := Resolve(q, Env{Now: now(), Boot: s.Boot, UID: s.UID})
	if err != nil {
		return nil, err
	}
	slog.Debug("SDJournalReader.Read", "source", s.source, "query", q.String(),
		"since", plan.Since, "until", plan.Until, "matches", len(plan.Matches))
	if plan.Empty {
		return nil, nil
	}

	s.journal.FlushMatches()
	for _, m := range plan.Matches {
		for _, v := range m.Values {
			if err := s.journal.AddMatch(m.Field + "=" + v); err != nil {
				return nil, fmt.Errorf("adding match %s=%s: %w", m.Field, v, err)
			}
		}
	}

	if usec, ok := startUsec(plan.Since); ok {
		err = s.journal.SeekRealtimeUsec(usec)
	} else {
		err = s.journal.SeekHead()
	}
	if err != nil {
		return nil, fmt.Errorf("seeking journal: %w", err)
	}

	var records []Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := s.journal.Next()
		if err != nil {
			return nil, fmt.Errorf("reading journal: %w", err)
		}
		if n == 0 {
			break
		}

		record, err := s.parseEntry()
		if err != nil {
			continue
		}
		if plan.past(record) {
			break
		}
		if plan.Match(record) {
			records = keep(records, record, limit)
		}
	}
	return records, nil
}

// Boot returns the boot ID at offset: 0 is the boot of the newest entry,
// -1 the boot before it. Matches are flushed.
func (s *SDJournalReader) Boot(offset int) (string, error) {
	if offset > 0 || offset < -1 {
		return "", fmt.Errorf("boot %d: %w", offset, ErrNoBoot)
	}

	s.journal.FlushMatches()
	if err := s.journal.SeekTail(); err != nil {
		return "", fmt.Errorf("seeking journal tail: %w", err)
	}
	latest, err := s.stepBoot(s.journal.Previous)
	if err != nil {
		return "", err
	}
	if offset == 0 {
		return latest, nil
	}

	// Land on the first entry of the latest boot, then walk back from its
	// cursor. Journal order holds even when the clock jumped between boots.
	if err := s.journal.AddMatch(FieldBootID + "=" + latest); err != nil {
		return "", fmt.Errorf("adding boot match: %w", err)
	}
	if err := s.journal.SeekHead(); err != nil {
		return "", fmt.Errorf("seeking journal head: %w", err)
	}
	if n, err := s.journal.Next(); err != nil || n == 0 {
		return "", fmt.Errorf("locating boot %s: %w", latest, ErrNoBoot)
	}
	cursor, err := s.journal.GetCursor()
	if err != nil {
		return "", fmt.Errorf("reading boot start: %w", err)
	}

	s.journal.FlushMatches()
	if err := s.journal.SeekCursor(cursor); err != nil {
		return "", fmt.Errorf("seeking boot start: %w", err)
	}
	if _, err := s.journal.Next(); err != nil {
		return "", fmt.Errorf("reading journal: %w", err)
	}
	for {
		id, err := s.stepBoot(s.journal.Previous)
		if err != nil {
			return "", err
		}
		if id != latest {
			return id, nil
		}
	}
}

// stepBoot moves one entry with step and returns its boot ID.
func (s *SDJournalReader) stepBoot(step func() (uint64, error)) (string, error) {
	n, err := step()
	if err != nil {
		return "", fmt.Errorf("reading journal: %w", err)
	}
	if n == 0 {
		return "", ErrNoBoot
	}
	id, err := s.journal.GetDataValue(FieldBootID)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", FieldBootID, err)
	}
	return id, nil
}

// parseEntry converts the current journal position into a Record.
func (s *SDJournalReader) parseEntry() (Record, error) {
	raw, err := s.journal.GetEntry()
	if err != nil {
		return Record{}, err
	}
	return Record{
		Cursor:    raw.Cursor,
		Timestamp: time.UnixMicro(int64(raw.RealtimeTimestamp)),
		Message:   raw.Fields[FieldMessage],
		Fields:    raw.Fields,
	}, nil
}

// Close releases the journal handle.
func (s *SDJournalReader) Close() error {
	return s.journal.Close()
}
