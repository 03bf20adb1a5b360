package journal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/mbrock/jview/internal/query"
)

// DefaultJournalctl is the binary CtlReader runs when Path is empty.
const DefaultJournalctl = "journalctl"

// maxLine bounds a single JSON entry; journalctl can emit large messages.
const maxLine = 16 << 20

// CtlReader runs queries by invoking journalctl and decoding its JSON
// output. It works wherever journalctl does, without libsystemd in-process.
type CtlReader struct {
	Path      string   // journalctl binary
	Directory string   // --directory
	Files     []string // --file, repeated
	User      bool     // --user
}

var _ Reader = (*CtlReader)(nil)

// Command returns the full journalctl command line for q.
func (c *CtlReader) Command(q query.Query, limit int) []string {
	path := c.Path
	if path == "" {
		path = DefaultJournalctl
	}
	argv := []string{path, "--output=json", "--no-pager"}
	if c.Directory != "" {
		argv = append(argv, "--directory="+c.Directory)
	}
	for _, f := range c.Files {
		argv = append(argv, "--file="+f)
	}
	if c.User {
		argv = append(argv, "--user")
	}
	if limit > 0 {
		argv = append(argv, "--lines="+strconv.Itoa(limit))
	}
	return append(argv, Args(q)...)
}

// Read implements Reader.
func (c *CtlReader) Read(ctx context.Context, q query.Query, limit int) ([]Record, error) {
	argv := c.Command(q, limit)
	slog.Debug("CtlReader.Read", "argv", argv)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("journalctl stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting journalctl: %w", err)
	}

	records, decodeErr := DecodeJSON(stdout)
	if decodeErr != nil {
		// Unblock journalctl if it is still writing.
		_, _ = io.Copy(io.Discard, stdout)
	}
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("journalctl: %w", err)
		}
		return nil, fmt.Errorf("journalctl: %w: %s", err, msg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return records, nil
}

// Close implements Reader.
func (c *CtlReader) Close() error {
	return nil
}

// DecodeJSON reads journalctl's "-o json" stream, one object per line.
// Fields journalctl prints as byte arrays are decoded when they are plain
// bytes; fields with several values keep the first one.
func DecodeJSON(r io.Reader) ([]Record, error) {
	var (
		p       fastjson.Parser
		records []Record
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	line := 0
	for sc.Scan() {
		line++
		data := bytes.TrimSpace(sc.Bytes())
		if len(data) == 0 {
			continue
		}
		v, err := p.ParseBytes(data)
		if err != nil {
			return nil, fmt.Errorf("journal json line %d: %w", line, err)
		}
		obj, err := v.Object()
		if err != nil {
			return nil, fmt.Errorf("journal json line %d: %w", line, err)
		}
		records = append(records, decodeEntry(obj))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading journal json: %w", err)
	}
	return records, nil
}

func decodeEntry(obj *fastjson.Object) Record {
	rec := Record{Fields: make(map[string]string, obj.Len())}
	obj.Visit(func(key []byte, v *fastjson.Value) {
		value, ok := fieldValue(v)
		if !ok {
			return
		}
		switch k := string(key); k {
		case "__CURSOR":
			rec.Cursor = value
		case "__REALTIME_TIMESTAMP":
			if us, err := strconv.ParseInt(value, 10, 64); err == nil {
				rec.Timestamp = time.UnixMicro(us)
			}
		default:
			if !strings.HasPrefix(k, "__") {
				rec.Fields[k] = value
			}
		}
	})
	rec.Message = rec.Fields[FieldMessage]
	return rec
}

func fieldValue(v *fastjson.Value) (string, bool) {
	switch v.Type() {
	case fastjson.TypeString:
		b, err := v.StringBytes()
		return string(b), err == nil
	case fastjson.TypeArray:
		arr, _ := v.Array()
		if len(arr) == 0 {
			return "", false
		}
		if arr[0].Type() != fastjson.TypeNumber {
			return fieldValue(arr[0])
		}
		buf := make([]byte, len(arr))
		for i, e := range arr {
			n, err := e.Int()
			if err != nil || n < 0 || n > 255 {
				return "", false
			}
			buf[i] = byte(n)
		}
		return string(buf), true
	default:
		return "", false
	}
}
