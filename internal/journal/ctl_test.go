package journal

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mbrock/jview/internal/query"
)

const sampleJSON = `{"__CURSOR":"s=1;i=1","__REALTIME_TIMESTAMP":"1700000000123456","_BOOT_ID":"bbbb","PRIORITY":"3","SYSLOG_IDENTIFIER":"sshd","_PID":"812","MESSAGE":"error: connection reset"}
{"__CURSOR":"s=1;i=2","__REALTIME_TIMESTAMP":"1700000001000000","PRIORITY":"6","_COMM":"kernel","MESSAGE":[104,105,0,33]}

{"__CURSOR":"s=1;i=3","__REALTIME_TIMESTAMP":"1700000002000000","MESSAGE":"multi","TAG":["first","second"]}
`

func TestDecodeJSON(t *testing.T) {
	recs, err := DecodeJSON(strings.NewReader(sampleJSON))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	first := recs[0]
	if first.Cursor != "s=1;i=1" {
		t.Errorf("cursor = %q", first.Cursor)
	}
	if want := time.UnixMicro(1700000000123456); !first.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", first.Timestamp, want)
	}
	if first.Message != "error: connection reset" || first.Identifier() != "sshd" {
		t.Errorf("record = %+v", first)
	}
	if p, ok := first.Priority(); !ok || p != 3 {
		t.Errorf("priority = %d, %v", p, ok)
	}
	if _, ok := first.Fields["__CURSOR"]; ok {
		t.Error("address fields should not be copied into Fields")
	}

	if recs[1].Message != "hi\x00!" {
		t.Errorf("binary message = %q", recs[1].Message)
	}
	if recs[1].Identifier() != "kernel" {
		t.Errorf("identifier fallback = %q", recs[1].Identifier())
	}
	if recs[2].Fields["TAG"] != "first" {
		t.Errorf("multi-valued field = %q", recs[2].Fields["TAG"])
	}
}

func TestDecodeJSONBadLine(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader("{\"MESSAGE\":\"ok\"}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected error mentioning line 2, got %v", err)
	}
}

func TestCtlReaderCommand(t *testing.T) {
	c := &CtlReader{Directory: "/var/log/journal", Files: []string{"a.journal"}, User: true}
	q := query.New(query.Named(query.TagBoot), query.Filters{query.FilterUnit: {"sshd.service"}})

	got := c.Command(q, 50)
	want := []string{
		"journalctl", "--output=json", "--no-pager",
		"--directory=/var/log/journal", "--file=a.journal", "--user",
		"--lines=50",
		"--boot", "--unit=sshd.service",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("Command =\n %q\nwant\n %q", got, want)
	}
}

func TestCtlReaderRunsBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	dir := t.TempDir()
	fixture := filepath.Join(dir, "out.json")
	if err := os.WriteFile(fixture, []byte(sampleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	argsFile := filepath.Join(dir, "args")
	script := filepath.Join(dir, "journalctl")
	body := "#!/bin/sh\necho \"$@\" > " + argsFile + "\ncat " + fixture + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	c := &CtlReader{Path: script}
	q := query.New(query.Named(query.TagToday), nil)
	recs, err := c.Read(context.Background(), q, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(args)); got != "--output=json --no-pager --since=today" {
		t.Fatalf("journalctl args = %q", got)
	}
}

func TestCtlReaderReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "journalctl")
	body := "#!/bin/sh\necho 'Failed to add match: Invalid argument' >&2\nexit 1\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}

	c := &CtlReader{Path: script}
	_, err := c.Read(context.Background(), query.New(query.Named(query.TagToday), nil), 0)
	if err == nil || !strings.Contains(err.Error(), "Invalid argument") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}
