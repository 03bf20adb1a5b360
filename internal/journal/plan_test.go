package journal

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/mbrock/jview/internal/query"
)

var testNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func testEnv() Env {
	boots := []string{"aaaa", "bbbb"}
	return Env{
		Now:      testNow,
		Location: time.UTC,
		Boot: func(offset int) (string, error) {
			i := len(boots) - 1 + offset
			if i < 0 || offset > 0 {
				return "", ErrNoBoot
			}
			return boots[i], nil
		},
	}
}

func build(t *testing.T, in query.IntervalInput, raw query.RawFilters) query.Query {
	t.Helper()
	q, err := query.Build(in, raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return q
}

func on(value string) query.RawFilter {
	return query.RawFilter{Enabled: true, Value: value}
}

func TestResolveNamedIntervals(t *testing.T) {
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		tag          string
		since, until time.Time
		boot         string
	}{
		{tag: query.TagLastHour, since: testNow.Add(-time.Hour)},
		{tag: query.TagToday, since: today},
		{tag: query.TagYesterday, since: today.AddDate(0, 0, -1), until: today.Add(-time.Microsecond)},
		{tag: query.TagBoot, boot: "bbbb"},
		{tag: query.TagPreviousBoot, boot: "aaaa"},
	}
	for _, tc := range cases {
		t.Run(tc.tag, func(t *testing.T) {
			p, err := Resolve(build(t, query.IntervalInput{Tag: tc.tag}, nil), testEnv())
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !p.Since.Equal(tc.since) || !p.Until.Equal(tc.until) {
				t.Fatalf("bounds = %v .. %v, want %v .. %v", p.Since, p.Until, tc.since, tc.until)
			}
			if tc.boot == "" {
				if len(p.Matches) != 0 {
					t.Fatalf("unexpected matches %v", p.Matches)
				}
				return
			}
			want := []Match{{Field: FieldBootID, Values: []string{tc.boot}}}
			if !slices.EqualFunc(p.Matches, want, matchEqual) {
				t.Fatalf("matches = %v, want %v", p.Matches, want)
			}
		})
	}
}

func TestResolveTodayUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	env := testEnv()
	env.Location = loc
	env.Now = time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC) // 21:00 on the 14th in loc

	p, err := Resolve(build(t, query.IntervalInput{Tag: query.TagToday}, nil), env)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := time.Date(2024, 3, 14, 0, 0, 0, 0, loc)
	if !p.Since.Equal(want) {
		t.Fatalf("since = %v, want %v", p.Since, want)
	}
}

func TestResolveBootWithoutLookup(t *testing.T) {
	_, err := Resolve(build(t, query.IntervalInput{Tag: query.TagBoot}, nil), Env{Now: testNow})
	if !errors.Is(err, ErrNoBoot) {
		t.Fatalf("expected ErrNoBoot, got %v", err)
	}
}

func TestResolveFilters(t *testing.T) {
	q := build(t, query.IntervalInput{Tag: query.TagRange, Since: "2024-03-01T00:00:00Z"}, query.RawFilters{
		query.FilterUnit:     on("sshd nginx.service"),
		query.FilterPriority: on("err"),
		query.FilterPID:      on("1 2"),
		query.FilterBootID:   on("6B9F5F0C-1D6C-4E0B-A3B0-7C4B0A2F1E11"),
	})
	p, err := Resolve(q, testEnv())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Match{
		{Field: "PRIORITY", Values: []string{"0", "1", "2", "3"}},
		{Field: "_BOOT_ID", Values: []string{"6b9f5f0c1d6c4e0ba3b07c4b0a2f1e11"}},
		{Field: "_PID", Values: []string{"1", "2"}},
		{Field: "_SYSTEMD_UNIT", Values: []string{"sshd.service", "nginx.service"}},
	}
	if !slices.EqualFunc(p.Matches, want, matchEqual) {
		t.Fatalf("matches =\n %v\nwant\n %v", p.Matches, want)
	}
	if !p.Since.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !p.Until.IsZero() {
		t.Fatalf("bounds = %v .. %v", p.Since, p.Until)
	}
}

func TestResolveUserScope(t *testing.T) {
	q := build(t, query.IntervalInput{Tag: query.TagToday}, query.RawFilters{
		query.FilterUnit:     on("pipewire"),
		query.FilterUserUnit: on("pipewire.service wireplumber.service"),
	})
	env := testEnv()
	env.UID = "1000"
	p, err := Resolve(q, env)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []Match{
		{Field: FieldUserUnit, Values: []string{"pipewire.service"}},
		{Field: FieldUID, Values: []string{"1000"}},
	}
	if !slices.EqualFunc(p.Matches, want, matchEqual) {
		t.Fatalf("matches =\n %v\nwant\n %v", p.Matches, want)
	}

	other := build(t, query.IntervalInput{Tag: query.TagToday}, query.RawFilters{query.FilterUID: on("0")})
	p, err = Resolve(other, env)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.Empty {
		t.Fatal("uid filter for another user should empty the plan")
	}
}

func TestResolveBootConflict(t *testing.T) {
	same := build(t, query.IntervalInput{Tag: query.TagBoot}, query.RawFilters{query.FilterBootID: on("bbbb")})
	p, err := Resolve(same, testEnv())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Empty {
		t.Fatal("matching boot should not empty the plan")
	}

	other := build(t, query.IntervalInput{Tag: query.TagBoot}, query.RawFilters{query.FilterBootID: on("aaaa")})
	p, err = Resolve(other, testEnv())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.Empty {
		t.Fatal("contradicting boots should empty the plan")
	}
	if p.Match(Record{Timestamp: testNow, Fields: map[string]string{FieldBootID: "aaaa"}}) {
		t.Fatal("empty plan matched a record")
	}
}

func TestResolveGrepSmartCase(t *testing.T) {
	lower := build(t, query.IntervalInput{Tag: query.TagBoot}, query.RawFilters{query.FilterGrep: on("disk full")})
	p, err := Resolve(lower, testEnv())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !p.Pattern.MatchString("DISK FULL on /var") {
		t.Error("lower-case pattern should ignore case")
	}

	mixed := build(t, query.IntervalInput{Tag: query.TagBoot}, query.RawFilters{query.FilterGrep: on("Disk")})
	p, err = Resolve(mixed, testEnv())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.Pattern.MatchString("disk") {
		t.Error("pattern with upper case should be case-sensitive")
	}

	bad := build(t, query.IntervalInput{Tag: query.TagBoot}, query.RawFilters{query.FilterGrep: on("(unclosed")})
	if _, err := Resolve(bad, testEnv()); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestPlanMatch(t *testing.T) {
	p := Plan{
		Since:   testNow.Add(-time.Hour),
		Until:   testNow,
		Matches: []Match{{Field: "_SYSTEMD_UNIT", Values: []string{"a.service", "b.service"}}},
	}
	rec := func(ts time.Time, unit string) Record {
		return Record{Timestamp: ts, Fields: map[string]string{"_SYSTEMD_UNIT": unit}}
	}

	if !p.Match(rec(testNow, "b.service")) {
		t.Error("upper bound should be inclusive")
	}
	if !p.Match(rec(p.Since, "a.service")) {
		t.Error("lower bound should be inclusive")
	}
	if p.Match(rec(testNow.Add(time.Second), "a.service")) {
		t.Error("matched entry after until")
	}
	if p.Match(rec(testNow, "c.service")) {
		t.Error("matched wrong unit")
	}
	if p.Match(Record{Timestamp: testNow, Fields: map[string]string{}}) {
		t.Error("matched entry without the field")
	}
}

func TestNormalizeBootID(t *testing.T) {
	cases := map[string]string{
		"6b9f5f0c-1d6c-4e0b-a3b0-7c4b0a2f1e11": "6b9f5f0c1d6c4e0ba3b07c4b0a2f1e11",
		"6B9F5F0C1D6C4E0BA3B07C4B0A2F1E11":     "6b9f5f0c1d6c4e0ba3b07c4b0a2f1e11",
		"NotAnID":                              "notanid",
	}
	for in, want := range cases {
		if got := NormalizeBootID(in); got != want {
			t.Errorf("NormalizeBootID(%q) = %q, want %q", in, got, want)
		}
	}
}

func matchEqual(a, b Match) bool {
	return a.Field == b.Field && slices.Equal(a.Values, b.Values)
}

func TestStartUsec(t *testing.T) {
	cases := []struct {
		since time.Time
		want  uint64
		ok    bool
	}{
		{since: time.Time{}},
		{since: time.Unix(-1, 500000000)},
		{since: time.Unix(0, 0)},
		{since: time.Unix(1700000000, 250000000), want: 1700000000250000, ok: true},
	}
	for _, tc := range cases {
		got, ok := startUsec(tc.since)
		if got != tc.want || ok != tc.ok {
			t.Errorf("startUsec(%v) = %d, %v; want %d, %v", tc.since, got, ok, tc.want, tc.ok)
		}
	}
}
