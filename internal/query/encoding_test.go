package query

import (
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestJSONKeepsValuesWithSpaces(t *testing.T) {
	// The raw whitespace-joined form cannot carry "my unit.service" as one
	// value; the structured form can.
	q := New(Named(TagBoot), Filters{FilterUnit: {"my unit.service", "cron.service"}})

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Query
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal(%s): %v", data, err)
	}
	if !back.Equal(q) {
		t.Fatalf("got %v, want %v", back, q)
	}
}

func TestJSONRangeDocument(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := New(Range(since, time.Time{}), nil)

	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"interval":{"tag":"range","since":"2024-01-01T00:00:00Z"}}`
	if string(data) != want {
		t.Fatalf("json = %s, want %s", data, want)
	}
}

func TestJSONDecodeValidates(t *testing.T) {
	var q Query
	err := json.Unmarshal([]byte(`{"interval":{"tag":"today"},"filters":{"priority":["loud"]}}`), &q)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = json.Unmarshal([]byte(`{"interval":{"tag":"today"},"filters":{"priority":["err","crit"]}}`), &q)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for two priorities, got %v", err)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	src := `
interval:
  tag: range
  since: "2024-02-01T10:00:00Z"
  until: "2024-02-01T11:00:00Z"
filters:
  unit: [sshd.service, nginx.service]
  priority: [err]
  grep: ["   "]
`
	var q Query
	if err := yaml.Unmarshal([]byte(src), &q); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := q.Filter(FilterUnit); !slices.Equal(got, []string{"sshd.service", "nginx.service"}) {
		t.Errorf("unit = %q", got)
	}
	if q.Filters().Has(FilterGrep) {
		t.Errorf("blank grep should be dropped")
	}

	out, err := yaml.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "tag: range") {
		t.Errorf("yaml output missing tag:\n%s", out)
	}
	var back Query
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal(%s): %v", out, err)
	}
	if !back.Equal(q) {
		t.Fatalf("got %v, want %v", back, q)
	}
}
