package query

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the structured form of a Query. Filter values stay lists, so
// values containing whitespace survive, unlike the raw whitespace-joined
// form.
type document struct {
	Interval intervalDoc         `json:"interval" yaml:"interval"`
	Filters  map[string][]string `json:"filters,omitempty" yaml:"filters,omitempty"`
}

type intervalDoc struct {
	Tag   string `json:"tag" yaml:"tag"`
	Since string `json:"since,omitempty" yaml:"since,omitempty"`
	Until string `json:"until,omitempty" yaml:"until,omitempty"`
}

func (q Query) document() document {
	raw := ToRawInputs(q)
	var filters map[string][]string
	if len(q.filters) > 0 {
		filters = q.filters.Clone()
	}
	return document{
		Interval: intervalDoc{
			Tag:   raw.Interval.Tag,
			Since: raw.Interval.Since,
			Until: raw.Interval.Until,
		},
		Filters: filters,
	}
}

func (d document) query() (Query, error) {
	in := IntervalInput{Tag: d.Interval.Tag, Since: d.Interval.Since, Until: d.Interval.Until}
	return Builder{}.FromValues(in, d.Filters)
}

// MarshalJSON implements json.Marshaler.
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.document())
}

// UnmarshalJSON implements json.Unmarshaler. The decoded query is
// validated like user input.
func (q *Query) UnmarshalJSON(data []byte) error {
	var d document
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}
	parsed, err := d.query()
	if err != nil {
		return fmt.Errorf("decoding query: %w", err)
	}
	*q = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (q Query) MarshalYAML() (any, error) {
	return q.document(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (q *Query) UnmarshalYAML(node *yaml.Node) error {
	var d document
	if err := node.Decode(&d); err != nil {
		return err
	}
	parsed, err := d.query()
	if err != nil {
		return fmt.Errorf("decoding query at line %d: %w", node.Line, err)
	}
	*q = parsed
	return nil
}
