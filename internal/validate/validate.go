// Package validate scores extracted values for completeness.
//
// Scoring looks only at the shape of a value: whether it is a "not found" marker,
// suspiciously short, or substantive. It never judges whether the content is
// correct.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackzampolin/fieldfill/internal/schema"
)

// MinContentLength is the shortest trimmed value, in characters, that counts as complete.
const MinContentLength = 5

const (
	ConfidenceMissing  = 0.0
	ConfidencePartial  = 0.3
	ConfidenceComplete = 0.9
)

// Status is the completeness tier of a value.
type Status int

const (
	StatusMissing Status = iota
	StatusPartial
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusPartial:
		return "partial"
	case StatusComplete:
		return "complete"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Confidence returns the fixed confidence for the tier.
func (s Status) Confidence() float64 {
	switch s {
	case StatusComplete:
		return ConfidenceComplete
	case StatusPartial:
		return ConfidencePartial
	default:
		return ConfidenceMissing
	}
}

// NeedsRepair reports whether the tier qualifies a field for repair.
func (s Status) NeedsRepair() bool {
	return s == StatusMissing || s == StatusPartial
}

// Reason explains how a status was reached.
type Reason int

const (
	ReasonContent  Reason = iota // substantive value
	ReasonSentinel               // the field's sentinel or a schema empty value
	ReasonEmpty                  // the empty string
	ReasonShort                  // shorter than MinContentLength
)

func (r Reason) String() string {
	switch r {
	case ReasonContent:
		return "content"
	case ReasonSentinel:
		return "sentinel"
	case ReasonEmpty:
		return "empty"
	case ReasonShort:
		return "short"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Entry is the verdict for one field.
type Entry struct {
	Field      string  `json:"field" yaml:"field"`
	Value      string  `json:"value" yaml:"value"`
	Status     Status  `json:"status" yaml:"status"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Reason     Reason  `json:"reason" yaml:"reason"`
}

// Classify scores a single value of field f under schema s.
func Classify(s *schema.Schema, f *schema.Field, value string) Entry {
	e := Entry{Field: f.Name(), Value: value}

	switch {
	case value == "":
		e.Status, e.Reason = StatusMissing, ReasonEmpty
	case value == f.Sentinel() || s.IsEmptyValue(value):
		e.Status, e.Reason = StatusMissing, ReasonSentinel
	case utf8.RuneCountInString(strings.TrimSpace(value)) < MinContentLength:
		e.Status, e.Reason = StatusPartial, ReasonShort
	default:
		e.Status, e.Reason = StatusComplete, ReasonContent
	}
	e.Confidence = e.Status.Confidence()
	return e
}

// Validate scores every field of rec. Fields are read by name, so a record from
// another schema is treated as holding "" for fields it lacks.
func Validate(rec *schema.Record, s *schema.Schema) *Report {
	entries := make([]Entry, s.Len())
	for i, f := range s.Fields() {
		value, _ := rec.Get(f.Name())
		entries[i] = Classify(s, f, value)
	}
	return &Report{entries: entries}
}

// Report is an immutable snapshot of per-field verdicts in schema order.
type Report struct {
	entries []Entry
}

// Len returns the number of entries.
func (r *Report) Len() int { return len(r.entries) }

// Entries returns a copy of the entries in schema order.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Entry returns the verdict for the named field.
func (r *Report) Entry(field string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Field == field {
			return e, true
		}
	}
	return Entry{}, false
}

// Count returns how many entries have the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, e := range r.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// CompleteCount returns the number of complete fields.
func (r *Report) CompleteCount() int { return r.Count(StatusComplete) }

// Summary tallies a report.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Complete int `json:"complete" yaml:"complete"`
	Partial  int `json:"partial" yaml:"partial"`
	Missing  int `json:"missing" yaml:"missing"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d/%d complete (%d partial, %d missing)", s.Complete, s.Total, s.Partial, s.Missing)
}

// Summary returns per-status counts.
func (r *Report) Summary() Summary {
	return Summary{
		Total:    len(r.entries),
		Complete: r.Count(StatusComplete),
		Partial:  r.Count(StatusPartial),
		Missing:  r.Count(StatusMissing),
	}
}

// MarshalJSON writes the entries as an array.
func (r *Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.entries)
}

// MarshalYAML writes the entries as a sequence.
func (r *Report) MarshalYAML() (interface{}, error) {
	return r.entries, nil
}

// MissingOrPartial returns the names of fields needing repair, in schema order.
func MissingOrPartial(r *Report) []string {
	var names []string
	for _, e := range r.entries {
		if e.Status.NeedsRepair() {
			names = append(names, e.Field)
		}
	}
	return names
}
