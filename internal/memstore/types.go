// Package memstore talks to the remote memory store over its JSON-RPC tool
// interface and defines the opaque memory record the rest of the pipeline
// consumes read-only.
package memstore

import (
	"encoding/json"
	"strconv"
	"time"
)

// FlexTime tolerates the store's two timestamp encodings: epoch seconds
// (possibly fractional) or an ISO-8601 string. Unparseable values decode to
// the zero FlexTime rather than failing the record.
type FlexTime struct {
	t     time.Time
	valid bool
}

// Time reports the parsed timestamp and whether one was present and valid.
func (f FlexTime) Time() (time.Time, bool) {
	return f.t, f.valid
}

// NewFlexTime wraps a concrete time, mainly for tests and fixtures.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{t: t, valid: true}
}

func (f *FlexTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}

	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		sec := int64(secs)
		nsec := int64((secs - float64(sec)) * 1e9)
		f.t = time.Unix(sec, nsec).UTC()
		f.valid = true
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return nil // tolerate junk per the never-throw contract
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, str); err == nil {
			f.t = t.UTC()
			f.valid = true
			return nil
		}
	}
	return nil
}

func (f FlexTime) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.t.Format(time.RFC3339))
}

// Metadata is the backend-attached envelope; only quality_score is used.
type Metadata struct {
	QualityScore *float64 `json:"quality_score,omitempty"`
}

// Memory is one stored record. Required fields are content_hash, content,
// and tags; everything else is optional and defaulted by the scorer.
type Memory struct {
	ContentHash  string    `json:"content_hash"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags"`
	MemoryType   string    `json:"memory_type,omitempty"`
	CreatedAt    FlexTime  `json:"created_at,omitempty"`
	CreatedAtISO string    `json:"created_at_iso,omitempty"`
	Metadata     *Metadata `json:"metadata,omitempty"`

	// Some store versions flatten quality_score to the top level.
	QualityScore *float64 `json:"quality_score,omitempty"`
}

// CreatedTime resolves created_at with created_at_iso as fallback.
func (m Memory) CreatedTime() (time.Time, bool) {
	if t, ok := m.CreatedAt.Time(); ok {
		return t, true
	}
	if m.CreatedAtISO != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, m.CreatedAtISO); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// Quality returns the backend-supplied quality score if the record carries
// one, preferring the metadata envelope over the flattened field.
func (m Memory) Quality() (float64, bool) {
	if m.Metadata != nil && m.Metadata.QualityScore != nil {
		return *m.Metadata.QualityScore, true
	}
	if m.QualityScore != nil {
		return *m.QualityScore, true
	}
	return 0, false
}
