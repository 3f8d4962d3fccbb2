package course

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Override is a partial patch for one day's content. A nil field leaves
// the base value untouched; a present field replaces it wholesale (array
// fields are never merged element-wise).
//
// Overrides come from the admin surface via the external store, so the
// shape is lenient: extra exercises accept both the structured record and
// the legacy bare-URL string; malformed entries are dropped at merge time
// with a diagnostic, never an error.
type Override struct {
	Title      *string `json:"title,omitempty"`
	Subtitle   *string `json:"subtitle,omitempty"`
	Intro      *string `json:"intro,omitempty"`
	Duration   *string `json:"duration,omitempty"`
	Focus      *string `json:"focus,omitempty"`
	Highlight  *string `json:"highlight,omitempty"`
	VideoURL   *string `json:"videoUrl,omitempty"`
	Intention  *string `json:"intention,omitempty"`
	Reflection *string `json:"reflection,omitempty"`

	// Steps replaces the base step list wholesale when non-nil.
	Steps []string `json:"steps,omitempty"`

	// ExtraExercises replaces the base list wholesale when non-nil.
	ExtraExercises []RawExercise `json:"extraExercises,omitempty"`
}

// RawExercise is the lenient wire form of an extra exercise: either a
// structured record or a legacy bare URL string (coerced to a download
// entry). Entries that are neither are flagged invalid and excluded at
// merge time.
type RawExercise struct {
	Exercise ExtraExercise
	Invalid  bool
}

// UnmarshalJSON never fails: unparsable entries are marked Invalid so the
// merge can drop them with a diagnostic instead of rejecting the whole
// override record.
func (r *RawExercise) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		r.Invalid = true
		return nil
	}

	var legacy string
	if err := json.Unmarshal(trimmed, &legacy); err == nil {
		r.Exercise = ExtraExercise{URL: legacy, DisplayType: DisplayDownload}
		return nil
	}

	var ex ExtraExercise
	if err := json.Unmarshal(trimmed, &ex); err == nil {
		r.Exercise = ex
		return nil
	}

	r.Invalid = true
	return nil
}

// MarshalJSON writes the structured form; the legacy string shape is
// read-only compatibility.
func (r RawExercise) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Exercise)
}

// NewRawExercises wraps structured exercises for use in an Override.
func NewRawExercises(exercises []ExtraExercise) []RawExercise {
	if exercises == nil {
		return nil
	}
	raw := make([]RawExercise, len(exercises))
	for i, ex := range exercises {
		raw[i] = RawExercise{Exercise: ex}
	}
	return raw
}

// Overrides maps day index to the override stored for that day.
type Overrides map[int]Override

// ParseOverrides decodes the stored override map. Callers treat an error
// as "no overrides" per the graceful-degradation stance.
func ParseOverrides(raw []byte) (Overrides, error) {
	if len(raw) == 0 {
		return Overrides{}, nil
	}
	var out Overrides
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	if out == nil {
		out = Overrides{}
	}
	return out, nil
}

// MarshalOverrides encodes the override map for the external store.
func MarshalOverrides(ovs Overrides) ([]byte, error) {
	if ovs == nil {
		ovs = Overrides{}
	}
	data, err := json.Marshal(ovs)
	if err != nil {
		return nil, fmt.Errorf("marshal overrides: %w", err)
	}
	return data, nil
}
