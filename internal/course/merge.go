package course

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DiagCode categorizes merge diagnostics.
type DiagCode string

const (
	// DiagMalformedEntry marks an extra exercise that could not be parsed.
	DiagMalformedEntry DiagCode = "MALFORMED_ENTRY"
	// DiagMissingURL marks a download exercise with no source URL.
	DiagMissingURL DiagCode = "MISSING_URL"
	// DiagNoPlayableEmbed marks a player exercise with no embed markup, no
	// embed URL, and a source URL no resolver recognizes.
	DiagNoPlayableEmbed DiagCode = "NO_PLAYABLE_EMBED"
	// DiagTruncated marks extra exercises dropped beyond the maximum.
	DiagTruncated DiagCode = "TRUNCATED"
)

// Diagnostic reports a correction applied while merging an override.
// Corrections are lenient by design (the merged day is always usable);
// diagnostics exist so callers that care can surface a warning.
type Diagnostic struct {
	Code   DiagCode
	Field  string
	Index  int // entry index within Field, -1 when not applicable
	Detail string
}

func (d Diagnostic) String() string {
	if d.Index >= 0 {
		return fmt.Sprintf("%s: %s[%d]: %s", d.Code, d.Field, d.Index, d.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", d.Code, d.Field, d.Detail)
}

// Merge combines a base day with an override into the effective day.
//
// The merge is right-biased and field-wise: a present override field wins,
// array fields replace wholesale. Extra exercises are normalized and
// bounded afterwards, whether they came from the override or the base.
// Merging an empty override into a well-formed base day yields the base
// day unchanged.
func Merge(base Day, ov Override) (Day, []Diagnostic) {
	merged := base

	if ov.Title != nil {
		merged.Title = cleanText(*ov.Title)
	}
	if ov.Subtitle != nil {
		merged.Subtitle = cleanText(*ov.Subtitle)
	}
	if ov.Intro != nil {
		merged.Intro = cleanText(*ov.Intro)
	}
	if ov.Duration != nil {
		merged.Duration = cleanText(*ov.Duration)
	}
	if ov.Focus != nil {
		merged.Focus = cleanText(*ov.Focus)
	}
	if ov.Highlight != nil {
		merged.Highlight = cleanText(*ov.Highlight)
	}
	if ov.VideoURL != nil {
		merged.VideoURL = strings.TrimSpace(*ov.VideoURL)
	}
	if ov.Intention != nil {
		merged.Intention = cleanText(*ov.Intention)
	}
	if ov.Reflection != nil {
		merged.Reflection = cleanText(*ov.Reflection)
	}
	if ov.Steps != nil {
		steps := make([]string, 0, len(ov.Steps))
		for _, step := range ov.Steps {
			if s := cleanText(step); s != "" {
				steps = append(steps, s)
			}
		}
		merged.Steps = steps
	}

	raw := NewRawExercises(base.ExtraExercises)
	if ov.ExtraExercises != nil {
		raw = ov.ExtraExercises
	}
	var diags []Diagnostic
	merged.ExtraExercises, diags = SanitizeExercises(raw, MaxExtraExercises)

	return merged, diags
}

// SanitizeExercises normalizes an exercise list: legacy strings become
// download entries, player entries get a derived embed URL when possible,
// entries with nothing to show are dropped, and the result is truncated
// to max entries. Every correction produces a diagnostic.
//
// A nil or empty result stays nil so that sanitizing a day without extras
// is the identity.
func SanitizeExercises(raw []RawExercise, max int) ([]ExtraExercise, []Diagnostic) {
	if len(raw) == 0 {
		return nil, nil
	}

	var (
		out   []ExtraExercise
		diags []Diagnostic
	)
	for i, r := range raw {
		if r.Invalid {
			diags = append(diags, Diagnostic{
				Code:   DiagMalformedEntry,
				Field:  "extraExercises",
				Index:  i,
				Detail: "entry is neither a record nor a URL string",
			})
			continue
		}

		ex, diag := sanitizeExercise(r.Exercise)
		if diag != nil {
			diag.Index = i
			diags = append(diags, *diag)
			continue
		}
		out = append(out, ex)
	}

	if max >= 0 && len(out) > max {
		diags = append(diags, Diagnostic{
			Code:   DiagTruncated,
			Field:  "extraExercises",
			Index:  -1,
			Detail: fmt.Sprintf("%d entries dropped beyond maximum of %d", len(out)-max, max),
		})
		out = out[:max]
	}
	if len(out) == 0 {
		return nil, diags
	}
	return out, diags
}

// sanitizeExercise normalizes one entry. A nil diagnostic means the entry
// is kept; a non-nil diagnostic means it is dropped.
func sanitizeExercise(ex ExtraExercise) (ExtraExercise, *Diagnostic) {
	ex.Title = cleanText(ex.Title)
	ex.URL = strings.TrimSpace(ex.URL)
	ex.EmbedURL = strings.TrimSpace(ex.EmbedURL)
	ex.EmbedHTML = strings.TrimSpace(ex.EmbedHTML)

	if ex.DisplayType != DisplayPlayer {
		ex.DisplayType = DisplayDownload
	}

	switch ex.DisplayType {
	case DisplayPlayer:
		// Raw embed markup wins over an embed URL; without either, try to
		// derive an embed from the source URL.
		if ex.EmbedHTML != "" {
			ex.EmbedURL = ""
		} else if ex.EmbedURL == "" {
			ex.EmbedURL = DeriveEmbed(ex.URL)
		}
		if ex.EmbedHTML == "" && ex.EmbedURL == "" {
			return ExtraExercise{}, &Diagnostic{
				Code:   DiagNoPlayableEmbed,
				Field:  "extraExercises",
				Detail: "player entry has no embed markup, no embed URL, and an unrecognized source URL",
			}
		}

	case DisplayDownload:
		ex.EmbedHTML = ""
		if ex.URL == "" {
			return ExtraExercise{}, &Diagnostic{
				Code:   DiagMissingURL,
				Field:  "extraExercises",
				Detail: "download entry has no source URL",
			}
		}
	}

	return ex, nil
}

// cleanText trims whitespace and NFC-normalizes admin-entered text so the
// same visible string always compares and stores identically.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
