package course

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TestMerge_GoldenDay pins the full merged-day shape, including text
// cleanup and embed derivation, against a golden file.
func TestMerge_GoldenDay(t *testing.T) {
	base := Day{
		Title:      "Dag 1",
		Subtitle:   "Aankomen",
		Intro:      "Welkom.",
		Duration:   "10 min",
		Focus:      "Adem",
		Highlight:  "Stilte",
		VideoURL:   "https://youtu.be/abc123",
		Intention:  "Zacht beginnen",
		Steps:      []string{"Ga zitten", "Sluit je ogen"},
		Reflection: "Wat viel op?",
	}
	ov := Override{
		Title: strPtr("  Dag één  "),
		ExtraExercises: NewRawExercises([]ExtraExercise{{
			Title:       "Luisteroefening",
			URL:         "https://soundcloud.com/fluisterweek/dag-1",
			DisplayType: DisplayPlayer,
		}}),
	}

	merged, diags := Merge(base, ov)
	require.Empty(t, diags)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	require.NoError(t, enc.Encode(merged))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "merged_day", buf.Bytes())
}
