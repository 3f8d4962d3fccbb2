package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseDay() Day {
	return Day{
		Title:      "Dag 1",
		Subtitle:   "Aankomen",
		Intro:      "Welkom.",
		Duration:   "10 min",
		Focus:      "Adem",
		VideoURL:   "https://youtu.be/abc123",
		Intention:  "Zacht beginnen",
		Steps:      []string{"Ga zitten", "Sluit je ogen"},
		Reflection: "Wat viel op?",
	}
}

func TestMerge_EmptyOverrideIsIdentity(t *testing.T) {
	base := baseDay()

	merged, diags := Merge(base, Override{})

	assert.Empty(t, diags)
	assert.Equal(t, base, merged)
}

func TestMerge_OverrideFieldsWinAndAreCleaned(t *testing.T) {
	merged, diags := Merge(baseDay(), Override{
		Title:    strPtr("  Dag één  "),
		VideoURL: strPtr("  https://youtu.be/xyz  "),
	})

	assert.Empty(t, diags)
	assert.Equal(t, "Dag één", merged.Title)
	assert.Equal(t, "https://youtu.be/xyz", merged.VideoURL)
	// Untouched fields keep the base value.
	assert.Equal(t, "Aankomen", merged.Subtitle)
	assert.Equal(t, "Adem", merged.Focus)
	assert.Equal(t, []string{"Ga zitten", "Sluit je ogen"}, merged.Steps)
}

func TestMerge_StepsReplaceWholesaleAndDropBlanks(t *testing.T) {
	merged, diags := Merge(baseDay(), Override{
		Steps: []string{"  Eerste stap  ", "", "   ", "Tweede stap"},
	})

	assert.Empty(t, diags)
	assert.Equal(t, []string{"Eerste stap", "Tweede stap"}, merged.Steps)
}

func TestMerge_BaseExtrasSurviveWithoutOverride(t *testing.T) {
	base := baseDay()
	base.ExtraExercises = []ExtraExercise{
		{Title: "Bodyscan", URL: "https://example.com/a.mp3", DisplayType: DisplayDownload},
	}

	merged, diags := Merge(base, Override{})

	assert.Empty(t, diags)
	assert.Equal(t, base.ExtraExercises, merged.ExtraExercises)
}

func TestMerge_OverrideExtrasReplaceWholesale(t *testing.T) {
	base := baseDay()
	base.ExtraExercises = []ExtraExercise{
		{Title: "Oud", URL: "https://example.com/oud.mp3", DisplayType: DisplayDownload},
	}

	merged, diags := Merge(base, Override{
		ExtraExercises: NewRawExercises([]ExtraExercise{
			{Title: "Nieuw", URL: "https://example.com/nieuw.mp3", DisplayType: DisplayDownload},
		}),
	})

	assert.Empty(t, diags)
	require.Len(t, merged.ExtraExercises, 1)
	assert.Equal(t, "Nieuw", merged.ExtraExercises[0].Title)
}

func TestSanitizeExercises_LegacyStringBecomesDownload(t *testing.T) {
	var raw RawExercise
	require.NoError(t, raw.UnmarshalJSON([]byte(`"https://example.com/oefening.pdf"`)))

	out, diags := SanitizeExercises([]RawExercise{raw}, MaxExtraExercises)

	assert.Empty(t, diags)
	require.Len(t, out, 1)
	assert.Equal(t, DisplayDownload, out[0].DisplayType)
	assert.Equal(t, "https://example.com/oefening.pdf", out[0].URL)
}

func TestSanitizeExercises_PlayerEmbedMarkupWins(t *testing.T) {
	out, diags := SanitizeExercises(NewRawExercises([]ExtraExercise{{
		Title:       "Met markup",
		EmbedHTML:   `<iframe src="https://player.example.com/x"></iframe>`,
		EmbedURL:    "https://player.example.com/should-be-cleared",
		DisplayType: DisplayPlayer,
	}}), MaxExtraExercises)

	assert.Empty(t, diags)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].EmbedHTML)
	assert.Empty(t, out[0].EmbedURL, "embed markup wins over embed URL")
}

func TestSanitizeExercises_PlayerDerivesEmbedFromSource(t *testing.T) {
	out, diags := SanitizeExercises(NewRawExercises([]ExtraExercise{{
		Title:       "SoundCloud",
		URL:         "https://soundcloud.com/fluisterweek/dag-1",
		DisplayType: DisplayPlayer,
	}}), MaxExtraExercises)

	assert.Empty(t, diags)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].EmbedURL, "w.soundcloud.com/player")
}

func TestSanitizeExercises_PlayerWithoutEmbedDropped(t *testing.T) {
	out, diags := SanitizeExercises(NewRawExercises([]ExtraExercise{{
		Title:       "Onbekende host",
		URL:         "https://example.com/audio.mp3",
		DisplayType: DisplayPlayer,
	}}), MaxExtraExercises)

	assert.Empty(t, out)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagNoPlayableEmbed, diags[0].Code)
	assert.Equal(t, 0, diags[0].Index)
}

func TestSanitizeExercises_DownloadWithoutURLDropped(t *testing.T) {
	out, diags := SanitizeExercises(NewRawExercises([]ExtraExercise{{
		Title:       "Leeg",
		DisplayType: DisplayDownload,
	}}), MaxExtraExercises)

	assert.Empty(t, out)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagMissingURL, diags[0].Code)
}

func TestSanitizeExercises_MalformedEntrySkippedOthersKept(t *testing.T) {
	var bad RawExercise
	require.NoError(t, bad.UnmarshalJSON([]byte(`42`)))
	good := RawExercise{Exercise: ExtraExercise{
		Title: "Goed", URL: "https://example.com/a.pdf", DisplayType: DisplayDownload,
	}}

	out, diags := SanitizeExercises([]RawExercise{bad, good}, MaxExtraExercises)

	require.Len(t, out, 1)
	assert.Equal(t, "Goed", out[0].Title)
	require.Len(t, diags, 1)
	assert.Equal(t, DiagMalformedEntry, diags[0].Code)
	assert.Equal(t, 0, diags[0].Index)
}

func TestSanitizeExercises_TruncatesBeyondMax(t *testing.T) {
	raw := NewRawExercises([]ExtraExercise{
		{Title: "1", URL: "https://example.com/1", DisplayType: DisplayDownload},
		{Title: "2", URL: "https://example.com/2", DisplayType: DisplayDownload},
		{Title: "3", URL: "https://example.com/3", DisplayType: DisplayDownload},
		{Title: "4", URL: "https://example.com/4", DisplayType: DisplayDownload},
	})

	out, diags := SanitizeExercises(raw, MaxExtraExercises)

	require.Len(t, out, MaxExtraExercises)
	assert.Equal(t, "3", out[2].Title, "truncation keeps the earliest entries")
	require.Len(t, diags, 1)
	assert.Equal(t, DiagTruncated, diags[0].Code)
	assert.Equal(t, -1, diags[0].Index)
}

func TestSanitizeExercises_ExactlyMaxIsClean(t *testing.T) {
	raw := NewRawExercises([]ExtraExercise{
		{Title: "1", URL: "https://example.com/1", DisplayType: DisplayDownload},
		{Title: "2", URL: "https://example.com/2", DisplayType: DisplayDownload},
		{Title: "3", URL: "https://example.com/3", DisplayType: DisplayDownload},
	})

	out, diags := SanitizeExercises(raw, MaxExtraExercises)

	assert.Len(t, out, MaxExtraExercises)
	assert.Empty(t, diags)
}

func TestSanitizeExercises_EmptyStaysNil(t *testing.T) {
	out, diags := SanitizeExercises(nil, MaxExtraExercises)
	assert.Nil(t, out)
	assert.Nil(t, diags)
}

func strPtr(s string) *string { return &s }
