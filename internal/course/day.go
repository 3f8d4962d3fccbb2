// Package course holds the fluisterweek course content model: base day
// records, admin-supplied overrides, the merge that combines them, and
// embed-URL derivation for hosted audio and video.
package course

// DataVersion is the compiled-in version of the base course content.
// When the marker persisted alongside stored overrides does not match,
// the overrides are discarded (forward-compat escape hatch).
const DataVersion = "2024-06-01"

// MaxExtraExercises bounds the number of extra exercises per day.
// Longer lists are truncated at merge time, oldest entries first.
const MaxExtraExercises = 3

// DisplayType tags how an extra exercise is presented.
type DisplayType string

const (
	// DisplayDownload renders the exercise as a download link.
	DisplayDownload DisplayType = "download"
	// DisplayPlayer renders the exercise as an inline audio player.
	DisplayPlayer DisplayType = "player"
)

// ExtraExercise is an optional practice attached to a day.
//
// A player exercise needs something playable: raw embed markup, an
// explicit embed URL, or a source URL an embed resolver recognizes.
// Entries that satisfy none of these are excluded at merge time.
type ExtraExercise struct {
	Title       string      `json:"title" yaml:"title"`
	URL         string      `json:"url,omitempty" yaml:"url,omitempty"`
	EmbedURL    string      `json:"embedUrl,omitempty" yaml:"embedUrl,omitempty"`
	EmbedHTML   string      `json:"embedHtml,omitempty" yaml:"embedHtml,omitempty"`
	DisplayType DisplayType `json:"displayType,omitempty" yaml:"displayType,omitempty"`
}

// Day is one day of course content. Base days are loaded once at startup
// and are immutable; effective days are produced by merging an override
// on top of a base day.
type Day struct {
	Title          string          `json:"title" yaml:"title"`
	Subtitle       string          `json:"subtitle" yaml:"subtitle"`
	Intro          string          `json:"intro" yaml:"intro"`
	Duration       string          `json:"duration" yaml:"duration"`
	Focus          string          `json:"focus" yaml:"focus"`
	Highlight      string          `json:"highlight" yaml:"highlight"`
	VideoURL       string          `json:"videoUrl" yaml:"videoUrl"`
	Intention      string          `json:"intention" yaml:"intention"`
	Steps          []string        `json:"steps" yaml:"steps"`
	Reflection     string          `json:"reflection" yaml:"reflection"`
	ExtraExercises []ExtraExercise `json:"extraExercises,omitempty" yaml:"extraExercises,omitempty"`
}

// Course is an ordered, fixed-length sequence of days. The length is a
// parameter of the content, not of the engine.
type Course struct {
	Days []Day `json:"days" yaml:"days"`
}

// Len returns the number of days.
func (c *Course) Len() int {
	return len(c.Days)
}
