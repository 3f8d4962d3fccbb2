package course

import (
	"net/url"
	"regexp"
	"strings"
)

// EmbedResolver derives an embeddable player URL from a source URL.
// Resolvers are narrow, pattern-keyed strategies; new audio or video hosts
// are supported by adding a resolver, not by touching callers.
type EmbedResolver interface {
	// Name identifies the resolver in logs and diagnostics.
	Name() string
	// Resolve returns the embed URL for sourceURL. ok is false when the
	// resolver does not recognize the URL.
	Resolve(sourceURL string) (embedURL string, ok bool)
}

// Resolvers is an ordered resolver chain; the first match wins.
type Resolvers []EmbedResolver

// DefaultResolvers recognizes the hosts the course content uses.
var DefaultResolvers = Resolvers{soundCloudResolver{}, youTubeResolver{}}

// Derive returns the embed URL for sourceURL, or "" when no resolver
// matches. An empty result is not an error; the caller decides whether a
// missing embed is acceptable.
func (rs Resolvers) Derive(sourceURL string) string {
	for _, r := range rs {
		if embed, ok := r.Resolve(sourceURL); ok {
			return embed
		}
	}
	return ""
}

// DeriveEmbed derives an embed URL using the default resolver chain.
func DeriveEmbed(sourceURL string) string {
	return DefaultResolvers.Derive(sourceURL)
}

// VideoEmbedURL returns the embeddable form of a day's video URL.
// Unrecognized URLs are returned unchanged so a presenter can still try
// to frame them directly.
func VideoEmbedURL(sourceURL string) string {
	if embed := DeriveEmbed(sourceURL); embed != "" {
		return embed
	}
	return sourceURL
}

// soundCloudResolver builds the SoundCloud widget player URL.
type soundCloudResolver struct{}

func (soundCloudResolver) Name() string { return "soundcloud" }

func (soundCloudResolver) Resolve(sourceURL string) (string, bool) {
	if sourceURL == "" || !strings.Contains(sourceURL, "soundcloud.com") {
		return "", false
	}
	escaped := strings.ReplaceAll(url.QueryEscape(sourceURL), "+", "%20")
	return "https://w.soundcloud.com/player/?url=" + escaped +
		"&color=%23b47d6b&inverse=false&auto_play=false&show_user=true&visual=false", true
}

// youTubeResolver maps watch and short-link URLs onto the /embed/ form.
type youTubeResolver struct{}

var (
	youTubeWatchID = regexp.MustCompile(`[?&]v=([^&]+)`)
	youTubeShortID = regexp.MustCompile(`youtu\.be/(.+)$`)
)

func (youTubeResolver) Name() string { return "youtube" }

func (youTubeResolver) Resolve(sourceURL string) (string, bool) {
	if sourceURL == "" {
		return "", false
	}
	if !strings.Contains(sourceURL, "youtube.com") && !strings.Contains(sourceURL, "youtu.be") {
		return "", false
	}
	// Already an embed URL.
	if strings.Contains(sourceURL, "embed") {
		return sourceURL, true
	}
	id := sourceURL
	if m := youTubeWatchID.FindStringSubmatch(sourceURL); m != nil {
		id = m[1]
	} else if m := youTubeShortID.FindStringSubmatch(sourceURL); m != nil {
		id = m[1]
	}
	return "https://www.youtube.com/embed/" + id, true
}
