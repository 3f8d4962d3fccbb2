package course

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed content/fluisterweek.yaml
var defaultContent []byte

// Load reads course content from YAML and validates it against the
// content schema. Content is supplied once at startup and immutable
// afterwards, so loading is strict: unknown fields and schema violations
// are errors here, unlike the lenient override path.
func Load(r io.Reader) (*Course, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Course
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode course content: %w", err)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the embedded seven-day fluisterweek course.
func Default() (*Course, error) {
	return Load(bytes.NewReader(defaultContent))
}
