package course

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Validate checks course content against the embedded CUE schema.
//
// This guards the startup path only: base content is authored by hand and
// a typo there should fail loudly, before the engine runs. Runtime
// overrides never pass through here; they degrade leniently instead.
func Validate(c *Course) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile content schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Course"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup #Course: %w", err)
	}

	val := ctx.Encode(c)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode course content: %w", err)
	}

	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("course content invalid: %w", err)
	}
	return nil
}
