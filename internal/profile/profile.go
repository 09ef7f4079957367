// Package profile persists named display profiles, one directory per
// profile holding profile.toml (metadata and run hooks) and displays.json
// (the captured layout).
package profile

import (
	"strings"
	"unicode"
)

// RunCommand is an external program started around a layout change. Args
// without a target is inert.
type RunCommand struct {
	Target string `toml:"target,omitempty" json:"target"`
	Args   string `toml:"args,omitempty" json:"args"`
}

// IsZero reports whether both target and args are empty.
func (c *RunCommand) IsZero() bool {
	return c == nil || (c.Target == "" && c.Args == "")
}

// Runnable reports whether the command has a target to launch.
func (c *RunCommand) Runnable() bool {
	return c != nil && strings.TrimSpace(c.Target) != ""
}

// RunSpec holds the hooks run before and after applying a layout.
type RunSpec struct {
	Before *RunCommand `toml:"before,omitempty" json:"before,omitempty"`
	After  *RunCommand `toml:"after,omitempty" json:"after,omitempty"`
}

// Config is the user-editable metadata of a profile.
type Config struct {
	Name        string  `toml:"name,omitempty" json:"name"`
	Description string  `toml:"description,omitempty" json:"description"`
	Icon        string  `toml:"icon,omitempty" json:"icon"`
	Run         RunSpec `toml:"run,omitempty" json:"run"`
}

// Normalize trims whitespace and drops hooks with neither target nor args.
func (c Config) Normalize() Config {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.Icon = strings.TrimSpace(c.Icon)
	c.Run.Before = normalizeCommand(c.Run.Before)
	c.Run.After = normalizeCommand(c.Run.After)
	return c
}

func normalizeCommand(c *RunCommand) *RunCommand {
	if c.IsZero() {
		return nil
	}
	out := RunCommand{Target: strings.TrimSpace(c.Target), Args: strings.TrimSpace(c.Args)}
	if out.IsZero() {
		return nil
	}
	return &out
}

// Clone returns a deep copy.
func (c Config) Clone() Config {
	if c.Run.Before != nil {
		b := *c.Run.Before
		c.Run.Before = &b
	}
	if c.Run.After != nil {
		a := *c.Run.After
		c.Run.After = &a
	}
	return c
}

// Profile is a stored profile. Config is nil for a raw profile whose
// metadata file is missing or unreadable.
type Profile struct {
	Name   string  `json:"name"`
	Config *Config `json:"config"`
}

// Windows device names cannot be used as directory names on any volume.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// Sanitize turns a user supplied name into a profile slug: lowercase,
// hyphens and whitespace become underscores, every other character that is
// not a letter or digit is dropped, and runs of underscores collapse. The
// result is stable under repeated application and may be empty.
func Sanitize(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "-", "_")

	var b strings.Builder
	lastUnderscore := true // suppresses leading underscores
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.TrimRight(b.String(), "_")
	if _, reserved := reservedNames[out]; reserved {
		out += "_profile"
	}
	return out
}
