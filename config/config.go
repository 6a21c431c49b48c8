// Package config loads the ACE's runtime security profile (§6.4): which
// rule sources are enabled and the full_access fallback policy.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the three independent booleans §6.4 defines. Pointers
// distinguish "absent from the file" from "explicitly false" so defaults
// apply only when a key is genuinely missing.
type Profile struct {
	UseARA     *bool `yaml:"use_ara"`
	UseARF     *bool `yaml:"use_arf"`
	FullAccess *bool `yaml:"full_access"`
}

// Default returns the profile's documented defaults: use_ara=true,
// use_arf=true, full_access=false.
func Default() Profile {
	t, f := true, false
	return Profile{UseARA: &t, UseARF: &t, FullAccess: &f}
}

func (p Profile) useARA() bool     { return p.UseARA == nil || *p.UseARA }
func (p Profile) useARF() bool     { return p.UseARF == nil || *p.UseARF }
func (p Profile) fullAccess() bool { return p.FullAccess != nil && *p.FullAccess }

// UseARAEnabled reports whether ARA-M probing is enabled.
func (p Profile) UseARAEnabled() bool { return p.useARA() }

// UseARFEnabled reports whether ARF probing is enabled.
func (p Profile) UseARFEnabled() bool { return p.useARF() }

// FullAccessRequested reports the configured full_access fallback, before
// the enforcer applies its UICC/hard-error overrides.
func (p Profile) FullAccessRequested() bool { return p.fullAccess() }

// Load reads and validates a YAML profile from path, rejecting unknown keys.
func Load(path string) (Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	profile := Default()
	if err := dec.Decode(&profile); err != nil {
		return Profile{}, fmt.Errorf("parse config yaml: %w", err)
	}
	return profile, nil
}
