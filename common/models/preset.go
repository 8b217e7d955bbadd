package models

import "fmt"

// Preset names a fixed image transform policy
type Preset string

const (
	PresetFeedThumbnail Preset = "feed_thumbnail"
	PresetFeedFullsize  Preset = "feed_fullsize"
	PresetAvatar        Preset = "avatar"
)

// PresetPolicy describes what a preset does to a decoded image.
// A zero Width/Height means the image passes through untouched.
type PresetPolicy struct {
	Width  int
	Height int
}

// Fill reports whether the policy crop-resizes to fixed dimensions
func (p PresetPolicy) Fill() bool {
	return p.Width > 0 && p.Height > 0
}

// presetPolicies must have an entry for every Preset constant
var presetPolicies = map[Preset]PresetPolicy{
	PresetAvatar:        {Width: 256, Height: 256},
	PresetFeedThumbnail: {Width: 512, Height: 512},
	PresetFeedFullsize:  {},
}

// ParsePreset validates a preset path segment
func ParsePreset(s string) (Preset, error) {
	p := Preset(s)
	if _, ok := presetPolicies[p]; !ok {
		return "", fmt.Errorf("unknown preset %q", s)
	}
	return p, nil
}

// Policy returns the transform policy bound to the preset
func (p Preset) Policy() (PresetPolicy, bool) {
	policy, ok := presetPolicies[p]
	return policy, ok
}

func (p Preset) String() string {
	return string(p)
}

// Presets lists every known preset
func Presets() []Preset {
	return []Preset{PresetFeedThumbnail, PresetFeedFullsize, PresetAvatar}
}
