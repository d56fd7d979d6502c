// Package transform owns the geometric state of one target surface and renders it
// into a single CSS transform declaration.
//
// The Engine is single-owner: one goroutine (the host's session loop) mutates it.
// Every operation recomputes the style before returning, so Style() always reflects
// the latest State.
package transform

import "fmt"

// Target is the tag name whose elements receive the rendered style.
type Target string

const (
	TargetVideo Target = "video"
	TargetImage Target = "img"
)

// ParseTarget validates a tag name against the closed set of targets.
func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetVideo, TargetImage:
		return Target(s), nil
	default:
		return "", fmt.Errorf("unknown target tag name: %q (must be %q or %q)", s, TargetVideo, TargetImage)
	}
}

// State is the current transform of the target surface.
// Left and Top are pixels, Rotate and RotateY are degrees, the scales are factors.
type State struct {
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Rotate  float64 `json:"rotate"`
	RotateY float64 `json:"rotate_y"`
	Scale   float64 `json:"scale"`
	ScaleX  float64 `json:"scale_x"`
	ScaleY  float64 `json:"scale_y"`
}

// Identity returns the untransformed state.
func Identity() State {
	return State{Scale: 1.0, ScaleX: 1.0, ScaleY: 1.0}
}

// IsTransformed reports whether s differs from the identity tuple.
func (s State) IsTransformed() bool {
	return s != Identity()
}

// Settings configures increments and the target tag name.
// Increments are assumed positive; validation happens at the configuration boundary.
type Settings struct {
	TargetTagName     Target  `json:"target_tag_name"`
	ScaleIncrement    float64 `json:"scale_increment"`    // percent of the current scale
	RotateIncrement   float64 `json:"rotate_increment"`   // degrees
	PositionIncrement float64 `json:"position_increment"` // pixels
}

// DefaultSettings returns the shipped increments targeting videos.
func DefaultSettings() Settings {
	return Settings{
		TargetTagName:     TargetVideo,
		ScaleIncrement:    5,
		RotateIncrement:   5,
		PositionIncrement: 20,
	}
}

// SettingsPatch is a partial Settings update. Nil fields keep the previous value.
type SettingsPatch struct {
	TargetTagName     *Target
	ScaleIncrement    *float64
	RotateIncrement   *float64
	PositionIncrement *float64
}

// Apply returns s with every non-nil patch field replaced.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.TargetTagName != nil {
		s.TargetTagName = *p.TargetTagName
	}
	if p.ScaleIncrement != nil {
		s.ScaleIncrement = *p.ScaleIncrement
	}
	if p.RotateIncrement != nil {
		s.RotateIncrement = *p.RotateIncrement
	}
	if p.PositionIncrement != nil {
		s.PositionIncrement = *p.PositionIncrement
	}
	return s
}

// Patch returns a patch that sets every field of s.
func (s Settings) Patch() SettingsPatch {
	return SettingsPatch{
		TargetTagName:     &s.TargetTagName,
		ScaleIncrement:    &s.ScaleIncrement,
		RotateIncrement:   &s.RotateIncrement,
		PositionIncrement: &s.PositionIncrement,
	}
}

// TargetPatch is shorthand for a patch that only changes the target tag name.
func TargetPatch(t Target) SettingsPatch {
	return SettingsPatch{TargetTagName: &t}
}
