// Package options is the persisted configuration object: defaults, validation
// at the save boundary, restore from a stored snapshot and the preset label.
package options

import (
	"fmt"
	"math"

	"vtransform/internal/binding"
	"vtransform/internal/hotkey"
	"vtransform/internal/transform"
	"vtransform/internal/validation"
)

// Options is the stored configuration. JSON keys match the stored snapshot format.
type Options struct {
	AlwaysOn          hotkey.Mode        `json:"always_on"`
	Preset            string             `json:"preset"`
	Hotkeys           binding.Table      `json:"hotkeys"`
	DisableAlt        bool               `json:"disable_alt"`
	TransformSettings transform.Settings `json:"transform_settings"`
}

// Default returns the shipped options.
func Default() Options {
	return Options{
		AlwaysOn:          hotkey.DefaultMode,
		Preset:            binding.DefaultPresetName,
		Hotkeys:           binding.DefaultTable(),
		DisableAlt:        false,
		TransformSettings: transform.DefaultSettings(),
	}
}

// Clone returns a copy that shares no binding storage with o.
func (o Options) Clone() Options {
	o.Hotkeys = o.Hotkeys.Clone()
	return o
}

// DispatcherConfig is what a dispatcher derives from o.
func (o Options) DispatcherConfig() hotkey.Config {
	return hotkey.Config{
		AlwaysOn:   o.AlwaysOn,
		Bindings:   o.Hotkeys.Clone(),
		DisableAlt: o.DisableAlt,
		Transform:  o.TransformSettings.Patch(),
	}
}

// PresetLabel classifies the bindings against the shipped presets. Any
// always-on value other than the default makes the options custom.
func (o Options) PresetLabel() string {
	if o.AlwaysOn != hotkey.DefaultMode {
		return binding.CustomName
	}
	return binding.Classify(o.Hotkeys, binding.Presets())
}

// Validate checks every field that the engine and dispatcher assume correct.
func (o Options) Validate() error {
	if err := validateSettings(o.TransformSettings); err != nil {
		return err
	}
	if _, err := hotkey.ParseMode(string(o.AlwaysOn)); err != nil {
		return err
	}
	if _, err := o.Hotkeys.Validated(); err != nil {
		return err
	}
	return nil
}

func validateSettings(s transform.Settings) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"scale_increment", s.ScaleIncrement},
		{"rotate_increment", s.RotateIncrement},
		{"position_increment", s.PositionIncrement},
	} {
		if err := checkIncrement(f.name, f.v); err != nil {
			return err
		}
	}
	if _, err := transform.ParseTarget(string(s.TargetTagName)); err != nil {
		return validation.Wrap(validation.ReasonBadTarget, "target_tag_name", err)
	}
	return nil
}

func checkIncrement(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return validation.New(validation.ReasonBadNumber, "transform_settings."+field,
			"must be a positive number, got %v", v)
	}
	return nil
}

// Prepare turns edited options into what gets persisted: the edit is validated,
// the always-on value normalized, unset rows dropped and the preset label
// recomputed. o is not modified.
func Prepare(o Options) (Options, error) {
	if err := validateSettings(o.TransformSettings); err != nil {
		return Options{}, err
	}
	mode, err := hotkey.ParseMode(string(o.AlwaysOn))
	if err != nil {
		return Options{}, err
	}
	table, err := o.Hotkeys.Validated()
	if err != nil {
		return Options{}, err
	}
	out := o
	out.AlwaysOn = mode
	out.Hotkeys = table
	out.Preset = out.PresetLabel()
	return out, nil
}

// Resolve swaps in the shipped table when o names a built-in preset, so rows
// added to a preset reach users who never customized their bindings.
func Resolve(o Options) Options {
	if p, ok := binding.LookupPreset(o.Preset); ok {
		o.Hotkeys = p.Table
	}
	return o
}

// ResetToPreset installs the named preset with the default always-on value.
// The custom label and unknown names fall back to the default preset.
func ResetToPreset(o Options, name string) Options {
	p, ok := binding.LookupPreset(name)
	if !ok {
		p, _ = binding.LookupPreset(binding.DefaultPresetName)
	}
	o.Hotkeys = p.Table
	o.AlwaysOn = hotkey.DefaultMode
	o.Preset = o.PresetLabel()
	return o
}

// String is a short summary for logs.
func (o Options) String() string {
	return fmt.Sprintf("always_on=%s preset=%s hotkeys=%d disable_alt=%v target=%s",
		o.AlwaysOn, o.Preset, len(o.Hotkeys), o.DisableAlt, o.TransformSettings.TargetTagName)
}
