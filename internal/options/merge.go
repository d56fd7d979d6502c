package options

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"vtransform/internal/binding"
	"vtransform/internal/hotkey"
	"vtransform/internal/op"
	"vtransform/internal/transform"
	"vtransform/internal/validation"
)

// Merge overlays the keys present in the stored snapshot raw onto base.
// Keys absent from raw keep base's value; transform_settings merges field by
// field. Unknown keys are ignored. base is not modified.
func Merge(base Options, raw []byte) (Options, error) {
	out := base.Clone()
	if len(raw) == 0 {
		return out, nil
	}
	if !gjson.ValidBytes(raw) {
		return Options{}, validation.New(validation.ReasonBadSnapshot, "", "snapshot is not valid JSON")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Options{}, validation.New(validation.ReasonBadSnapshot, "", "snapshot must be a JSON object")
	}

	if r := doc.Get("always_on"); r.Exists() {
		if r.Type != gjson.String {
			return Options{}, validation.New(validation.ReasonAlwaysOn, "always_on", "must be a string, got %s", r.Raw)
		}
		m, err := hotkey.ParseMode(r.Str)
		if err != nil {
			return Options{}, err
		}
		out.AlwaysOn = m
	}

	if r := doc.Get("preset"); r.Exists() {
		if r.Type != gjson.String {
			return Options{}, validation.New(validation.ReasonBadSnapshot, "preset", "must be a string, got %s", r.Raw)
		}
		out.Preset = r.Str
	}

	if r := doc.Get("hotkeys"); r.Exists() {
		t, err := decodeTable(r)
		if err != nil {
			return Options{}, err
		}
		out.Hotkeys = t
	}

	if r := doc.Get("disable_alt"); r.Exists() {
		if r.Type != gjson.True && r.Type != gjson.False {
			return Options{}, validation.New(validation.ReasonBadSnapshot, "disable_alt", "must be a boolean, got %s", r.Raw)
		}
		out.DisableAlt = r.Bool()
	}

	if r := doc.Get("transform_settings"); r.Exists() {
		if !r.IsObject() {
			return Options{}, validation.New(validation.ReasonBadSnapshot, "transform_settings", "must be an object")
		}
		p, err := decodeSettingsPatch(r)
		if err != nil {
			return Options{}, err
		}
		out.TransformSettings = out.TransformSettings.Apply(p)
	}

	return out, nil
}

func decodeTable(r gjson.Result) (binding.Table, error) {
	if r.Type == gjson.Null {
		return binding.Table{}, nil
	}
	if !r.IsArray() {
		return nil, validation.New(validation.ReasonBadSnapshot, "hotkeys", "must be an array")
	}
	var t binding.Table
	if err := json.Unmarshal([]byte(r.Raw), &t); err != nil {
		var unknown op.ErrUnknown
		if errors.As(err, &unknown) {
			return nil, validation.Wrap(validation.ReasonBadFunction, "hotkeys", err)
		}
		return nil, validation.Wrap(validation.ReasonBadSnapshot, "hotkeys", err)
	}
	if t == nil {
		t = binding.Table{}
	}
	return t, nil
}

// DecodeSettingsPatch reads a partial transform settings object such as
// {"target_tag_name":"img"} into a patch.
func DecodeSettingsPatch(raw []byte) (transform.SettingsPatch, error) {
	if !gjson.ValidBytes(raw) {
		return transform.SettingsPatch{}, validation.New(validation.ReasonBadSnapshot, "transform_settings", "not valid JSON")
	}
	r := gjson.ParseBytes(raw)
	if !r.IsObject() {
		return transform.SettingsPatch{}, validation.New(validation.ReasonBadSnapshot, "transform_settings", "must be an object")
	}
	return decodeSettingsPatch(r)
}

func decodeSettingsPatch(r gjson.Result) (transform.SettingsPatch, error) {
	var p transform.SettingsPatch

	if v := r.Get("target_tag_name"); v.Exists() {
		t, err := transform.ParseTarget(v.Str)
		if err != nil || v.Type != gjson.String {
			return p, validation.New(validation.ReasonBadTarget, "transform_settings.target_tag_name", "unknown target %s", v.Raw)
		}
		p.TargetTagName = &t
	}

	for _, f := range []struct {
		name string
		dst  **float64
	}{
		{"scale_increment", &p.ScaleIncrement},
		{"rotate_increment", &p.RotateIncrement},
		{"position_increment", &p.PositionIncrement},
	} {
		v := r.Get(f.name)
		if !v.Exists() {
			continue
		}
		n, err := number(v)
		if err != nil {
			return p, validation.Wrap(validation.ReasonBadNumber, "transform_settings."+f.name, err)
		}
		if err := checkIncrement(f.name, n); err != nil {
			return p, err
		}
		*f.dst = &n
	}
	return p, nil
}

// number accepts JSON numbers and numeric strings, as form fields store them.
func number(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v.Str)
		}
		return n, nil
	}
	return 0, fmt.Errorf("not a number: %s", v.Raw)
}

// Restore rebuilds options from a stored snapshot: the snapshot is merged over
// the defaults, then a built-in preset name replaces the stored bindings. The
// result must pass Validate, since other writers share the store.
func Restore(raw []byte) (Options, error) {
	o, err := Merge(Default(), raw)
	if err != nil {
		return Options{}, err
	}
	o = Resolve(o)
	if err := o.Validate(); err != nil {
		return Options{}, err
	}
	return o, nil
}
