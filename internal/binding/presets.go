package binding

import "vtransform/internal/op"

// CustomName labels any table that does not equal a shipped preset.
const CustomName = "custom_hotkeys"

// Names of the shipped presets, in classification order.
const (
	DefaultPresetName  = "default_hotkeys"
	AltPresetName      = "alt_hotkeys"
	H5PlayerPresetName = "h5player_hotkeys"
)

// ToggleKey is the key code of the video toggle (with Alt) in every preset.
const ToggleKey = "KeyV"

// Preset is a named, immutable table shipped with the program.
type Preset struct {
	Name  string
	Table Table
}

func row(o op.Op, c Chord) Binding { return Binding{Op: o, Chord: c} }

func key(o op.Op, code string) Binding       { return row(o, Chord{Code: code}) }
func ctrl(o op.Op, code string) Binding      { return row(o, Chord{Code: code, Ctrl: true}) }
func alt(o op.Op, code string) Binding       { return row(o, Chord{Code: code, Alt: true}) }
func shift(o op.Op, code string) Binding     { return row(o, Chord{Code: code, Shift: true}) }
func ctrlShift(o op.Op, code string) Binding { return row(o, Chord{Code: code, Ctrl: true, Shift: true}) }
func altShift(o op.Op, code string) Binding  { return row(o, Chord{Code: code, Alt: true, Shift: true}) }

var defaultTable = Table{
	key(op.ZoomIn, "Numpad9"),
	key(op.ZoomOut, "Numpad1"),
	key(op.IncreaseStretchX, "Numpad6"),
	key(op.DecreaseStretchX, "Numpad4"),
	key(op.IncreaseStretchY, "Numpad8"),
	key(op.DecreaseStretchY, "Numpad2"),
	alt(op.RotateCounterClockwise, "Numpad1"),
	alt(op.RotateClockwise, "Numpad3"),
	alt(op.RotateCounterClockwise90, "Numpad7"),
	alt(op.RotateClockwise90, "Numpad9"),
	alt(op.FlipHorizontal, "Numpad4"),
	alt(op.FlipHorizontal, "Numpad6"),
	alt(op.FlipVertical, "Numpad2"),
	alt(op.FlipVertical, "Numpad8"),
	ctrl(op.PositionUp, "Numpad8"),
	ctrl(op.PositionUpRight, "Numpad9"),
	ctrl(op.PositionRight, "Numpad6"),
	ctrl(op.PositionDownRight, "Numpad3"),
	ctrl(op.PositionDown, "Numpad2"),
	ctrl(op.PositionDownLeft, "Numpad1"),
	ctrl(op.PositionLeft, "Numpad4"),
	ctrl(op.PositionUpLeft, "Numpad7"),
	ctrl(op.Recenter, "Numpad5"),
	key(op.Reset, "Numpad5"),
	key(op.CaptureEvent, "Numpad3"),
	key(op.CaptureEvent, "Numpad7"),
	alt(op.ToggleHotkeys, ToggleKey),
	alt(op.ToggleHotkeysImages, "KeyI"),
}

var altTable = Table{
	shift(op.ZoomIn, "ArrowUp"),
	shift(op.ZoomOut, "ArrowDown"),
	ctrlShift(op.IncreaseStretchX, "ArrowRight"),
	ctrlShift(op.DecreaseStretchX, "ArrowLeft"),
	ctrlShift(op.IncreaseStretchY, "ArrowUp"),
	ctrlShift(op.DecreaseStretchY, "ArrowDown"),
	alt(op.RotateCounterClockwise, "ArrowLeft"),
	alt(op.RotateClockwise, "ArrowRight"),
	altShift(op.RotateCounterClockwise90, "ArrowLeft"),
	altShift(op.RotateClockwise90, "ArrowRight"),
	alt(op.FlipHorizontal, "ArrowUp"),
	alt(op.FlipVertical, "ArrowDown"),
	ctrl(op.PositionUp, "ArrowUp"),
	ctrl(op.PositionRight, "ArrowRight"),
	ctrl(op.PositionDown, "ArrowDown"),
	ctrl(op.PositionLeft, "ArrowLeft"),
	shift(op.Reset, "ArrowLeft"),
	shift(op.Reset, "ArrowRight"),
	alt(op.ToggleHotkeys, ToggleKey),
	alt(op.ToggleHotkeysImages, "KeyI"),
}

var h5playerTable = Table{
	shift(op.ZoomIn, "KeyC"),
	shift(op.ZoomOut, "KeyX"),
	key(op.RotateClockwise90, "KeyS"),
	key(op.FlipHorizontal, "KeyM"),
	shift(op.FlipVertical, "KeyM"),
	shift(op.PositionUp, "ArrowUp"),
	shift(op.PositionRight, "ArrowRight"),
	shift(op.PositionDown, "ArrowDown"),
	shift(op.PositionLeft, "ArrowLeft"),
	key(op.Reset, "KeyQ"),
	shift(op.Reset, "KeyZ"),
	alt(op.ToggleHotkeys, ToggleKey),
	alt(op.ToggleHotkeysImages, "KeyI"),
}

// Presets returns the shipped presets in classification order.
// Each call returns fresh copies; callers may modify them freely.
func Presets() []Preset {
	return []Preset{
		{Name: DefaultPresetName, Table: defaultTable.Clone()},
		{Name: AltPresetName, Table: altTable.Clone()},
		{Name: H5PlayerPresetName, Table: h5playerTable.Clone()},
	}
}

// LookupPreset returns the preset called name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// IsPresetName reports whether name is a shipped preset (the custom label is not).
func IsPresetName(name string) bool {
	_, ok := LookupPreset(name)
	return ok
}

// DefaultTable returns a copy of the default preset.
func DefaultTable() Table { return defaultTable.Clone() }

// Classify returns the name of the first preset that t equals position by
// position (chord text and operation), or CustomName. Empty tables are custom.
// Neither argument is modified.
func Classify(t Table, presets []Preset) string {
	if len(t) == 0 {
		return CustomName
	}
	for _, p := range presets {
		if t.Equal(p.Table) {
			return p.Name
		}
	}
	return CustomName
}
