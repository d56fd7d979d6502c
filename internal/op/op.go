// Package op defines the closed set of operations a key binding can trigger.
//
// Operations travel as strings in stored configuration ("zoom_in", "reset", ...).
// Everything behind the configuration edge works with Op values; Parse is the only
// way a string becomes an Op.
package op

import (
	"encoding/json"
	"fmt"
)

// Op identifies one named operation.
type Op int

const (
	// Unset marks an empty row in an editable binding table. It never runs.
	Unset Op = iota

	ZoomIn
	ZoomOut
	IncreaseStretchX
	DecreaseStretchX
	IncreaseStretchY
	DecreaseStretchY
	RotateCounterClockwise
	RotateClockwise
	RotateCounterClockwise90
	RotateClockwise90
	FlipHorizontal
	FlipVertical
	PositionUp
	PositionUpRight
	PositionRight
	PositionDownRight
	PositionDown
	PositionDownLeft
	PositionLeft
	PositionUpLeft
	Recenter
	Reset
	CaptureEvent
	ToggleHotkeys
	ToggleHotkeysImages

	numOps
)

// UnsetName is the sentinel name of an empty row.
const UnsetName = "unset"

var names = [numOps]string{
	Unset:                    UnsetName,
	ZoomIn:                   "zoom_in",
	ZoomOut:                  "zoom_out",
	IncreaseStretchX:         "increase_stretch_x",
	DecreaseStretchX:         "decrease_stretch_x",
	IncreaseStretchY:         "increase_stretch_y",
	DecreaseStretchY:         "decrease_stretch_y",
	RotateCounterClockwise:   "rotate_counter_clockwise",
	RotateClockwise:          "rotate_clockwise",
	RotateCounterClockwise90: "rotate_counter_clockwise_90",
	RotateClockwise90:        "rotate_clockwise_90",
	FlipHorizontal:           "flip_horizontal",
	FlipVertical:             "flip_vertical",
	PositionUp:               "position_up",
	PositionUpRight:          "position_up_right",
	PositionRight:            "position_right",
	PositionDownRight:        "position_down_right",
	PositionDown:             "position_down",
	PositionDownLeft:         "position_down_left",
	PositionLeft:             "position_left",
	PositionUpLeft:           "position_up_left",
	Recenter:                 "recenter",
	Reset:                    "reset",
	CaptureEvent:             "capture_event",
	ToggleHotkeys:            "toggle_hotkeys",
	ToggleHotkeysImages:      "toggle_hotkeys_images",
}

var byName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for i, n := range names {
		m[n] = Op(i)
	}
	return m
}()

// ErrUnknown is returned (wrapped) by Parse for names outside the registry.
type ErrUnknown struct {
	Name string
}

func (e ErrUnknown) Error() string { return fmt.Sprintf("unknown operation: %q", e.Name) }

// Parse converts a registry name into an Op.
// The empty string is accepted as Unset so that blank rows survive a round trip.
func Parse(name string) (Op, error) {
	if name == "" {
		return Unset, nil
	}
	o, ok := byName[name]
	if !ok {
		return Unset, ErrUnknown{Name: name}
	}
	return o, nil
}

// All returns every runnable operation in registry order (Unset excluded).
func All() []Op {
	out := make([]Op, 0, numOps-1)
	for o := Unset + 1; o < numOps; o++ {
		out = append(out, o)
	}
	return out
}

// Valid reports whether o is a member of the registry, including Unset.
func (o Op) Valid() bool { return o >= Unset && o < numOps }

// IsToggle reports whether o is one of the two reserved enable toggles.
// Toggles fire even while the dispatcher is disabled.
func (o Op) IsToggle() bool { return o == ToggleHotkeys || o == ToggleHotkeysImages }

func (o Op) String() string {
	if !o.Valid() {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return names[o]
}

func (o Op) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("marshal op: invalid value %d", int(o))
	}
	return []byte(names[o]), nil
}

func (o *Op) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// UnmarshalJSON accepts a name string, or false/null for an unset row.
func (o *Op) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "false", "null":
		*o = Unset
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("operation name must be a string: %w", err)
	}
	return o.UnmarshalText([]byte(s))
}
