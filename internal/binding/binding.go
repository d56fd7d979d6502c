// Package binding holds key chords, the ordered binding tables that map chords
// to operations, the shipped presets and the preset classifier.
package binding

import (
	"fmt"
	"strings"

	"vtransform/internal/op"
	"vtransform/internal/validation"
)

// Chord is a physical key code plus the four modifier states, matched as one key.
// Code uses KeyboardEvent.code names ("Numpad5", "KeyV", "ArrowUp").
type Chord struct {
	Code  string `json:"code"`
	Ctrl  bool   `json:"ctrlKey"`
	Alt   bool   `json:"altKey"`
	Shift bool   `json:"shiftKey"`
	Meta  bool   `json:"metaKey"`
}

const chordSep = " + "

// String renders the chord text: modifier prefixes in the fixed order
// Ctrl, Alt, Shift, Meta, then the key code.
func (c Chord) String() string {
	var b strings.Builder
	if c.Ctrl {
		b.WriteString("Ctrl" + chordSep)
	}
	if c.Alt {
		b.WriteString("Alt" + chordSep)
	}
	if c.Shift {
		b.WriteString("Shift" + chordSep)
	}
	if c.Meta {
		b.WriteString("Meta" + chordSep)
	}
	b.WriteString(c.Code)
	return b.String()
}

// ParseChord is the inverse of Chord.String. Modifiers may appear in any order
// and are matched case-insensitively; the last segment is the key code.
func ParseChord(s string) (Chord, error) {
	parts := strings.Split(s, "+")
	var c Chord
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			if p == "" {
				return Chord{}, fmt.Errorf("chord %q: missing key code", s)
			}
			c.Code = p
			break
		}
		switch strings.ToLower(p) {
		case "ctrl", "control":
			c.Ctrl = true
		case "alt":
			c.Alt = true
		case "shift":
			c.Shift = true
		case "meta", "super", "cmd":
			c.Meta = true
		default:
			return Chord{}, fmt.Errorf("chord %q: unknown modifier %q", s, p)
		}
	}
	return c, nil
}

// Binding maps one chord to an operation. JSON keys follow the stored options format.
type Binding struct {
	Op op.Op `json:"function_name"`
	Chord
}

// Unset reports whether b is an empty placeholder row.
func (b Binding) Unset() bool { return b.Op == op.Unset }

// Equal is preset equality: same chord text and same operation.
func (b Binding) Equal(o Binding) bool {
	return b.Chord.String() == o.Chord.String() && b.Op == o.Op
}

// Table is an ordered sequence of bindings.
type Table []Binding

// Clone returns a copy that shares no storage with t.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	copy(out, t)
	return out
}

// Lookup returns the first binding whose chord equals c exactly.
func (t Table) Lookup(c Chord) (Binding, bool) {
	for _, b := range t {
		if b.Chord == c {
			return b, true
		}
	}
	return Binding{}, false
}

// Equal compares t and o position by position.
func (t Table) Equal(o Table) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Validated returns the table that would be installed from an edited one:
// rows are checked in order, a chord already used by an earlier row is a
// duplicate, unset rows are dropped, and operations outside the registry are
// rejected. t is not modified.
func (t Table) Validated() (Table, error) {
	out := make(Table, 0, len(t))
	used := make(map[string]int, len(t))
	for i, b := range t {
		text := b.Chord.String()
		if first, ok := used[text]; ok {
			return nil, validation.New(validation.ReasonHotkeyDuplicate, fmt.Sprintf("hotkeys[%d]", i),
				"%s already bound by row %d", text, first)
		}
		if b.Unset() {
			continue
		}
		if !b.Op.Valid() {
			return nil, validation.New(validation.ReasonBadFunction, fmt.Sprintf("hotkeys[%d]", i),
				"operation %v is not registered", b.Op)
		}
		used[text] = i
		out = append(out, b)
	}
	return out, nil
}
