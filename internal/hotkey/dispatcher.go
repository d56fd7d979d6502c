// Package hotkey turns key chords into transform operations.
//
// A Dispatcher owns the enable gate, the active binding table and the
// transform engine it drives. Like the engine it is single-owner: the host's
// session loop is the only caller.
package hotkey

import (
	"strings"

	"vtransform/internal/binding"
	"vtransform/internal/op"
	"vtransform/internal/transform"
)

// Focus describes the element that had keyboard focus when the key went down.
type Focus struct {
	NodeName        string `json:"node_name,omitempty"`
	ContentEditable bool   `json:"content_editable,omitempty"`
}

// Editable reports whether typing into the focused element produces text.
func (f Focus) Editable() bool {
	if f.ContentEditable {
		return true
	}
	switch strings.ToUpper(f.NodeName) {
	case "INPUT", "TEXTAREA", "SELECT":
		return true
	}
	return false
}

// KeyEvent is one key-down with its modifier states and focus target.
type KeyEvent struct {
	binding.Chord
	Target Focus `json:"target"`
}

// allowedWhileTyping reports chords that never type characters: anything with
// Meta or Ctrl, and Alt outside the numeric keypad.
func (ev KeyEvent) allowedWhileTyping() bool {
	return ev.Meta || ev.Ctrl || (ev.Alt && !strings.Contains(ev.Code, "Numpad"))
}

// Result reports what Dispatch did with an event.
type Result struct {
	// Matched is true when a binding's chord equals the event's chord.
	Matched bool `json:"matched"`
	// Op is the matched operation.
	Op op.Op `json:"op"`
	// Handled means the operation ran; the host must prevent the key's
	// default action and stop its propagation.
	Handled bool `json:"handled"`
}

// altCapture suppresses the browser's own Alt shortcuts when disable-alt is set.
var altCapture = binding.Table{
	{Op: op.CaptureEvent, Chord: binding.Chord{Code: "AltLeft", Alt: true}},
	{Op: op.CaptureEvent, Chord: binding.Chord{Code: "AltRight", Alt: true}},
}

// Config is everything a Dispatcher derives from stored options.
type Config struct {
	AlwaysOn   Mode
	Bindings   binding.Table
	DisableAlt bool
	Transform  transform.SettingsPatch
}

type Dispatcher struct {
	engine     *transform.Engine
	enabled    bool
	table      binding.Table
	disableAlt bool
}

// New returns a disabled dispatcher with the default preset installed.
func New(engine *transform.Engine) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		table:  binding.DefaultTable(),
	}
}

func (d *Dispatcher) Engine() *transform.Engine { return d.engine }
func (d *Dispatcher) Enabled() bool             { return d.enabled }
func (d *Dispatcher) DisableAlt() bool          { return d.disableAlt }
func (d *Dispatcher) Table() binding.Table      { return d.table.Clone() }

// Configure re-derives the whole dispatcher from c: table and alt capture,
// then transform settings, then the always-on mode (which may override the
// target tag name and always sets the enable flag).
func (d *Dispatcher) Configure(c Config) {
	d.table = c.Bindings.Clone()
	d.disableAlt = c.DisableAlt
	d.engine.SetTransformSettings(c.Transform)
	d.ApplyAlwaysOn(c.AlwaysOn)
}

// ApplyAlwaysOn forces enabled=true and the mode's target for video and image,
// and disables the dispatcher for off. Unknown modes disable it too.
func (d *Dispatcher) ApplyAlwaysOn(m Mode) {
	t, ok := m.Target()
	if !ok {
		d.enabled = false
		return
	}
	d.engine.SetTransformSettings(transform.TargetPatch(t))
	d.enabled = true
}

// Dispatch matches ev against the active table and runs the bound operation.
// It never fails: unmatched, gated and focus-excluded events come back with
// Handled=false and leave all state untouched.
func (d *Dispatcher) Dispatch(ev KeyEvent) Result {
	if ev.Target.Editable() && !ev.allowedWhileTyping() {
		return Result{}
	}
	b, ok := d.lookup(ev.Chord)
	if !ok {
		return Result{}
	}
	res := Result{Matched: true, Op: b.Op}
	if !d.enabled && !b.Op.IsToggle() {
		return res
	}
	res.Handled = d.Invoke(b.Op)
	return res
}

func (d *Dispatcher) lookup(c binding.Chord) (binding.Binding, bool) {
	if c.Code == "" {
		return binding.Binding{}, false
	}
	if b, ok := d.table.Lookup(c); ok {
		return b, true
	}
	if d.disableAlt {
		return altCapture.Lookup(c)
	}
	return binding.Binding{}, false
}

// Invoke runs o without the enable gate or any key matching. It reports false
// for Unset and values outside the registry.
func (d *Dispatcher) Invoke(o op.Op) bool {
	switch o {
	case op.ToggleHotkeys:
		d.toggle(transform.TargetVideo)
		return true
	case op.ToggleHotkeysImages:
		d.toggle(transform.TargetImage)
		return true
	}
	return d.engine.Apply(o)
}

// toggle enables the dispatcher on target when it is off or aimed at the other
// target, and disables it otherwise.
func (d *Dispatcher) toggle(target transform.Target) {
	if !d.enabled || d.engine.Target() != target {
		d.engine.SetTransformSettings(transform.TargetPatch(target))
		d.enabled = true
		return
	}
	d.enabled = false
}
