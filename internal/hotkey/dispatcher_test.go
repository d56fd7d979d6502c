package hotkey

import (
	"encoding/json"
	"strings"
	"testing"

	"vtransform/internal/binding"
	"vtransform/internal/op"
	"vtransform/internal/transform"
	"vtransform/internal/validation"
)

func newTestDispatcher(t *testing.T, mode Mode) *Dispatcher {
	t.Helper()
	d := New(transform.NewEngine(transform.DefaultSettings(), nil))
	d.Configure(Config{
		AlwaysOn: mode,
		Bindings: binding.DefaultTable(),
	})
	return d
}

func press(code string) KeyEvent { return KeyEvent{Chord: binding.Chord{Code: code}} }

func TestDispatch_Numpad5Resets(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)
	d.Engine().ZoomIn()

	res := d.Dispatch(press("Numpad5"))
	if !res.Matched || !res.Handled || res.Op != op.Reset {
		t.Fatalf("unexpected result %+v", res)
	}
	if d.Engine().IsTransformed() {
		t.Fatalf("expected identity after reset")
	}
}

func TestDispatch_FocusExclusion(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)

	for _, node := range []string{"INPUT", "TEXTAREA", "SELECT", "input"} {
		ev := press("Numpad9")
		ev.Target = Focus{NodeName: node}
		if res := d.Dispatch(ev); res.Handled || res.Matched {
			t.Fatalf("%s: typing must be ignored, got %+v", node, res)
		}
	}

	ev := press("Numpad9")
	ev.Target = Focus{NodeName: "DIV", ContentEditable: true}
	if res := d.Dispatch(ev); res.Handled {
		t.Fatalf("content editable must be ignored, got %+v", res)
	}
	if d.Engine().IsTransformed() {
		t.Fatalf("ignored events must not change state")
	}
}

func TestDispatch_FocusExceptions(t *testing.T) {
	tests := []struct {
		name    string
		chord   binding.Chord
		handled bool
	}{
		{"ctrl always allowed", binding.Chord{Code: "Numpad5", Ctrl: true}, true},
		{"alt outside keypad allowed", binding.Chord{Code: binding.ToggleKey, Alt: true}, true},
		{"alt on keypad blocked", binding.Chord{Code: "Numpad9", Alt: true}, false},
		{"bare key blocked", binding.Chord{Code: "Numpad5"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(t, ModeVideo)
			res := d.Dispatch(KeyEvent{Chord: tt.chord, Target: Focus{NodeName: "INPUT"}})
			if res.Handled != tt.handled {
				t.Fatalf("handled=%v want %v (%+v)", res.Handled, tt.handled, res)
			}
		})
	}
}

func TestDispatch_MetaExceptionPassesFocusCheck(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)
	d.Configure(Config{
		AlwaysOn: ModeVideo,
		Bindings: binding.Table{{Op: op.ZoomIn, Chord: binding.Chord{Code: "KeyZ", Meta: true}}},
	})
	res := d.Dispatch(KeyEvent{Chord: binding.Chord{Code: "KeyZ", Meta: true}, Target: Focus{NodeName: "TEXTAREA"}})
	if !res.Handled {
		t.Fatalf("meta chords must pass the focus check, got %+v", res)
	}
}

func TestDispatch_DisabledGate(t *testing.T) {
	d := newTestDispatcher(t, ModeOff)
	if d.Enabled() {
		t.Fatalf("off mode must disable the dispatcher")
	}

	res := d.Dispatch(press("Numpad9"))
	if !res.Matched || res.Handled {
		t.Fatalf("disabled non-toggle must match without handling, got %+v", res)
	}
	if d.Engine().IsTransformed() {
		t.Fatalf("disabled dispatcher must not change state")
	}

	res = d.Dispatch(KeyEvent{Chord: binding.Chord{Code: binding.ToggleKey, Alt: true}})
	if !res.Handled || res.Op != op.ToggleHotkeys {
		t.Fatalf("toggle must fire while disabled, got %+v", res)
	}
	if !d.Enabled() {
		t.Fatalf("toggle must enable the dispatcher")
	}
}

func TestDispatch_NoMatch(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)
	if res := d.Dispatch(press("KeyJ")); res.Matched || res.Handled {
		t.Fatalf("unexpected result %+v", res)
	}
	if res := d.Dispatch(KeyEvent{}); res.Matched {
		t.Fatalf("empty chord must never match")
	}
}

func TestDispatch_UnsetRowsTolerated(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)
	d.Configure(Config{
		AlwaysOn: ModeVideo,
		Bindings: binding.Table{{Op: op.Unset}, {Op: op.Reset, Chord: binding.Chord{Code: "KeyQ"}}},
	})
	if res := d.Dispatch(KeyEvent{}); res.Matched {
		t.Fatalf("unset row must not match an empty event, got %+v", res)
	}
	if res := d.Dispatch(press("KeyQ")); !res.Handled {
		t.Fatalf("expected reset to run, got %+v", res)
	}
}

func TestDispatch_DisableAltCapture(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)
	altLeft := KeyEvent{Chord: binding.Chord{Code: "AltLeft", Alt: true}}

	if res := d.Dispatch(altLeft); res.Matched {
		t.Fatalf("bare alt must fall through without disable_alt, got %+v", res)
	}

	d.Configure(Config{AlwaysOn: ModeVideo, Bindings: binding.DefaultTable(), DisableAlt: true})
	res := d.Dispatch(altLeft)
	if !res.Handled || res.Op != op.CaptureEvent {
		t.Fatalf("expected alt capture, got %+v", res)
	}
	if d.Engine().IsTransformed() {
		t.Fatalf("capture must not change state")
	}
	if len(d.Table()) != len(binding.DefaultTable()) {
		t.Fatalf("capture rows must not be added to the stored table")
	}
}

func TestToggles(t *testing.T) {
	toggleVideo := KeyEvent{Chord: binding.Chord{Code: binding.ToggleKey, Alt: true}}
	toggleImage := KeyEvent{Chord: binding.Chord{Code: "KeyI", Alt: true}}

	d := newTestDispatcher(t, ModeVideo)

	// Image toggle while enabled on video switches target without disabling.
	d.Dispatch(toggleImage)
	if !d.Enabled() || d.Engine().Target() != transform.TargetImage {
		t.Fatalf("expected enabled on img, got enabled=%v target=%s", d.Enabled(), d.Engine().Target())
	}

	// Same toggle again disables.
	d.Dispatch(toggleImage)
	if d.Enabled() || d.Engine().Target() != transform.TargetImage {
		t.Fatalf("expected disabled on img, got enabled=%v target=%s", d.Enabled(), d.Engine().Target())
	}

	// Video toggle from cold enables and retargets.
	d.Dispatch(toggleVideo)
	if !d.Enabled() || d.Engine().Target() != transform.TargetVideo {
		t.Fatalf("expected enabled on video, got enabled=%v target=%s", d.Enabled(), d.Engine().Target())
	}

	d.Dispatch(toggleVideo)
	if d.Enabled() {
		t.Fatalf("second video toggle must disable")
	}
}

func TestToggle_RetargetResetsState(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)
	d.Dispatch(press("Numpad9"))
	if !d.Engine().IsTransformed() {
		t.Fatalf("expected zoom")
	}
	d.Dispatch(KeyEvent{Chord: binding.Chord{Code: "KeyI", Alt: true}})
	if d.Engine().IsTransformed() {
		t.Fatalf("target change must reset the transform")
	}
}

func TestApplyAlwaysOn(t *testing.T) {
	d := newTestDispatcher(t, ModeOff)
	d.ApplyAlwaysOn(ModeImage)
	if !d.Enabled() || d.Engine().Target() != transform.TargetImage {
		t.Fatalf("image mode must enable on img")
	}
	d.ApplyAlwaysOn(ModeOff)
	if d.Enabled() {
		t.Fatalf("off mode must disable")
	}
	if d.Engine().Target() != transform.TargetImage {
		t.Fatalf("off mode must keep the target")
	}
}

func TestConfigure_ModeOverridesTransformTarget(t *testing.T) {
	d := New(transform.NewEngine(transform.DefaultSettings(), nil))
	d.Configure(Config{
		AlwaysOn:  ModeVideo,
		Bindings:  binding.DefaultTable(),
		Transform: transform.TargetPatch(transform.TargetImage),
	})
	if d.Engine().Target() != transform.TargetVideo {
		t.Fatalf("always-on is applied after transform settings, got %s", d.Engine().Target())
	}
}

func TestInvoke_RejectsUnset(t *testing.T) {
	d := newTestDispatcher(t, ModeVideo)
	if d.Invoke(op.Unset) {
		t.Fatalf("unset must not run")
	}
	if !d.Invoke(op.FlipHorizontal) || d.Engine().State().RotateY != 180 {
		t.Fatalf("expected flip to run")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"video_mode": ModeVideo, "video": ModeVideo,
		"image_mode": ModeImage, "image": ModeImage,
		"off_mode": ModeOff, "off": ModeOff,
	} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	_, err := ParseMode("sometimes")
	if !validation.Is(err, validation.ReasonAlwaysOn) {
		t.Fatalf("expected always_on rejection, got %v", err)
	}
	for _, m := range Modes() {
		if !strings.Contains(err.Error(), string(m)) {
			t.Fatalf("rejection should list %q, got %v", m, err)
		}
	}
}

func TestKeyEventJSON(t *testing.T) {
	var ev KeyEvent
	in := `{"code":"Numpad5","ctrlKey":true,"target":{"node_name":"INPUT"}}`
	if err := json.Unmarshal([]byte(in), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Code != "Numpad5" || !ev.Ctrl || ev.Target.NodeName != "INPUT" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
