package binding

import (
	"encoding/json"
	"testing"

	"vtransform/internal/op"
	"vtransform/internal/validation"
)

func TestChordString(t *testing.T) {
	tests := []struct {
		chord Chord
		want  string
	}{
		{Chord{Code: "Numpad5"}, "Numpad5"},
		{Chord{Code: "KeyV", Alt: true}, "Alt + KeyV"},
		{Chord{Code: "ArrowUp", Ctrl: true, Shift: true}, "Ctrl + Shift + ArrowUp"},
		{Chord{Code: "KeyA", Ctrl: true, Alt: true, Shift: true, Meta: true}, "Ctrl + Alt + Shift + Meta + KeyA"},
		{Chord{}, ""},
	}
	for _, tt := range tests {
		if got := tt.chord.String(); got != tt.want {
			t.Fatalf("%+v: got %q want %q", tt.chord, got, tt.want)
		}
	}
}

func TestParseChord(t *testing.T) {
	c, err := ParseChord("shift+ctrl+ArrowUp")
	if err != nil {
		t.Fatalf("ParseChord: %v", err)
	}
	if c != (Chord{Code: "ArrowUp", Ctrl: true, Shift: true}) {
		t.Fatalf("unexpected chord %+v", c)
	}

	for _, preset := range Presets() {
		for _, b := range preset.Table {
			back, err := ParseChord(b.Chord.String())
			if err != nil || back != b.Chord {
				t.Fatalf("%s: %q did not parse back (%+v, %v)", preset.Name, b.Chord.String(), back, err)
			}
		}
	}

	if _, err := ParseChord("Ctrl + "); err == nil {
		t.Fatalf("expected error for missing key code")
	}
	if _, err := ParseChord("Hyper + KeyA"); err == nil {
		t.Fatalf("expected error for unknown modifier")
	}
}

func TestBindingJSON_UsesStoredKeys(t *testing.T) {
	in := `{"function_name":"reset","code":"Numpad5","ctrlKey":false,"altKey":false,"shiftKey":false,"metaKey":false}`
	var b Binding
	if err := json.Unmarshal([]byte(in), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.Op != op.Reset || b.Code != "Numpad5" {
		t.Fatalf("unexpected binding %+v", b)
	}
	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != in {
		t.Fatalf("unexpected encoding:\n got %s\nwant %s", out, in)
	}

	var unset Binding
	if err := json.Unmarshal([]byte(`{"function_name":false,"code":""}`), &unset); err != nil {
		t.Fatalf("unmarshal unset row: %v", err)
	}
	if !unset.Unset() {
		t.Fatalf("expected unset row")
	}
}

func TestTableLookup_FirstMatchWins(t *testing.T) {
	tbl := Table{
		key(op.ZoomIn, "Numpad9"),
		alt(op.RotateClockwise90, "Numpad9"),
		key(op.Reset, "Numpad9"),
	}
	b, ok := tbl.Lookup(Chord{Code: "Numpad9"})
	if !ok || b.Op != op.ZoomIn {
		t.Fatalf("expected first match zoom_in, got %+v ok=%v", b, ok)
	}
	if _, ok := tbl.Lookup(Chord{Code: "Numpad9", Shift: true}); ok {
		t.Fatalf("modifiers must match exactly")
	}
	if _, ok := tbl.Lookup(Chord{}); ok {
		t.Fatalf("empty chord must not match a real row")
	}
}

func TestValidated(t *testing.T) {
	tbl := Table{
		key(op.ZoomIn, "Numpad9"),
		{Op: op.Unset},
		key(op.ZoomOut, "Numpad1"),
	}
	got, err := tbl.Validated()
	if err != nil {
		t.Fatalf("Validated: %v", err)
	}
	if len(got) != 2 || got[0].Op != op.ZoomIn || got[1].Op != op.ZoomOut {
		t.Fatalf("expected unset row dropped, got %+v", got)
	}
	if len(tbl) != 3 {
		t.Fatalf("input table must not be modified")
	}
}

func TestValidated_Duplicate(t *testing.T) {
	tbl := Table{
		key(op.ZoomIn, "Numpad9"),
		key(op.ZoomOut, "Numpad9"),
	}
	_, err := tbl.Validated()
	if !validation.Is(err, validation.ReasonHotkeyDuplicate) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}

func TestValidated_UnsetRowsDoNotCollide(t *testing.T) {
	tbl := Table{{Op: op.Unset}, {Op: op.Unset}, key(op.Reset, "KeyQ")}
	if _, err := tbl.Validated(); err != nil {
		t.Fatalf("blank rows must not count as duplicates: %v", err)
	}
}

func TestValidated_UnknownOperation(t *testing.T) {
	tbl := Table{{Op: op.Op(999), Chord: Chord{Code: "KeyQ"}}}
	_, err := tbl.Validated()
	if !validation.Is(err, validation.ReasonBadFunction) {
		t.Fatalf("expected bad function rejection, got %v", err)
	}
}
