package op

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse_RoundTripsEveryName(t *testing.T) {
	for _, o := range All() {
		got, err := Parse(o.String())
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", o.String(), err)
		}
		if got != o {
			t.Fatalf("Parse(%q) = %v, want %v", o.String(), got, o)
		}
	}
}

func TestParse_UnknownName(t *testing.T) {
	_, err := Parse("make_coffee")
	var unk ErrUnknown
	if !errors.As(err, &unk) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
	if unk.Name != "make_coffee" {
		t.Fatalf("expected name make_coffee, got %q", unk.Name)
	}
}

func TestAll_RegistryOrder(t *testing.T) {
	all := All()
	if len(all) != 25 {
		t.Fatalf("expected 25 operations, got %d", len(all))
	}
	if all[0] != ZoomIn || all[len(all)-1] != ToggleHotkeysImages {
		t.Fatalf("unexpected registry order: first=%v last=%v", all[0], all[len(all)-1])
	}
	for _, o := range all {
		if o == Unset {
			t.Fatalf("All must not include Unset")
		}
	}
}

func TestIsToggle(t *testing.T) {
	if !ToggleHotkeys.IsToggle() || !ToggleHotkeysImages.IsToggle() {
		t.Fatalf("toggle ops must report IsToggle")
	}
	if Reset.IsToggle() || CaptureEvent.IsToggle() {
		t.Fatalf("non-toggle ops must not report IsToggle")
	}
}

func TestUnmarshalJSON_UnsetForms(t *testing.T) {
	for _, in := range []string{`false`, `null`, `""`, `"unset"`} {
		var o Op = Reset
		if err := json.Unmarshal([]byte(in), &o); err != nil {
			t.Fatalf("unmarshal %s: %v", in, err)
		}
		if o != Unset {
			t.Fatalf("unmarshal %s: got %v, want unset", in, o)
		}
	}
}

func TestMarshalJSON_UsesName(t *testing.T) {
	b, err := json.Marshal(struct {
		Op Op `json:"op"`
	}{Op: FlipVertical})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"op":"flip_vertical"}` {
		t.Fatalf("unexpected json: %s", b)
	}
}
