package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vtransform/internal/binding"
	"vtransform/internal/hotkey"
	"vtransform/internal/ipc"
	"vtransform/internal/op"
	"vtransform/internal/options"
	"vtransform/internal/store"
	"vtransform/internal/validation"
)

// testDaemon runs the daemon loop over a memory store and returns a session
// client attached to it.
func testDaemon(t *testing.T) (sessionClient, *store.Memory) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	st := store.NewMemory()
	events := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runDaemon(ctx, events, st, NewDaemonState(st.Origin()), nil, slog.Default())
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		st.Close()
	})
	return newSessionClient(events), st
}

func testAPI(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()
	session, st := testDaemon(t)
	srv := httptest.NewServer(newRouter(slog.Default(), session, nil))
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
	}
	return resp.StatusCode
}

func TestAPI_KeysRunBoundOperation(t *testing.T) {
	srv, _ := testAPI(t)

	var res hotkey.Result
	code := doJSON(t, http.MethodPost, srv.URL+"/api/keys", `{"code":"Numpad9"}`, &res)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !res.Handled || res.Op != op.ZoomIn {
		t.Fatalf("expected handled zoom_in, got %+v", res)
	}

	var snap StateSnapshot
	doJSON(t, http.MethodGet, srv.URL+"/api/state", "", &snap)
	if !snap.Transformed || snap.Transform.Scale <= 1 {
		t.Fatalf("expected zoomed state, got %+v", snap.Transform)
	}
}

func TestAPI_InvokeOp(t *testing.T) {
	srv, _ := testAPI(t)

	var snap StateSnapshot
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/ops/flip_vertical", "", &snap); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if snap.Transform.Rotate != 180 {
		t.Fatalf("expected rotate=180 after vertical flip, got %v", snap.Transform.Rotate)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/ops/explode", "", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown operation, got %d", code)
	}
}

func TestAPI_PutOptions(t *testing.T) {
	srv, st := testAPI(t)

	var o options.Options
	code := doJSON(t, http.MethodPut, srv.URL+"/api/options", `{"disable_alt":true}`, &o)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !o.DisableAlt || o.Preset != binding.DefaultPresetName {
		t.Fatalf("unexpected options: %s", o.String())
	}

	waitUntil(t, time.Second, func() bool {
		raw, err := st.Load(context.Background())
		return err == nil && strings.Contains(string(raw), `"disable_alt":true`)
	}, "edit not persisted")

	var rej errorBody
	code = doJSON(t, http.MethodPut, srv.URL+"/api/options", `{"transform_settings":{"rotate_increment":"abc"}}`, &rej)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if rej.Reason != validation.ReasonBadNumber {
		t.Fatalf("expected reason %q, got %+v", validation.ReasonBadNumber, rej)
	}

	// The rejected edit left the previous options installed.
	doJSON(t, http.MethodGet, srv.URL+"/api/options", "", &o)
	if !o.DisableAlt || o.TransformSettings.RotateIncrement != 5 {
		t.Fatalf("expected previous options to stay, got %s", o.String())
	}
}

func TestAPI_PatchTransformSettings(t *testing.T) {
	srv, _ := testAPI(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/ops/zoom_in", "", nil)

	var snap StateSnapshot
	code := doJSON(t, http.MethodPost, srv.URL+"/api/transform-settings", `{"target_tag_name":"img"}`, &snap)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if snap.Target != "img" || snap.Transformed {
		t.Fatalf("expected identity on img, got target=%s style=%q", snap.Target, snap.Style)
	}
	if snap.Options.TransformSettings.TargetTagName != "video" {
		t.Fatalf("stored options must keep their target, got %s", snap.Options.TransformSettings.TargetTagName)
	}

	var rej errorBody
	code = doJSON(t, http.MethodPost, srv.URL+"/api/transform-settings", `{"position_increment":"far"}`, &rej)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
	if rej.Reason != validation.ReasonBadNumber || rej.Field != "transform_settings.position_increment" {
		t.Fatalf("unexpected rejection: %+v", rej)
	}
}

func TestAPI_ResetPreset(t *testing.T) {
	srv, _ := testAPI(t)

	var o options.Options
	code := doJSON(t, http.MethodPost, srv.URL+"/api/reset-preset", `{"preset":"h5player_hotkeys"}`, &o)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if o.Preset != binding.H5PlayerPresetName {
		t.Fatalf("expected %q, got %q", binding.H5PlayerPresetName, o.Preset)
	}
}

func TestAPI_PresetsAndClassify(t *testing.T) {
	srv, _ := testAPI(t)

	var presets []presetView
	doJSON(t, http.MethodGet, srv.URL+"/api/presets", "", &presets)
	if len(presets) != 3 || presets[0].Name != binding.DefaultPresetName {
		t.Fatalf("unexpected presets: %v", presets)
	}

	body, err := json.Marshal(classifyRequest{Hotkeys: presets[1].Hotkeys})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var res classifyResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/classify", string(body), &res)
	if res.Preset != presets[1].Name {
		t.Fatalf("expected %q, got %q", presets[1].Name, res.Preset)
	}

	body, _ = json.Marshal(classifyRequest{Hotkeys: presets[1].Hotkeys, AlwaysOn: hotkey.ModeOff})
	doJSON(t, http.MethodPost, srv.URL+"/api/classify", string(body), &res)
	if res.Preset != binding.CustomName {
		t.Fatalf("non-default always-on must classify as custom, got %q", res.Preset)
	}
}

func TestAPI_AlwaysOnAndPage(t *testing.T) {
	srv, _ := testAPI(t)

	var snap StateSnapshot
	doJSON(t, http.MethodPost, srv.URL+"/api/always-on", `{"mode":"image"}`, &snap)
	if !snap.Enabled || snap.Target != "img" {
		t.Fatalf("expected enabled on img, got enabled=%v target=%q", snap.Enabled, snap.Target)
	}

	doJSON(t, http.MethodPost, srv.URL+"/api/page", `{"url":"https://cdn.example.com/a.webm"}`, &snap)
	if !snap.DirectVideo || snap.PageURL == "" {
		t.Fatalf("expected direct video page, got %+v", snap)
	}

	if code := doJSON(t, http.MethodPost, srv.URL+"/api/elements", `{"elements":[{"width":-1,"height":2}]}`, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative dimensions, got %d", code)
	}
}

func TestIPCHandler(t *testing.T) {
	session, _ := testDaemon(t)
	handle := ipcHandler(session, slog.Default())
	ctx := context.Background()

	env, err := ipc.NewEnvelope("op_invoked", OpInvoked{Op: op.RotateClockwise})
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	resp := handle(ctx, env)
	if resp.Status != ipc.StatusOK {
		t.Fatalf("expected ok, got %+v", resp)
	}
	var snap StateSnapshot
	if err := json.Unmarshal(resp.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Transform.Rotate != 5 {
		t.Fatalf("expected rotate=5, got %v", snap.Transform.Rotate)
	}

	resp = handle(ctx, ipc.Envelope{Type: "get_presets"})
	if resp.Status != ipc.StatusOK {
		t.Fatalf("expected ok for get_presets, got %+v", resp)
	}

	resp = handle(ctx, ipc.Envelope{Type: "options_edited", Data: json.RawMessage(`{"options":{"always_on":"never"}}`)})
	if resp.Status != ipc.StatusError || !strings.Contains(resp.Error, string(validation.ReasonAlwaysOn)) {
		t.Fatalf("expected always-on rejection, got %+v", resp)
	}

	resp = handle(ctx, ipc.Envelope{Type: "volume_up"})
	if resp.Status != ipc.StatusError {
		t.Fatalf("expected error for unknown type, got %+v", resp)
	}
}
