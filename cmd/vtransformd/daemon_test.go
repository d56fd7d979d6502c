package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"vtransform/internal/binding"
	"vtransform/internal/store"
	"vtransform/internal/validation"
)

func TestDaemon_ForeignSnapshotWithDuplicateChordsIsRejected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := store.NewMemory()
	events := make(chan Event, 16)
	broadcasts := make(chan StateBroadcast, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runDaemon(ctx, events, st, NewDaemonState(st.Origin()), broadcasts, slog.Default())
	}()
	defer func() {
		cancel()
		<-done
		st.Close()
	}()
	session := newSessionClient(events)

	if _, err := session.EditOptions(ctx, json.RawMessage(`{"disable_alt":true}`)); err != nil {
		t.Fatalf("EditOptions: %v", err)
	}

	// Another writer stores a custom table binding KeyQ twice.
	raw := `{"preset":"custom_hotkeys","disable_alt":false,"hotkeys":[` +
		`{"function_name":"zoom_in","code":"KeyQ","ctrlKey":false,"altKey":false,"shiftKey":false,"metaKey":false},` +
		`{"function_name":"reset","code":"KeyQ","ctrlKey":false,"altKey":false,"shiftKey":false,"metaKey":false}]}`
	if err := st.Save(ctx, []byte(raw)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := session.Send(ctx, StoreChanged{Change: store.Change{Origin: "peer", At: time.Now()}}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for rejected := false; !rejected; {
		select {
		case b := <-broadcasts:
			if rej, ok := b.(BroadcastOptionsRejected); ok {
				if rej.Reason != validation.ReasonHotkeyDuplicate {
					t.Fatalf("expected duplicate rejection, got %+v", rej)
				}
				rejected = true
			}
		case <-deadline:
			t.Fatalf("no options_rejected broadcast for the invalid snapshot")
		}
	}

	snap, err := session.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.Options.DisableAlt || snap.Preset != binding.DefaultPresetName {
		t.Fatalf("previous options must stay installed, got %s", snap.Options.String())
	}
	if !snap.Options.Hotkeys.Equal(binding.DefaultTable()) {
		t.Fatalf("duplicate table must not be installed, got %d rows", len(snap.Options.Hotkeys))
	}
}
