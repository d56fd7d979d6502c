package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDecodeChange(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	good, err := encodeChange(Change{Origin: "peer-1", At: at})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tests := []struct {
		name    string
		payload string
		want    Change
		wantErr bool
	}{
		{"own encoding", string(good), Change{Origin: "peer-1", At: at}, false},
		{"no origin", `{"at":"2024-03-01T12:00:00Z"}`, Change{At: at}, false},
		{"not json", "options changed", Change{}, true},
		{"array", `["peer-1"]`, Change{}, true},
		{"bad time", `{"origin":"peer-1","at":"yesterday"}`, Change{}, true},
		{"empty", "", Change{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeChange(tt.payload)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeChange(%q) error = %v, wantErr %v", tt.payload, err, tt.wantErr)
			}
			if got.Origin != tt.want.Origin || !got.At.Equal(tt.want.At) {
				t.Fatalf("decodeChange(%q) = %+v, want %+v", tt.payload, got, tt.want)
			}
		})
	}
}

// testRedis connects to the server named by VTRANSFORM_TEST_REDIS under a
// fresh key and channel.
func testRedis(t *testing.T) (RedisConfig, *Redis) {
	t.Helper()
	addr := os.Getenv("VTRANSFORM_TEST_REDIS")
	if addr == "" {
		t.Skip("VTRANSFORM_TEST_REDIS not set, skipping redis integration test")
	}
	id := uuid.NewString()
	cfg := RedisConfig{
		Addr:    addr,
		Key:     "vtransform:test:" + id,
		Channel: "vtransform:test:" + id + ":changed",
	}
	r, err := NewRedis(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	t.Cleanup(func() {
		r.client.Del(context.Background(), cfg.Key)
		r.Close()
	})
	return cfg, r
}

func TestRedis_LoadSave(t *testing.T) {
	_, r := testRedis(t)
	ctx := context.Background()

	data, err := r.Load(ctx)
	if err != nil || data != nil {
		t.Fatalf("missing key: got %q, %v", data, err)
	}
	if err := r.Save(ctx, []byte(`{"disable_alt":true}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err = r.Load(ctx)
	if err != nil || string(data) != `{"disable_alt":true}` {
		t.Fatalf("Load: got %q, %v", data, err)
	}
}

func TestRedis_Watch(t *testing.T) {
	cfg, r := testRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	peer, err := NewRedis(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("NewRedis peer: %v", err)
	}
	defer peer.Close()

	// The subscription is live once Watch returns.
	ch, err := r.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := r.Save(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c := waitChange(t, ch); c.Origin != r.Origin() {
		t.Fatalf("own save: expected origin %q, got %q", r.Origin(), c.Origin)
	}

	if err := r.client.Publish(ctx, cfg.Channel, "garbage").Err(); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := peer.Save(ctx, []byte(`{}`)); err != nil {
		t.Fatalf("peer Save: %v", err)
	}
	if c := waitChange(t, ch); c.Origin != peer.Origin() {
		t.Fatalf("expected the malformed notification to be skipped, got origin %q", c.Origin)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch channel not closed after cancel")
	}
}
