package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vtransform/internal/hotkey"
	"vtransform/internal/options"
)

// defaultRequestTimeout bounds a round trip through the daemon loop when the
// caller's context has no deadline.
const defaultRequestTimeout = 2 * time.Second

// errDaemonBusy is returned when the loop did not answer in time.
var errDaemonBusy = errors.New("daemon did not answer in time")

// sessionClient submits events to the daemon loop from other goroutines and
// waits for replies. Events are reduced in submission order, so a snapshot
// requested after an event reflects it.
type sessionClient struct {
	events  chan<- Event
	timeout time.Duration
}

func newSessionClient(events chan<- Event) sessionClient {
	return sessionClient{events: events, timeout: defaultRequestTimeout}
}

func (c sessionClient) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Send submits ev without waiting for it to be reduced.
func (c sessionClient) Send(ctx context.Context, ev Event) error {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()
	select {
	case c.events <- ev:
		return nil
	case <-ctx.Done():
		return errDaemonBusy
	}
}

// await submits ev, then waits on reply.
func await[T any](ctx context.Context, c sessionClient, ev Event, reply <-chan T) (T, error) {
	var zero T
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()
	select {
	case c.events <- ev:
	case <-ctx.Done():
		return zero, errDaemonBusy
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, errDaemonBusy
	}
}

// Snapshot returns the current session state.
func (c sessionClient) Snapshot(ctx context.Context) (StateSnapshot, error) {
	reply := make(chan StateSnapshot, 1)
	return await[StateSnapshot](ctx, c, RequestStateSnapshot{Reply: reply}, reply)
}

// PressKey dispatches one key event and reports whether the host must
// suppress the key's default action.
func (c sessionClient) PressKey(ctx context.Context, ev hotkey.KeyEvent) (hotkey.Result, error) {
	reply := make(chan hotkey.Result, 1)
	return await[hotkey.Result](ctx, c, KeyPressed{KeyEvent: ev, Reply: reply}, reply)
}

// EditOptions merges a partial snapshot over the current options. A rejected
// edit returns the validation failure; the session keeps its options.
func (c sessionClient) EditOptions(ctx context.Context, raw json.RawMessage) (options.Options, error) {
	reply := make(chan EditOutcome, 1)
	out, err := await[EditOutcome](ctx, c, OptionsEdited{Options: raw, Reply: reply}, reply)
	if err != nil {
		return options.Options{}, err
	}
	return out.Options, out.Err
}

// ResetToPreset installs a shipped preset and returns the resulting options.
func (c sessionClient) ResetToPreset(ctx context.Context, name string) (options.Options, error) {
	reply := make(chan EditOutcome, 1)
	out, err := await[EditOutcome](ctx, c, PresetReset{Preset: name, Reply: reply}, reply)
	if err != nil {
		return options.Options{}, err
	}
	return out.Options, out.Err
}

// Submit runs a decoded host event. Events with replies wait for them; the
// rest are followed by a snapshot so callers see their effect.
func (c sessionClient) Submit(ctx context.Context, ev Event) (any, error) {
	switch e := ev.(type) {
	case KeyPressed:
		return c.PressKey(ctx, e.KeyEvent)
	case OptionsEdited:
		return c.EditOptions(ctx, e.Options)
	case PresetReset:
		return c.ResetToPreset(ctx, e.Preset)
	}
	if err := c.Send(ctx, ev); err != nil {
		return nil, err
	}
	return c.Snapshot(ctx)
}
