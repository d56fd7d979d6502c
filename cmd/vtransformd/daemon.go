package main

import (
	"context"
	"log/slog"
	"time"

	"vtransform/internal/store"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven session owner
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects (store I/O,
//     replies to callers).
//   - Effect results are turned into Events and fed back into the reducer.
//   - Host events are reduced in arrival order, one operation per event.
//
// ============================================================================

// runDaemon owns state until ctx is canceled or events is closed.
//
// The stored options are loaded once at start; until the load completes the
// shipped defaults are active.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	st store.Store,
	state *DaemonState,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) error {
	if state == nil {
		state = NewDaemonState("")
	}

	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bcs []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bcs {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping", "broadcast", b)
			}
		}
	}

	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(ctx, st, cmd, logger, enqueueEvent)

			// Reduce observations promptly so follow-up commands run in order.
			flushEvents()
		}
	}

	cmdQueue = append(cmdQueue, CmdLoadOptions{Reason: "startup"})
	flushCommands()

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return nil

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return nil
			}
			switch ev.(type) {
			case StoreChanged, RequestStateSnapshot:
				enqueueEvent(ev)
			default:
				enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			}
			flushEvents()
			flushCommands()
		}
	}
}

// watchStore forwards store changes into the event loop until ctx is done.
func watchStore(ctx context.Context, st store.Store, events chan<- Event, logger *slog.Logger) error {
	changes, err := st.Watch(ctx)
	if err != nil {
		return err
	}
	for c := range changes {
		logger.Debug("options store changed", "origin", c.Origin, "own", c.Origin == st.Origin())
		select {
		case events <- StoreChanged{Change: c}:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
