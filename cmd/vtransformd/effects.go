package main

import (
	"context"
	"log/slog"
	"time"

	"vtransform/internal/options"
	"vtransform/internal/store"
)

// storeTimeout bounds one load or save so a stuck backend cannot stall the loop.
const storeTimeout = 3 * time.Second

// runEffect executes a single reducer-emitted Command against the options store
// or a waiting caller, and emits observation Events via onEvent.
//
// It must never call Reduce() directly; the daemon loop sequences
// Reduce -> Commands -> runEffect -> Events -> Reduce.
func runEffect(
	ctx context.Context,
	st store.Store,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}

	switch c := cmd.(type) {
	case CmdLoadOptions:
		if st == nil {
			onEvent(StoreCommandFailed{Command: cmd, Err: store.ErrClosed, At: time.Now()})
			return
		}
		lctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		o, err := options.Load(lctx, st)
		if err != nil {
			logger.Error("options load failed", "reason", c.Reason, "error", err)
			onEvent(StoreCommandFailed{Command: cmd, Err: err, At: time.Now()})
			return
		}
		logger.Info("options loaded", "reason", c.Reason, "options", o.String())
		onEvent(OptionsLoaded{Options: o, At: time.Now()})

	case CmdSaveOptions:
		if st == nil {
			onEvent(StoreCommandFailed{Command: cmd, Err: store.ErrClosed, At: time.Now()})
			return
		}
		sctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if err := options.Save(sctx, st, c.Options); err != nil {
			logger.Error("options save failed", "error", err)
			onEvent(StoreCommandFailed{Command: cmd, Err: err, At: time.Now()})
			return
		}
		logger.Debug("options saved", "options", c.Options.String())
		onEvent(OptionsSaved{At: time.Now()})

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	case CmdReplyKey:
		select {
		case c.Reply <- c.Result:
		default:
			logger.Warn("key reply channel not ready; dropping result")
		}

	case CmdReplyEdit:
		select {
		case c.Reply <- c.Outcome:
		default:
			logger.Warn("edit reply channel not ready; dropping outcome")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
	}
}
