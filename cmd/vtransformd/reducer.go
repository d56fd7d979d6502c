package main

import (
	"time"

	"vtransform/internal/hotkey"
	"vtransform/internal/options"
	"vtransform/internal/store"
)

// This file implements the reducer-style architecture building blocks:
//
//   - Events: host events plus observations fed back by effects
//   - Commands: store I/O and replies requested by the reducer
//   - Reduce(): computes next state, commands and broadcasts without I/O
//
// The session objects (dispatcher, engine) live inside DaemonState and are
// only ever touched here, on the daemon goroutine.

// ==============================
// Internal events
// ==============================

// TimedEvent stamps a host event with its arrival time.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// OptionsLoaded is emitted after the stored snapshot was read and restored.
type OptionsLoaded struct {
	Options options.Options
	At      time.Time
}

func (OptionsLoaded) eventMarker() {}

// OptionsSaved is emitted after a successful save.
type OptionsSaved struct {
	At time.Time
}

func (OptionsSaved) eventMarker() {}

// StoreChanged is emitted by the store watcher.
type StoreChanged struct {
	Change store.Change
}

func (StoreChanged) eventMarker() {}

// StoreCommandFailed is emitted when executing a store Command fails.
type StoreCommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (StoreCommandFailed) eventMarker() {}

// RequestStateSnapshot asks the loop for a StateSnapshot on Reply.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce().
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce applies one event to the session.
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Rejected configuration leaves the previous options installed
//
// Broadcasts for style, gate, preset, options and page changes are derived by
// comparing the session before and after the event, so every path that
// changes them is reported exactly once.
func Reduce(s *DaemonState, e Event) ReduceResult {
	if s == nil {
		s = NewDaemonState("")
	}

	var at time.Time
	if te, ok := e.(TimedEvent); ok {
		e, at = te.Event, te.At
	}

	before := s.view()
	var cmds []Command
	var bcs []StateBroadcast

	switch ev := e.(type) {
	case KeyPressed:
		res := s.Dispatcher.Dispatch(ev.KeyEvent)
		if ev.Reply != nil {
			cmds = append(cmds, CmdReplyKey{Reply: ev.Reply, Result: res})
		}

	case OpInvoked:
		s.Dispatcher.Invoke(ev.Op)

	case ElementsObserved:
		s.SetObservedElements(ev.Elements, at)

	case AlwaysOnApplied:
		mode, err := hotkey.ParseMode(string(ev.Mode))
		if err != nil {
			bcs = append(bcs, rejection(err, at))
			break
		}
		s.Dispatcher.ApplyAlwaysOn(mode)

	case SettingsPatched:
		p, err := options.DecodeSettingsPatch(ev.Settings)
		if err != nil {
			bcs = append(bcs, rejection(err, at))
			break
		}
		s.Dispatcher.Engine().SetTransformSettings(p)

	case PageChanged:
		s.SetPage(ev.URL, at)

	case OptionsEdited:
		next, err := options.Merge(s.Options, ev.Options)
		if err == nil {
			next, err = options.Prepare(next)
		}
		if err != nil {
			bcs = append(bcs, rejection(err, at))
			cmds = appendEditReply(cmds, ev.Reply, EditOutcome{Options: s.Options.Clone(), Err: err})
			break
		}
		s.InstallOptions(next)
		cmds = append(cmds, CmdSaveOptions{Options: s.Options.Clone()})
		cmds = appendEditReply(cmds, ev.Reply, EditOutcome{Options: s.Options.Clone()})

	case PresetReset:
		s.InstallOptions(options.ResetToPreset(s.Options, ev.Preset))
		cmds = append(cmds, CmdSaveOptions{Options: s.Options.Clone()})
		cmds = appendEditReply(cmds, ev.Reply, EditOutcome{Options: s.Options.Clone()})

	case OptionsLoaded:
		at = ev.At
		s.InstallOptions(ev.Options)
		s.Store.Loaded = true
		s.Store.LoadedAt = ev.At
		s.Store.LastError = ""

	case OptionsSaved:
		s.Store.SavedAt = ev.At
		s.Store.LastError = ""

	case StoreChanged:
		// Our own saves come back as echoes; the in-memory options are already
		// what was written.
		if s.Store.Origin != "" && ev.Change.Origin == s.Store.Origin {
			break
		}
		cmds = append(cmds, CmdLoadOptions{Reason: "store_changed"})

	case StoreCommandFailed:
		at = ev.At
		s.Store.LastError = ev.Err.Error()
		if _, ok := ev.Command.(CmdLoadOptions); ok {
			bcs = append(bcs, rejection(ev.Err, at))
		}

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: s.Snapshot()})

	default:
		// Unknown event type: no-op.
	}

	bcs = append(bcs, diffBroadcasts(before, s.view(), s, at)...)

	return ReduceResult{
		State:      s,
		Commands:   cmds,
		Broadcasts: bcs,
	}
}

func appendEditReply(cmds []Command, reply chan<- EditOutcome, out EditOutcome) []Command {
	if reply == nil {
		return cmds
	}
	return append(cmds, CmdReplyEdit{Reply: reply, Outcome: out})
}
