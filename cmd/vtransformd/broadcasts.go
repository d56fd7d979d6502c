package main

import (
	"time"

	"vtransform/internal/options"
	"vtransform/internal/transform"
	"vtransform/internal/validation"
)

// StateBroadcast is a reducer-emitted notification for websocket clients.
// Broadcasts carry plain values, never pointers into DaemonState.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastStyleChanged carries the recomputed style declaration. Hosts inject
// Style into the document.
type BroadcastStyleChanged struct {
	Style     string
	Target    transform.Target
	Transform transform.State
	At        time.Time
}

// BroadcastEnabledChanged reports the dispatcher gate.
type BroadcastEnabledChanged struct {
	Enabled bool
	Target  transform.Target
	At      time.Time
}

// BroadcastPresetChanged reports a new preset label.
type BroadcastPresetChanged struct {
	Preset string
	At     time.Time
}

// BroadcastOptionsChanged carries newly installed options.
type BroadcastOptionsChanged struct {
	Options options.Options
	At      time.Time
}

// BroadcastOptionsRejected reports a configuration the session refused. The
// previous options stay active.
type BroadcastOptionsRejected struct {
	Reason  validation.Reason
	Field   string
	Message string
	At      time.Time
}

// BroadcastPageChanged reports a navigation.
type BroadcastPageChanged struct {
	URL         string
	DirectVideo bool
	At          time.Time
}

func (BroadcastStyleChanged) broadcastMarker()    {}
func (BroadcastEnabledChanged) broadcastMarker()  {}
func (BroadcastPresetChanged) broadcastMarker()   {}
func (BroadcastOptionsChanged) broadcastMarker()  {}
func (BroadcastOptionsRejected) broadcastMarker() {}
func (BroadcastPageChanged) broadcastMarker()     {}

// rejection turns an error into a broadcast. Errors without a reason key are
// reported under the snapshot reason.
func rejection(err error, at time.Time) BroadcastOptionsRejected {
	b := BroadcastOptionsRejected{
		Reason:  validation.ReasonBadSnapshot,
		Message: err.Error(),
		At:      at,
	}
	if ve, ok := validation.As(err); ok {
		b.Reason = ve.Reason
		b.Field = ve.Field
		b.Message = ve.Message
		if b.Message == "" && ve.Cause != nil {
			b.Message = ve.Cause.Error()
		}
	}
	return b
}

// diffBroadcasts compares the session before and after one reduction.
func diffBroadcasts(before, after sessionView, s *DaemonState, at time.Time) []StateBroadcast {
	var out []StateBroadcast
	if after.pageSeq != before.pageSeq {
		out = append(out, BroadcastPageChanged{URL: s.Page.URL, DirectVideo: s.Page.DirectVideo, At: at})
	}
	if after.optionsRev != before.optionsRev {
		out = append(out, BroadcastOptionsChanged{Options: s.Options.Clone(), At: at})
	}
	if after.preset != before.preset {
		out = append(out, BroadcastPresetChanged{Preset: after.preset, At: at})
	}
	if after.enabled != before.enabled || after.target != before.target {
		out = append(out, BroadcastEnabledChanged{Enabled: after.enabled, Target: after.target, At: at})
	}
	if after.style != before.style {
		out = append(out, BroadcastStyleChanged{
			Style:     after.style,
			Target:    after.target,
			Transform: s.Engine().State(),
			At:        at,
		})
	}
	return out
}
