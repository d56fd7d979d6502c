package main

import (
	"encoding/json"
	"fmt"

	"vtransform/internal/hotkey"
	"vtransform/internal/op"
	"vtransform/internal/transform"
)

// ============================================================================
// Host Events
// ============================================================================
// Events represent intent from the hosts attached to a session (evdev input,
// IPC, HTTP API). The daemon loop wraps each one in a TimedEvent and reduces it.
// Reply channels are never serialized; IPC and HTTP callers get one attached
// by the session client.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// KeyPressed is one key-down from a host, with its focus target.
type KeyPressed struct {
	hotkey.KeyEvent
	Reply chan<- hotkey.Result `json:"-"`
}

func (KeyPressed) eventMarker() {}

// OpInvoked runs an operation directly, without key matching or the enable gate.
type OpInvoked struct {
	Op op.Op `json:"op"`
}

func (OpInvoked) eventMarker() {}

// ElementsObserved reports the natural sizes of the live target elements.
type ElementsObserved struct {
	Elements []transform.Dimensions `json:"elements"`
}

func (ElementsObserved) eventMarker() {}

// OptionsEdited is a partial options snapshot from a settings editor. It is
// merged over the current options, validated and persisted.
type OptionsEdited struct {
	Options json.RawMessage    `json:"options"`
	Reply   chan<- EditOutcome `json:"-"`
}

func (OptionsEdited) eventMarker() {}

// PresetReset installs a shipped preset with the default always-on mode.
type PresetReset struct {
	Preset string             `json:"preset"`
	Reply  chan<- EditOutcome `json:"-"`
}

func (PresetReset) eventMarker() {}

// AlwaysOnApplied changes the session gate without touching stored options.
type AlwaysOnApplied struct {
	Mode hotkey.Mode `json:"mode"`
}

func (AlwaysOnApplied) eventMarker() {}

// SettingsPatched merges a partial transform settings object into the session
// engine without touching stored options. A target change resets the transform.
type SettingsPatched struct {
	Settings json.RawMessage `json:"settings"`
}

func (SettingsPatched) eventMarker() {}

// PageChanged is sent by a host when navigation loads a new document or
// video. The session resets to identity.
type PageChanged struct {
	URL string `json:"url,omitempty"`
}

func (PageChanged) eventMarker() {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	eventKeyPressed       = "key_pressed"
	eventOpInvoked        = "op_invoked"
	eventElementsObserved = "elements_observed"
	eventOptionsEdited    = "options_edited"
	eventPresetReset      = "reset_to_preset"
	eventAlwaysOnApplied  = "apply_always_on"
	eventPageChanged      = "page_changed"
	eventSettingsPatched  = "patch_transform_settings"
)

// UnmarshalEvent decodes a typed payload into a concrete host Event.
func UnmarshalEvent(typ string, data json.RawMessage) (Event, error) {
	switch typ {
	case eventKeyPressed:
		return decodeEvent[KeyPressed](typ, data)
	case eventOpInvoked:
		e, err := decodeEvent[OpInvoked](typ, data)
		if err == nil && e.(OpInvoked).Op == op.Unset {
			return nil, fmt.Errorf("unmarshal %s: missing op", typ)
		}
		return e, err
	case eventElementsObserved:
		return decodeEvent[ElementsObserved](typ, data)
	case eventOptionsEdited:
		e, err := decodeEvent[OptionsEdited](typ, data)
		if err == nil && len(e.(OptionsEdited).Options) == 0 {
			return nil, fmt.Errorf("unmarshal %s: missing options", typ)
		}
		return e, err
	case eventPresetReset:
		return decodeEvent[PresetReset](typ, data)
	case eventAlwaysOnApplied:
		return decodeEvent[AlwaysOnApplied](typ, data)
	case eventPageChanged:
		return decodeEvent[PageChanged](typ, data)
	case eventSettingsPatched:
		e, err := decodeEvent[SettingsPatched](typ, data)
		if err == nil && len(e.(SettingsPatched).Settings) == 0 {
			return nil, fmt.Errorf("unmarshal %s: missing settings", typ)
		}
		return e, err
	default:
		return nil, fmt.Errorf("unknown event type: %q", typ)
	}
}

func decodeEvent[T Event](typ string, data json.RawMessage) (Event, error) {
	var e T
	if len(data) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", typ, err)
	}
	return e, nil
}

// MarshalEvent encodes a host Event into an envelope.
func MarshalEvent(e Event) (EventEnvelope, error) {
	var typ string
	switch e.(type) {
	case KeyPressed:
		typ = eventKeyPressed
	case OpInvoked:
		typ = eventOpInvoked
	case ElementsObserved:
		typ = eventElementsObserved
	case OptionsEdited:
		typ = eventOptionsEdited
	case PresetReset:
		typ = eventPresetReset
	case AlwaysOnApplied:
		typ = eventAlwaysOnApplied
	case PageChanged:
		typ = eventPageChanged
	case SettingsPatched:
		typ = eventSettingsPatched
	default:
		return EventEnvelope{}, fmt.Errorf("unsupported event type: %T", e)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return EventEnvelope{Type: typ, Data: data}, nil
}
