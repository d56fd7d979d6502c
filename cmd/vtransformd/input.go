package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"vtransform/internal/binding"
	"vtransform/internal/hotkey"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// keyboard turns raw evdev key events into key-down chords. It tracks the
// modifier states across all devices, as the browser does for one window.
type keyboard struct {
	ctrl, alt, shift, meta map[uint16]bool
}

func newKeyboard() *keyboard {
	return &keyboard{
		ctrl:  map[uint16]bool{},
		alt:   map[uint16]bool{},
		shift: map[uint16]bool{},
		meta:  map[uint16]bool{},
	}
}

func (k *keyboard) modifierSet(code uint16) map[uint16]bool {
	switch code {
	case KEY_LEFTCTRL, KEY_RIGHTCTRL:
		return k.ctrl
	case KEY_LEFTALT, KEY_RIGHTALT:
		return k.alt
	case KEY_LEFTSHIFT, KEY_RIGHTSHIFT:
		return k.shift
	case KEY_LEFTMETA, KEY_RIGHTMETA:
		return k.meta
	}
	return nil
}

// translate updates modifier state and returns the key-down event for presses
// and auto-repeats. A modifier's own key-down carries its own modifier flag.
// Releases, non-key events and unmapped keys produce nothing.
func (k *keyboard) translate(ev inputEvent) (hotkey.KeyEvent, bool) {
	if ev.Type != EV_KEY {
		return hotkey.KeyEvent{}, false
	}

	if set := k.modifierSet(ev.Code); set != nil {
		if ev.Value == evValueRelease {
			delete(set, ev.Code)
		} else {
			set[ev.Code] = true
		}
	}

	if ev.Value != evValuePress && ev.Value != evValueRepeat {
		return hotkey.KeyEvent{}, false
	}
	name := keyCodeName(ev.Code)
	if name == "" {
		return hotkey.KeyEvent{}, false
	}

	return hotkey.KeyEvent{
		Chord: binding.Chord{
			Code:  name,
			Ctrl:  len(k.ctrl) > 0,
			Alt:   len(k.alt) > 0,
			Shift: len(k.shift) > 0,
			Meta:  len(k.meta) > 0,
		},
	}, true
}

// runInput opens the keyboard devices and forwards key-downs to the daemon
// until ctx is canceled. Evdev has no notion of focus, so every event targets
// the page body.
func runInput(ctx context.Context, devices []string, events chan<- Event, logger *slog.Logger) error {
	files := make([]*os.File, 0, len(devices))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, dev := range devices {
		f, err := os.Open(dev)
		if err != nil {
			return fmt.Errorf("open input device %s: %w (run as root or add user to 'input' group)", dev, err)
		}
		files = append(files, f)
	}

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readInputEvents(ctx, files, raw, readErr)

	logger.Info("keyboard input started", "devices", devices)

	kb := newKeyboard()
	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input reader stopped: %w", err)

		case ev := <-raw:
			ke, ok := kb.translate(ev)
			if !ok {
				continue
			}
			logger.Debug("key down", "chord", ke.Chord.String())
			select {
			case events <- KeyPressed{KeyEvent: ke}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
