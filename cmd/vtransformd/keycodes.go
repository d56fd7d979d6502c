package main

// Linux input event codes (linux/input-event-codes.h) mapped to the
// KeyboardEvent.code names bindings are written in.

const (
	EV_KEY = 0x01
)

// Key values for EV_KEY events.
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// Modifier key codes.
const (
	KEY_LEFTCTRL   = 29
	KEY_LEFTSHIFT  = 42
	KEY_RIGHTSHIFT = 54
	KEY_LEFTALT    = 56
	KEY_RIGHTCTRL  = 97
	KEY_RIGHTALT   = 100
	KEY_LEFTMETA   = 125
	KEY_RIGHTMETA  = 126
)

var keyCodeNames = map[uint16]string{
	1:  "Escape",
	2:  "Digit1",
	3:  "Digit2",
	4:  "Digit3",
	5:  "Digit4",
	6:  "Digit5",
	7:  "Digit6",
	8:  "Digit7",
	9:  "Digit8",
	10: "Digit9",
	11: "Digit0",
	12: "Minus",
	13: "Equal",
	14: "Backspace",
	15: "Tab",
	16: "KeyQ",
	17: "KeyW",
	18: "KeyE",
	19: "KeyR",
	20: "KeyT",
	21: "KeyY",
	22: "KeyU",
	23: "KeyI",
	24: "KeyO",
	25: "KeyP",
	26: "BracketLeft",
	27: "BracketRight",
	28: "Enter",
	30: "KeyA",
	31: "KeyS",
	32: "KeyD",
	33: "KeyF",
	34: "KeyG",
	35: "KeyH",
	36: "KeyJ",
	37: "KeyK",
	38: "KeyL",
	39: "Semicolon",
	40: "Quote",
	41: "Backquote",
	43: "Backslash",
	44: "KeyZ",
	45: "KeyX",
	46: "KeyC",
	47: "KeyV",
	48: "KeyB",
	49: "KeyN",
	50: "KeyM",
	51: "Comma",
	52: "Period",
	53: "Slash",
	55: "NumpadMultiply",
	57: "Space",
	58: "CapsLock",
	59: "F1",
	60: "F2",
	61: "F3",
	62: "F4",
	63: "F5",
	64: "F6",
	65: "F7",
	66: "F8",
	67: "F9",
	68: "F10",
	69: "NumLock",
	71: "Numpad7",
	72: "Numpad8",
	73: "Numpad9",
	74: "NumpadSubtract",
	75: "Numpad4",
	76: "Numpad5",
	77: "Numpad6",
	78: "NumpadAdd",
	79: "Numpad1",
	80: "Numpad2",
	81: "Numpad3",
	82: "Numpad0",
	83: "NumpadDecimal",
	87: "F11",
	88: "F12",
	96: "NumpadEnter",
	98: "NumpadDivide",

	102: "Home",
	103: "ArrowUp",
	104: "PageUp",
	105: "ArrowLeft",
	106: "ArrowRight",
	107: "End",
	108: "ArrowDown",
	109: "PageDown",
	110: "Insert",
	111: "Delete",

	KEY_LEFTCTRL:   "ControlLeft",
	KEY_RIGHTCTRL:  "ControlRight",
	KEY_LEFTSHIFT:  "ShiftLeft",
	KEY_RIGHTSHIFT: "ShiftRight",
	KEY_LEFTALT:    "AltLeft",
	KEY_RIGHTALT:   "AltRight",
	KEY_LEFTMETA:   "MetaLeft",
	KEY_RIGHTMETA:  "MetaRight",
}

// keyCodeName returns the code name for an evdev key, or "" when unmapped.
func keyCodeName(code uint16) string {
	return keyCodeNames[code]
}
