package hotkey

import (
	"strings"

	"vtransform/internal/transform"
	"vtransform/internal/validation"
)

// Mode is the always-on setting. It gates the dispatcher at load time and picks
// the default target tag name.
type Mode string

const (
	ModeVideo Mode = "video_mode"
	ModeImage Mode = "image_mode"
	ModeOff   Mode = "off_mode"
)

// DefaultMode is the shipped always-on value. Preset classification is only
// attempted while the mode equals it.
const DefaultMode = ModeVideo

// Modes returns the accepted values in display order.
func Modes() []Mode { return []Mode{ModeVideo, ModeImage, ModeOff} }

// ParseMode accepts the stored names and the short forms "video", "image", "off".
func ParseMode(s string) (Mode, error) {
	switch s {
	case string(ModeVideo), "video":
		return ModeVideo, nil
	case string(ModeImage), "image":
		return ModeImage, nil
	case string(ModeOff), "off":
		return ModeOff, nil
	}
	return "", validation.New(validation.ReasonAlwaysOn, "always_on", "unknown mode %q (want %s)", s, modeList())
}

func modeList() string {
	ms := Modes()
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return strings.Join(out, ", ")
}

// Target returns the tag name the mode forces, and false for ModeOff.
func (m Mode) Target() (transform.Target, bool) {
	switch m {
	case ModeVideo:
		return transform.TargetVideo, true
	case ModeImage:
		return transform.TargetImage, true
	}
	return "", false
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
