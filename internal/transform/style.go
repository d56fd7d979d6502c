package transform

import (
	"strconv"
	"strings"
)

// compositingFix is a negligible extra rotation that keeps transforms applied in
// fullscreen on Chromium with hardware acceleration.
const compositingFix = "rotateZ(0.000001deg)"

// RenderStyle renders s as one rule scoped to the tag name, transform origin centered.
func RenderStyle(tag Target, s State) string {
	var b strings.Builder
	b.WriteString(string(tag))
	b.WriteString(" { transform-origin: center !important; transform: ")
	b.WriteString("translate(" + num(s.Left) + "px, " + num(s.Top) + "px) ")
	b.WriteString("rotate(" + num(s.Rotate) + "deg) ")
	b.WriteString("rotateY(" + num(s.RotateY) + "deg) ")
	b.WriteString("scale(" + num(s.Scale) + ") ")
	b.WriteString("scaleX(" + num(s.ScaleX) + ") ")
	b.WriteString("scaleY(" + num(s.ScaleY) + ") ")
	b.WriteString(compositingFix)
	b.WriteString(" !important; }")
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsDirectVideoURL reports whether href points straight at a video file.
// Hosts use it to enable the full-viewport and double-click fullscreen fixes.
func IsDirectVideoURL(href string) bool {
	for _, ext := range []string{".mp4", ".webm"} {
		if strings.HasSuffix(href, ext) {
			return true
		}
	}
	return false
}
