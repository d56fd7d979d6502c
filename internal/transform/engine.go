package transform

import (
	"math"

	"vtransform/internal/op"
)

// Dimensions are the natural width and height of one live target element.
// Zero values mean the element has not reported its size yet.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ElementSource enumerates the live elements of a tag name, in document order.
type ElementSource interface {
	TargetElements(t Target) []Dimensions
}

// Elements is a fixed ElementSource that reports the same elements for any target.
type Elements []Dimensions

func (e Elements) TargetElements(Target) []Dimensions { return e }

// Engine applies named transform operations to a State.
type Engine struct {
	settings Settings
	state    State
	elements ElementSource
	style    string
}

// NewEngine returns an engine at the identity state.
// elements may be nil, in which case the vertical-scale rule never finds dimensions.
func NewEngine(settings Settings, elements ElementSource) *Engine {
	e := &Engine{
		settings: settings,
		state:    Identity(),
		elements: elements,
	}
	e.render()
	return e
}

func (e *Engine) State() State                       { return e.state }
func (e *Engine) Settings() Settings                 { return e.settings }
func (e *Engine) Style() string                      { return e.style }
func (e *Engine) IsTransformed() bool                { return e.state.IsTransformed() }
func (e *Engine) Target() Target                     { return e.settings.TargetTagName }
func (e *Engine) SetElementSource(src ElementSource) { e.elements = src }

// SetTransformSettings merges p into the settings. A change of target tag name
// resets the state to identity and reports true.
func (e *Engine) SetTransformSettings(p SettingsPatch) bool {
	old := e.settings.TargetTagName
	e.settings = e.settings.Apply(p)
	if e.settings.TargetTagName != old {
		e.Reset()
		return true
	}
	e.render()
	return false
}

// Apply runs one operation. It reports false for operations the engine does not
// own (Unset and the enable toggles); CaptureEvent is accepted and changes nothing.
func (e *Engine) Apply(o op.Op) bool {
	switch o {
	case op.ZoomIn:
		e.ZoomIn()
	case op.ZoomOut:
		e.ZoomOut()
	case op.IncreaseStretchX:
		e.IncreaseStretchX()
	case op.DecreaseStretchX:
		e.DecreaseStretchX()
	case op.IncreaseStretchY:
		e.IncreaseStretchY()
	case op.DecreaseStretchY:
		e.DecreaseStretchY()
	case op.RotateCounterClockwise:
		e.Rotate(-e.settings.RotateIncrement)
	case op.RotateClockwise:
		e.Rotate(e.settings.RotateIncrement)
	case op.RotateCounterClockwise90:
		e.Rotate90(-1)
	case op.RotateClockwise90:
		e.Rotate90(1)
	case op.FlipHorizontal:
		e.FlipHorizontal()
	case op.FlipVertical:
		e.FlipVertical()
	case op.PositionUp:
		e.Move(0, -1)
	case op.PositionUpRight:
		e.Move(1, -1)
	case op.PositionRight:
		e.Move(1, 0)
	case op.PositionDownRight:
		e.Move(1, 1)
	case op.PositionDown:
		e.Move(0, 1)
	case op.PositionDownLeft:
		e.Move(-1, 1)
	case op.PositionLeft:
		e.Move(-1, 0)
	case op.PositionUpLeft:
		e.Move(-1, -1)
	case op.Recenter:
		e.Recenter()
	case op.Reset:
		e.Reset()
	case op.CaptureEvent:
		// Only swallows the key.
	default:
		return false
	}
	return true
}

// Translate shifts the position by dx, dy pixels.
func (e *Engine) Translate(dx, dy float64) {
	e.state.Left += dx
	e.state.Top += dy
	e.render()
}

// Move shifts the position by whole position increments along each axis.
// Use (-1|0|1, -1|0|1); diagonals change both axes in one step.
func (e *Engine) Move(xSteps, ySteps int) {
	inc := e.settings.PositionIncrement
	e.Translate(float64(xSteps)*inc, float64(ySteps)*inc)
}

// Rotate adds delta degrees to the rotation.
func (e *Engine) Rotate(delta float64) {
	e.state.Rotate += delta
	e.render()
}

// Rotate90 turns a quarter in dir (+1 clockwise, -1 counter clockwise) and
// recomputes the scale with the vertical-scale rule.
func (e *Engine) Rotate90(dir int) {
	scale := e.verticalScale()
	e.state.Rotate += 90 * float64(dir)
	e.state.Scale = scale
	e.render()
}

// verticalScale must run before the quarter turn is added to the rotation.
// Leaving a multiple of 180 turns a landscape video into portrait, so it is
// scaled by height/width of the first element with known dimensions. Leaving an
// odd multiple of 90 returns to landscape and restores 1.0.
func (e *Engine) verticalScale() float64 {
	if e.settings.TargetTagName != TargetVideo {
		return 1.0
	}
	result := e.state.Scale
	if e.elements == nil {
		return result
	}
	for _, el := range e.elements.TargetElements(e.settings.TargetTagName) {
		switch {
		case math.Mod(e.state.Rotate, 180) == 0:
			if el.Width != 0 && el.Height != 0 {
				return el.Height / el.Width
			}
		case math.Mod(e.state.Rotate, 90) == 0:
			return 1.0
		}
	}
	return result
}

// FlipHorizontal mirrors left to right. The stored angle keeps growing; two
// flips are visually the identity but leave RotateY at +360.
func (e *Engine) FlipHorizontal() {
	e.state.RotateY += 180
	e.render()
}

// FlipVertical mirrors top to bottom.
func (e *Engine) FlipVertical() {
	e.state.Rotate += 180
	e.state.RotateY += 180
	e.render()
}

func (e *Engine) ZoomIn() {
	e.state.Scale = step(e.state.Scale, e.settings.ScaleIncrement, 1, 1.0)
	e.render()
}

func (e *Engine) ZoomOut() {
	e.state.Scale = step(e.state.Scale, e.settings.ScaleIncrement, -1, 1.0)
	e.render()
}

func (e *Engine) IncreaseStretchX() {
	e.state.ScaleX = step(e.state.ScaleX, e.settings.ScaleIncrement, 1, 1.0, Scale16x10)
	e.render()
}

func (e *Engine) DecreaseStretchX() {
	e.state.ScaleX = step(e.state.ScaleX, e.settings.ScaleIncrement, -1, 1.0, Scale16x10)
	e.render()
}

func (e *Engine) IncreaseStretchY() {
	e.state.ScaleY = step(e.state.ScaleY, e.settings.ScaleIncrement, 1, 1.0, Scale21x9)
	e.render()
}

func (e *Engine) DecreaseStretchY() {
	e.state.ScaleY = step(e.state.ScaleY, e.settings.ScaleIncrement, -1, 1.0, Scale21x9)
	e.render()
}

// Recenter zeroes the position and keeps rotation and scale.
func (e *Engine) Recenter() {
	e.state.Left = 0
	e.state.Top = 0
	e.render()
}

// Reset restores the identity state.
func (e *Engine) Reset() {
	e.state = Identity()
	e.render()
}

func (e *Engine) render() {
	e.style = RenderStyle(e.settings.TargetTagName, e.state)
}
