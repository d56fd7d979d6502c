package main

import (
	"time"

	"vtransform/internal/hotkey"
	"vtransform/internal/options"
	"vtransform/internal/transform"
)

// DaemonState is the top-level, daemon-owned state container for one target
// surface session.
//
// The dispatcher and the engine it drives are mutable objects; only the daemon
// goroutine may touch them. Other goroutines see StateSnapshot copies.
type DaemonState struct {
	Dispatcher *hotkey.Dispatcher

	// Options is the last valid configuration, installed into Dispatcher.
	Options    options.Options
	OptionsRev int

	// Elements is the last reported set of live target element sizes.
	Elements   []transform.Dimensions
	ElementsAt time.Time

	Page  PageState
	Store StoreState
}

// PageState is what the host last told us about the document.
type PageState struct {
	URL         string
	DirectVideo bool
	At          time.Time
	Seq         int
}

// StoreState tracks the options store as observed by effects.
type StoreState struct {
	// Origin is this daemon's writer identity; changes carrying it are echoes.
	Origin string

	Loaded    bool
	LoadedAt  time.Time
	SavedAt   time.Time
	LastError string
}

// NewDaemonState returns a session with the shipped options installed. The
// stored options replace them once the first load completes.
func NewDaemonState(origin string) *DaemonState {
	engine := transform.NewEngine(transform.DefaultSettings(), nil)
	s := &DaemonState{
		Dispatcher: hotkey.New(engine),
		Store:      StoreState{Origin: origin},
	}
	s.InstallOptions(options.Default())
	return s
}

func (s *DaemonState) Engine() *transform.Engine { return s.Dispatcher.Engine() }

// InstallOptions makes o the active configuration and re-derives the dispatcher
// gate, table and engine target from it. o must already be valid.
func (s *DaemonState) InstallOptions(o options.Options) {
	s.Options = o.Clone()
	s.OptionsRev++
	s.Dispatcher.Configure(s.Options.DispatcherConfig())
}

// SetObservedElements replaces the live element sizes used by the 90 degree
// rotations.
func (s *DaemonState) SetObservedElements(dims []transform.Dimensions, now time.Time) {
	s.Elements = append([]transform.Dimensions(nil), dims...)
	s.ElementsAt = now
	s.Engine().SetElementSource(transform.Elements(s.Elements))
}

// SetPage records a navigation and resets the session transform.
func (s *DaemonState) SetPage(url string, now time.Time) {
	s.Page = PageState{
		URL:         url,
		DirectVideo: transform.IsDirectVideoURL(url),
		At:          now,
		Seq:         s.Page.Seq + 1,
	}
	s.Engine().Reset()
}

// StateSnapshot is a copy of the session for other goroutines.
type StateSnapshot struct {
	Enabled     bool                   `json:"enabled"`
	Target      transform.Target       `json:"target"`
	Style       string                 `json:"style"`
	Transform   transform.State        `json:"transform"`
	Transformed bool                   `json:"transformed"`
	Preset      string                 `json:"preset"`
	Options     options.Options        `json:"options"`
	Elements    []transform.Dimensions `json:"elements"`
	PageURL     string                 `json:"page_url,omitempty"`
	DirectVideo bool                   `json:"direct_video"`
	Loaded      bool                   `json:"options_loaded"`
}

// Snapshot copies the session state.
func (s *DaemonState) Snapshot() StateSnapshot {
	e := s.Engine()
	return StateSnapshot{
		Enabled:     s.Dispatcher.Enabled(),
		Target:      e.Target(),
		Style:       e.Style(),
		Transform:   e.State(),
		Transformed: e.IsTransformed(),
		Preset:      s.Options.Preset,
		Options:     s.Options.Clone(),
		Elements:    append([]transform.Dimensions{}, s.Elements...),
		PageURL:     s.Page.URL,
		DirectVideo: s.Page.DirectVideo,
		Loaded:      s.Store.Loaded,
	}
}

// sessionView is the part of the state that clients are told about when it
// changes.
type sessionView struct {
	style      string
	enabled    bool
	target     transform.Target
	preset     string
	optionsRev int
	pageSeq    int
}

func (s *DaemonState) view() sessionView {
	e := s.Engine()
	return sessionView{
		style:      e.Style(),
		enabled:    s.Dispatcher.Enabled(),
		target:     e.Target(),
		preset:     s.Options.Preset,
		optionsRev: s.OptionsRev,
		pageSeq:    s.Page.Seq,
	}
}
