package main

import (
	"fmt"

	"vtransform/internal/hotkey"
	"vtransform/internal/options"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop:
// options store I/O and replies to waiting callers.
type Command interface {
	commandMarker()
	String() string
}

// CmdLoadOptions reads the stored snapshot and restores options from it.
type CmdLoadOptions struct {
	Reason string
}

func (CmdLoadOptions) commandMarker() {}
func (c CmdLoadOptions) String() string {
	return fmt.Sprintf("CmdLoadOptions(reason=%s)", c.Reason)
}

// CmdSaveOptions persists already-validated options.
type CmdSaveOptions struct {
	Options options.Options
}

func (CmdSaveOptions) commandMarker() {}
func (c CmdSaveOptions) String() string {
	return fmt.Sprintf("CmdSaveOptions(%s)", c.Options)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to the requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }

// CmdReplyKey tells a host what became of its key event.
type CmdReplyKey struct {
	Reply  chan<- hotkey.Result
	Result hotkey.Result
}

func (CmdReplyKey) commandMarker() {}
func (c CmdReplyKey) String() string {
	return fmt.Sprintf("CmdReplyKey(matched=%v handled=%v op=%s)", c.Result.Matched, c.Result.Handled, c.Result.Op)
}

// EditOutcome is the answer to an options edit: the installed options, or the
// rejection that left the previous options active.
type EditOutcome struct {
	Options options.Options
	Err     error
}

// CmdReplyEdit answers an options edit.
type CmdReplyEdit struct {
	Reply   chan<- EditOutcome
	Outcome EditOutcome
}

func (CmdReplyEdit) commandMarker() {}
func (c CmdReplyEdit) String() string {
	return fmt.Sprintf("CmdReplyEdit(err=%v)", c.Outcome.Err)
}
