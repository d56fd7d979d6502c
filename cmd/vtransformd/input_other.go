//go:build !linux

package main

import (
	"context"
	"errors"
	"os"
)

func readInputEvents(ctx context.Context, files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	readErr <- errors.New("evdev keyboard input is only supported on linux")
}
