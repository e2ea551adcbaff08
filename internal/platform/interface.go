package platform

import (
	"context"
	"errors"
)

// ErrNoFocus is returned when no window currently has focus
var ErrNoFocus = errors.New("no focused window")

// ErrUnsupported is returned when no window-state backend is available on this host
var ErrUnsupported = errors.New("no window-state backend available")

// WindowSource reports the currently focused application
type WindowSource interface {
	ActiveWindow(ctx context.Context) (*WindowInfo, error)
}

// WindowInfo contains information about the focused window
type WindowInfo struct {
	AppName     string `json:"appName"`
	WindowTitle string `json:"windowTitle"`
	ProcessName string `json:"processName"`
	PID         int    `json:"pid,omitempty"`
}

// SourceFunc adapts a function to WindowSource
type SourceFunc func(ctx context.Context) (*WindowInfo, error)

func (f SourceFunc) ActiveWindow(ctx context.Context) (*WindowInfo, error) {
	return f(ctx)
}
