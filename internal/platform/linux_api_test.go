//go:build linux

package platform

import (
	"context"
	"errors"
	"testing"
)

func newTestLinuxSource(out string, runErr error, hyprland bool, available ...string) (*LinuxSource, *[]string) {
	var calls []string
	return &LinuxSource{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			calls = append(calls, name)
			return []byte(out), runErr
		},
		lookPath: func(name string) (string, error) {
			for _, a := range available {
				if a == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", errors.New("not found")
		},
		procName: func(pid int) string {
			if pid == 77 {
				return "code-oss"
			}
			return ""
		},
		hyprland: hyprland,
	}, &calls
}

func TestLinuxSource_Hyprland(t *testing.T) {
	src, calls := newTestLinuxSource("Window 1 -> t:\n\tclass: Code\n\ttitle: main.go\n\tpid: 77\n", nil, true)

	info, err := src.ActiveWindow(context.Background())
	if err != nil {
		t.Fatalf("ActiveWindow() error = %v", err)
	}
	if len(*calls) != 1 || (*calls)[0] != "hyprctl" {
		t.Fatalf("expected hyprctl call, got %v", *calls)
	}
	if info.AppName != "Code" || info.ProcessName != "code-oss" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestLinuxSource_Xdotool(t *testing.T) {
	src, calls := newTestLinuxSource("Firefox\nDocs - Mozilla Firefox\n12\n", nil, false, "xdotool")

	info, err := src.ActiveWindow(context.Background())
	if err != nil {
		t.Fatalf("ActiveWindow() error = %v", err)
	}
	if (*calls)[0] != "xdotool" {
		t.Fatalf("expected xdotool call, got %v", *calls)
	}
	if info.AppName != "Firefox" || info.WindowTitle != "Docs - Mozilla Firefox" || info.ProcessName != "firefox" {
		t.Errorf("unexpected info %+v", info)
	}
	if info.PID != 12 {
		t.Errorf("PID = %d, want 12", info.PID)
	}
}

func TestLinuxSource_XdotoolNoWindow(t *testing.T) {
	src, _ := newTestLinuxSource("\n", nil, false, "xdotool")

	if _, err := src.ActiveWindow(context.Background()); !errors.Is(err, ErrNoFocus) {
		t.Errorf("expected ErrNoFocus, got %v", err)
	}
}

func TestLinuxSource_CommandError(t *testing.T) {
	src, _ := newTestLinuxSource("", errors.New("exit status 1"), true)

	if _, err := src.ActiveWindow(context.Background()); err == nil {
		t.Error("expected command error to propagate")
	}
}

func TestLinuxSource_NoBackend(t *testing.T) {
	src, calls := newTestLinuxSource("", nil, false)

	if _, err := src.ActiveWindow(context.Background()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if len(*calls) != 0 {
		t.Errorf("expected no commands, got %v", *calls)
	}
}
