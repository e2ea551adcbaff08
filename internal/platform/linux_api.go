//go:build linux

package platform

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// LinuxSource queries Hyprland through hyprctl, falling back to xdotool on X11
type LinuxSource struct {
	run       commandRunner
	lookPath  func(string) (string, error)
	procName  func(int) string
	hyprland  bool
}

// NewLinuxSource creates a new Linux window source
func NewLinuxSource() *LinuxSource {
	return &LinuxSource{
		run:      runCommand,
		lookPath: exec.LookPath,
		procName: processName,
		hyprland: os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "",
	}
}

// NewWindowSource creates the WindowSource for this platform
func NewWindowSource() WindowSource {
	return NewLinuxSource()
}

// ActiveWindow returns the focused window
func (l *LinuxSource) ActiveWindow(ctx context.Context) (*WindowInfo, error) {
	if l.hyprland {
		return l.hyprctl(ctx)
	}
	if _, err := l.lookPath("xdotool"); err == nil {
		return l.xdotool(ctx)
	}
	if _, err := l.lookPath("hyprctl"); err == nil {
		return l.hyprctl(ctx)
	}
	return nil, ErrUnsupported
}

func (l *LinuxSource) hyprctl(ctx context.Context) (*WindowInfo, error) {
	out, err := l.run(ctx, "hyprctl", "activewindow")
	if err != nil {
		return nil, err
	}

	info, err := parseHyprctlActiveWindow(string(out))
	if err != nil {
		return nil, err
	}
	if name := l.procName(info.PID); name != "" {
		info.ProcessName = name
	}
	return info, nil
}

func (l *LinuxSource) xdotool(ctx context.Context) (*WindowInfo, error) {
	out, err := l.run(ctx, "xdotool", "getactivewindow", "getwindowclassname", "getwindowname", "getwindowpid")
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) == "" {
		return nil, ErrNoFocus
	}

	info := &WindowInfo{
		AppName:     strings.TrimSpace(lines[0]),
		WindowTitle: strings.TrimSpace(lines[1]),
		ProcessName: strings.ToLower(strings.TrimSpace(lines[0])),
	}
	if len(lines) > 2 {
		if pid, err := strconv.Atoi(strings.TrimSpace(lines[2])); err == nil {
			info.PID = pid
			if name := l.procName(pid); name != "" {
				info.ProcessName = name
			}
		}
	}
	return info, nil
}
