package platform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// commandRunner executes an external helper and returns its stdout
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// parseHyprctlActiveWindow parses the text output of `hyprctl activewindow`.
// The first line is a "Window <addr> -> <title>:" header followed by key: value lines.
func parseHyprctlActiveWindow(output string) (*WindowInfo, error) {
	output = strings.TrimSpace(output)
	if output == "" || strings.EqualFold(output, "invalid") {
		return nil, ErrNoFocus
	}

	fields := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Window ") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, seen := fields[key]; !seen {
			fields[key] = strings.TrimSpace(value)
		}
	}

	class := fields["class"]
	if class == "" {
		class = fields["initialClass"]
	}
	if class == "" {
		return nil, ErrNoFocus
	}

	info := &WindowInfo{
		AppName:     class,
		WindowTitle: fields["title"],
		ProcessName: strings.ToLower(class),
	}
	if pid, err := strconv.Atoi(fields["pid"]); err == nil && pid > 0 {
		info.PID = pid
	}
	return info, nil
}

// processName reads the kernel's short command name for pid
func processName(pid int) string {
	if pid <= 0 {
		return ""
	}
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/comm")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
