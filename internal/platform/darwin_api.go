//go:build darwin

package platform

import (
	"context"
	"strings"
)

const frontmostScript = `tell application "System Events"
	set frontApp to first application process whose frontmost is true
	set appName to name of frontApp
	set procName to unix id of frontApp
	set winTitle to ""
	try
		set winTitle to name of front window of frontApp
	end try
end tell
return appName & "\n" & winTitle & "\n" & procName`

// DarwinSource queries System Events through osascript
type DarwinSource struct {
	run commandRunner
}

// NewDarwinSource creates a new macOS window source
func NewDarwinSource() *DarwinSource {
	return &DarwinSource{run: runCommand}
}

// NewWindowSource creates the WindowSource for this platform
func NewWindowSource() WindowSource {
	return NewDarwinSource()
}

// ActiveWindow returns the frontmost application and its front window title
func (d *DarwinSource) ActiveWindow(ctx context.Context) (*WindowInfo, error) {
	out, err := d.run(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	name := strings.TrimSpace(lines[0])
	if name == "" {
		return nil, ErrNoFocus
	}

	info := &WindowInfo{AppName: name, ProcessName: strings.ToLower(name)}
	if len(lines) > 1 {
		info.WindowTitle = strings.TrimSpace(lines[1])
	}
	return info, nil
}
