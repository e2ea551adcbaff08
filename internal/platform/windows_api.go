//go:build windows

package platform

import (
	"context"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
)

// WindowsSource queries the foreground window through user32
type WindowsSource struct{}

// NewWindowsSource creates a new Windows window source
func NewWindowsSource() *WindowsSource {
	return &WindowsSource{}
}

// NewWindowSource creates the WindowSource for this platform
func NewWindowSource() WindowSource {
	return NewWindowsSource()
}

// ActiveWindow returns the foreground window. The calls are local and do not block,
// so ctx is only checked up front.
func (w *WindowsSource) ActiveWindow(ctx context.Context) (*WindowInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return nil, ErrNoFocus
	}

	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	if pid == 0 {
		return nil, ErrNoFocus
	}

	exePath, err := imagePath(pid)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(exePath)
	name := strings.TrimSuffix(filename, filepath.Ext(filename))

	return &WindowInfo{
		AppName:     name,
		WindowTitle: windowText(hwnd),
		ProcessName: strings.ToLower(filename),
		PID:         int(pid),
	}, nil
}

func imagePath(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", err
	}
	return windows.UTF16ToString(buf[:size]), nil
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}
