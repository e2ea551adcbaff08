package platform

import (
	"errors"
	"testing"
)

func TestParseHyprctlActiveWindow(t *testing.T) {
	output := `Window 55d8b0c2a1e0 -> Mozilla Firefox:
	mapped: 1
	hidden: 0
	at: 10,50
	size: 1900,1020
	workspace: 1 (1)
	floating: 0
	class: firefox
	title: GitHub - Mozilla Firefox
	initialClass: firefox
	initialTitle: Mozilla Firefox
	pid: 4242
	xwayland: 0
`

	info, err := parseHyprctlActiveWindow(output)
	if err != nil {
		t.Fatalf("parseHyprctlActiveWindow() error = %v", err)
	}
	if info.AppName != "firefox" {
		t.Errorf("AppName = %q, want firefox", info.AppName)
	}
	if info.WindowTitle != "GitHub - Mozilla Firefox" {
		t.Errorf("WindowTitle = %q", info.WindowTitle)
	}
	if info.ProcessName != "firefox" {
		t.Errorf("ProcessName = %q, want firefox", info.ProcessName)
	}
	if info.PID != 4242 {
		t.Errorf("PID = %d, want 4242", info.PID)
	}
}

func TestParseHyprctlActiveWindow_TitleWithColon(t *testing.T) {
	output := "Window abc -> x:\n\tclass: Code\n\ttitle: main.go: wellbeing - Visual Studio Code\n"

	info, err := parseHyprctlActiveWindow(output)
	if err != nil {
		t.Fatalf("parseHyprctlActiveWindow() error = %v", err)
	}
	if info.WindowTitle != "main.go: wellbeing - Visual Studio Code" {
		t.Errorf("WindowTitle = %q", info.WindowTitle)
	}
	if info.ProcessName != "code" {
		t.Errorf("ProcessName = %q, want code", info.ProcessName)
	}
	if info.PID != 0 {
		t.Errorf("PID = %d, want 0", info.PID)
	}
}

func TestParseHyprctlActiveWindow_NoFocus(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"empty", ""},
		{"invalid", "Invalid\n"},
		{"no class", "Window 0 -> :\n\ttitle: \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseHyprctlActiveWindow(tt.output)
			if !errors.Is(err, ErrNoFocus) {
				t.Errorf("expected ErrNoFocus, got %v", err)
			}
		})
	}
}

func TestParseHyprctlActiveWindow_FallsBackToInitialClass(t *testing.T) {
	info, err := parseHyprctlActiveWindow("\tclass: \n\tinitialClass: Alacritty\n\ttitle: ~\n")
	if err != nil {
		t.Fatalf("parseHyprctlActiveWindow() error = %v", err)
	}
	if info.AppName != "Alacritty" || info.ProcessName != "alacritty" {
		t.Errorf("unexpected info %+v", info)
	}
}
