package sampler

import (
	"regexp"
	"strings"
)

var appSuffixes = []string{"-bin", "-git", "-dev", "-nightly", "-stable"}

// canonicalAliases maps a substring of a lower-cased app name to its canonical name.
// Order matters: the first contained key wins.
var canonicalAliases = []struct{ contains, name string }{
	{"firefox", "firefox"},
	{"chrome", "chrome"},
	{"chromium", "chrome"},
	{"vscode", "code"},
	{"code", "code"},
	{"terminal", "terminal"},
	{"konsole", "terminal"},
	{"alacritty", "terminal"},
	{"kitty", "terminal"},
}

var browsers = map[string]bool{
	"firefox":   true,
	"chrome":    true,
	"brave":     true,
	"safari":    true,
	"edge":      true,
	"msedge":    true,
	"opera":     true,
	"vivaldi":   true,
	"zen":       true,
	"librewolf": true,
}

var domainPattern = regexp.MustCompile(`([a-zA-Z0-9-]+\.)+[a-zA-Z]{2,}`)

// CanonicalAppName lower-cases name, strips packaging suffixes and folds
// known variants onto one name. An empty name yields "unknown".
func CanonicalAppName(name string) string {
	clean := strings.ToLower(strings.TrimSpace(name))
	if clean == "" {
		return "unknown"
	}
	clean = strings.TrimSuffix(clean, ".exe")
	for _, suffix := range appSuffixes {
		clean = strings.TrimSuffix(clean, suffix)
	}
	for _, alias := range canonicalAliases {
		if strings.Contains(clean, alias.contains) {
			return alias.name
		}
	}
	return clean
}

// IsBrowser reports whether a canonical app name is a web browser
func IsBrowser(canonical string) bool {
	return browsers[canonical]
}

// ExtractWebsite returns the first domain-like token in a window title, without a leading "www."
func ExtractWebsite(title string) string {
	match := domainPattern.FindString(title)
	return strings.TrimPrefix(match, "www.")
}
