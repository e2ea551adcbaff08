package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout from a function and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// writeTestConfig writes a config that keeps the database and category file
// inside a temp dir, and returns the config path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := fmt.Sprintf(`database:
  path: %s
categories:
  path: %s
logging:
  level: error
timezone: UTC
`, filepath.Join(dir, "wellbeing.db"), filepath.Join(dir, "categories.json"))

	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
