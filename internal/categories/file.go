package categories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/jsonc"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/types"
)

const defaultColor = "#9CA3AF"

// categoryFile is the on-disk mapping document. Comments and trailing commas
// are accepted on read and dropped on write.
type categoryFile struct {
	Categories map[string]categoryEntry `json:"categories"`
	UpdatedAt  string                   `json:"updated_at,omitempty"`
}

type categoryEntry struct {
	Apps        []string `json:"apps"`
	Color       string   `json:"color,omitempty"`
	Description string   `json:"description,omitempty"`
}

// FileSource stores categories in a JSON (or JSONC) file
type FileSource struct {
	path  string
	mu    sync.Mutex
	nowFn func() time.Time
}

// NewFileSource creates a file-backed mapping source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, nowFn: time.Now}
}

// Path returns the mapping file location
func (f *FileSource) Path() string {
	return f.path
}

// Load reads and parses the mapping file. A missing file is a load failure.
func (f *FileSource) Load(ctx context.Context) ([]types.CategoryInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return nil, repoerrors.CategoryLoadFailure("FileSource.Load", err, f.path)
	}
	return doc.toInfos(), nil
}

// AddRule maps a literal to a category, moving it out of any other category.
// The category is created when it does not exist.
func (f *FileSource) AddRule(ctx context.Context, rule types.CategoryRule) error {
	return f.update("FileSource.AddRule", func(infos []types.CategoryInfo) ([]types.CategoryInfo, error) {
		return addRule(infos, rule)
	})
}

// RemoveRule removes a literal from a category. The category itself is kept.
func (f *FileSource) RemoveRule(ctx context.Context, rule types.CategoryRule) error {
	return f.update("FileSource.RemoveRule", func(infos []types.CategoryInfo) ([]types.CategoryInfo, error) {
		return removeRule(infos, rule)
	})
}

// WriteDefaults writes DefaultCategories to the file if it does not exist yet.
// It reports whether a file was written.
func (f *FileSource) WriteDefaults() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(f.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, f.write(DefaultCategories())
}

func (f *FileSource) update(op string, fn func([]types.CategoryInfo) ([]types.CategoryInfo, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var infos []types.CategoryInfo
	doc, err := f.read()
	switch {
	case err == nil:
		infos = doc.toInfos()
	case errors.Is(err, os.ErrNotExist):
	default:
		return repoerrors.CategoryLoadFailure(op, err, f.path)
	}

	infos, err = fn(infos)
	if err != nil {
		return err
	}
	if err := f.write(infos); err != nil {
		return repoerrors.NewWithContext(op, err, repoerrors.ErrCodeInternal, map[string]string{"path": f.path})
	}
	return nil
}

func (f *FileSource) read() (*categoryFile, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var doc categoryFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return &doc, nil
}

// write replaces the file atomically: temp file, fsync, rename
func (f *FileSource) write(infos []types.CategoryInfo) error {
	doc := categoryFile{
		Categories: make(map[string]categoryEntry, len(infos)),
		UpdatedAt:  f.nowFn().UTC().Format(time.RFC3339),
	}
	for _, info := range infos {
		apps := info.Apps
		if apps == nil {
			apps = []string{}
		}
		doc.Categories[info.Name] = categoryEntry{Apps: apps, Color: info.Color, Description: info.Description}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating categories directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".categories-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp categories file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing categories: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing categories: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp categories file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("renaming categories file to %s: %w", f.path, err)
	}

	success = true
	return nil
}

func (doc *categoryFile) toInfos() []types.CategoryInfo {
	infos := make([]types.CategoryInfo, 0, len(doc.Categories))
	for name, entry := range doc.Categories {
		infos = append(infos, types.CategoryInfo{
			Name:        name,
			Apps:        entry.Apps,
			Color:       entry.Color,
			Description: entry.Description,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func validateRule(op string, rule types.CategoryRule) (string, string, error) {
	literal := fold(rule.Pattern)
	category := strings.TrimSpace(rule.Category)
	if literal == "" {
		return "", "", repoerrors.HandleValidationError(op, "app_name", rule.Pattern, "cannot be empty")
	}
	if category == "" {
		return "", "", repoerrors.HandleValidationError(op, "category", rule.Category, "cannot be empty")
	}
	return literal, category, nil
}

func addRule(infos []types.CategoryInfo, rule types.CategoryRule) ([]types.CategoryInfo, error) {
	literal, category, err := validateRule("AddRule", rule)
	if err != nil {
		return infos, err
	}

	found := false
	for i := range infos {
		infos[i].Apps = without(infos[i].Apps, literal)
		if infos[i].Name == category {
			infos[i].Apps = append(infos[i].Apps, literal)
			sort.Strings(infos[i].Apps)
			found = true
		}
	}
	if !found {
		infos = append(infos, types.CategoryInfo{Name: category, Apps: []string{literal}, Color: defaultColor})
	}
	return infos, nil
}

func removeRule(infos []types.CategoryInfo, rule types.CategoryRule) ([]types.CategoryInfo, error) {
	literal, category, err := validateRule("RemoveRule", rule)
	if err != nil {
		return infos, err
	}

	for i := range infos {
		if infos[i].Name != category {
			continue
		}
		remaining := without(infos[i].Apps, literal)
		if len(remaining) == len(infos[i].Apps) {
			break
		}
		infos[i].Apps = remaining
		return infos, nil
	}
	return infos, repoerrors.HandleNotFound("RemoveRule", "category_rule", category+"/"+literal)
}

func without(apps []string, literal string) []string {
	out := apps[:0:0]
	for _, a := range apps {
		if fold(a) != literal {
			out = append(out, a)
		}
	}
	return out
}

// DefaultCategories is the mapping written on first start
func DefaultCategories() []types.CategoryInfo {
	return []types.CategoryInfo{
		{
			Name:        "Browsing",
			Apps:        []string{"brave", "chrome", "chromium", "firefox", "safari"},
			Color:       "#3B82F6",
			Description: "Web browsers",
		},
		{
			Name:        "Communication",
			Apps:        []string{"discord", "signal", "slack", "teams", "telegram", "thunderbird", "zoom"},
			Color:       "#8B5CF6",
			Description: "Chat, mail and meetings",
		},
		{
			Name:        "Entertainment",
			Apps:        []string{"mpv", "spotify", "steam", "vlc"},
			Color:       "#EF4444",
			Description: "Media and games",
		},
		{
			Name:        "Work",
			Apps:        []string{"code", "idea", "nvim", "obsidian", "terminal", "zed"},
			Color:       "#22C55E",
			Description: "Editors, terminals and notes",
		},
	}
}
