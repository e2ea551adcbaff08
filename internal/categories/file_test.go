package categories

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/types"
)

func newTestFileSource(t *testing.T, content string) *FileSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "categories.json")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	src := NewFileSource(path)
	src.nowFn = func() time.Time { return time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC) }
	return src
}

func TestFileSource_LoadJSONC(t *testing.T) {
	src := newTestFileSource(t, `{
		// hand-edited
		"categories": {
			"Work": {"apps": ["code", "terminal",], "color": "#22C55E"},
			"Browsing": {"apps": ["firefox"], "description": "Web"}, /* trailing */
		},
	}`)

	infos, err := src.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "Browsing", infos[0].Name)
	assert.Equal(t, "Web", infos[0].Description)
	assert.Equal(t, []string{"code", "terminal"}, infos[1].Apps)
}

func TestFileSource_LoadFailures(t *testing.T) {
	missing := newTestFileSource(t, "")
	_, err := missing.Load(context.Background())
	assert.True(t, repoerrors.IsCategoryLoad(err), "missing file: %v", err)

	broken := newTestFileSource(t, `{"categories": [`)
	_, err = broken.Load(context.Background())
	assert.True(t, repoerrors.IsCategoryLoad(err), "malformed file: %v", err)
}

func TestFileSource_AddRule(t *testing.T) {
	ctx := context.Background()
	src := newTestFileSource(t, `{"categories": {"Work": {"apps": ["code"]}, "Browsing": {"apps": ["firefox", "zen"]}}}`)

	require.NoError(t, src.AddRule(ctx, types.CategoryRule{Pattern: "Zen", Category: "Work"}))
	require.NoError(t, src.AddRule(ctx, types.CategoryRule{Pattern: "blender", Category: "Design"}))

	infos, err := src.Load(ctx)
	require.NoError(t, err)
	byName := map[string]types.CategoryInfo{}
	for _, info := range infos {
		byName[info.Name] = info
	}

	assert.Equal(t, []string{"code", "zen"}, byName["Work"].Apps)
	assert.Equal(t, []string{"firefox"}, byName["Browsing"].Apps, "literal moves out of its old category")
	assert.Equal(t, []string{"blender"}, byName["Design"].Apps)
	assert.Equal(t, defaultColor, byName["Design"].Color)

	data, err := os.ReadFile(src.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"updated_at": "2024-03-04T12:00:00Z"`)

	entries, err := os.ReadDir(filepath.Dir(src.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileSource_AddRuleCreatesFile(t *testing.T) {
	ctx := context.Background()
	src := newTestFileSource(t, "")

	require.NoError(t, src.AddRule(ctx, types.CategoryRule{Pattern: "code", Category: "Work"}))

	infos, err := src.Load(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, []string{"code"}, infos[0].Apps)
}

func TestFileSource_RemoveRule(t *testing.T) {
	ctx := context.Background()
	src := newTestFileSource(t, `{"categories": {"Work": {"apps": ["code", "zed"]}}}`)

	require.NoError(t, src.RemoveRule(ctx, types.CategoryRule{Pattern: "ZED", Category: "Work"}))

	infos, err := src.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, infos[0].Apps)

	err = src.RemoveRule(ctx, types.CategoryRule{Pattern: "zed", Category: "Work"})
	assert.True(t, repoerrors.IsNotFound(err), "removing an absent rule: %v", err)

	err = src.RemoveRule(ctx, types.CategoryRule{Pattern: "", Category: "Work"})
	assert.True(t, repoerrors.IsValidation(err))
}

func TestFileSource_WriteDefaults(t *testing.T) {
	src := newTestFileSource(t, "")

	written, err := src.WriteDefaults()
	require.NoError(t, err)
	assert.True(t, written)

	infos, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, infos, len(DefaultCategories()))

	written, err = src.WriteDefaults()
	require.NoError(t, err)
	assert.False(t, written, "existing file is left alone")
}
