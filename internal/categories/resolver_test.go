package categories

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repoerrors "wellbeing/internal/infrastructure/errors"
	"wellbeing/internal/infrastructure/logging"
	"wellbeing/internal/types"
)

func TestResolver_ReloadInstallsSnapshot(t *testing.T) {
	ctx := context.Background()
	src := NewStaticSource(types.CategoryInfo{Name: "Browsing", Apps: []string{"firefox"}})
	r := NewResolver(src, logging.NopLogger{})

	assert.Equal(t, types.UncategorizedCategory, r.Resolve("firefox", ""), "nothing before the first reload")

	rs, err := r.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
	assert.Equal(t, "Browsing", r.Resolve("firefox", ""))
	assert.NoError(t, r.State().Err)
	assert.Equal(t, 1, r.State().RuleCount)
}

func TestResolver_EditsApplyOnNextReload(t *testing.T) {
	ctx := context.Background()
	src := NewStaticSource(types.CategoryInfo{Name: "Browsing", Apps: []string{"firefox"}})
	r := NewResolver(src, logging.NopLogger{})

	held, err := r.Reload(ctx)
	require.NoError(t, err)

	require.NoError(t, r.AddRule(ctx, types.CategoryRule{Pattern: "firefox", Category: "Work"}))
	assert.Equal(t, "Browsing", held.Resolve("firefox", ""), "a held snapshot never changes")
	assert.Equal(t, "Browsing", r.Resolve("firefox", ""))

	_, err = r.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Work", r.Resolve("firefox", ""))
}

func TestResolver_FailedReloadKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	src := NewStaticSource(types.CategoryInfo{Name: "Browsing", Apps: []string{"firefox"}})
	r := NewResolver(src, logging.NopLogger{})
	_, err := r.Reload(ctx)
	require.NoError(t, err)

	src.FailWith(errors.New("permission denied"))
	_, err = r.Reload(ctx)
	require.Error(t, err)
	assert.True(t, repoerrors.IsCategoryLoad(err))
	assert.True(t, repoerrors.IsCategoryLoad(r.State().Err))
	assert.Equal(t, "Browsing", r.Resolve("firefox", ""))
}

func TestResolver_RemoveRule(t *testing.T) {
	ctx := context.Background()
	src := NewStaticSource(types.CategoryInfo{Name: "Work", Apps: []string{"code", "zed"}})
	r := NewResolver(src, logging.NopLogger{})

	require.NoError(t, r.RemoveRule(ctx, types.CategoryRule{Pattern: "zed", Category: "Work"}))
	assert.True(t, repoerrors.IsNotFound(r.RemoveRule(ctx, types.CategoryRule{Pattern: "zed", Category: "Work"})))

	rs, err := r.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.CategoryRule{{Pattern: "code", Category: "Work"}}, rs.Rules())
}
