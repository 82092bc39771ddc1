package patterns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ppiankov/acsense/internal/cache"
	"github.com/ppiankov/acsense/internal/embedding/embeddingtest"
	"github.com/ppiankov/acsense/internal/model"
)

func testDefs() []model.PatternDefinition {
	return []model.PatternDefinition{
		{ID: "action_click", Canonical: "click", Category: model.CategoryAction, Synonyms: []string{"press", "tap"}},
		{ID: "action_enable", Canonical: "enable", Category: model.CategoryAction, Synonyms: []string{"turn on"}},
		{ID: "outcome_enabled", Canonical: "is enabled", Category: model.CategoryOutcome, Subcategory: "state"},
		{ID: "boundary_no_selection", Canonical: "no selection", Category: model.CategoryBoundary, Synonyms: []string{"press"}},
	}
}

func TestIndex_Build(t *testing.T) {
	provider := embeddingtest.New()
	ix := NewIndex(testDefs(), provider, nil)

	assert.False(t, ix.IsLoaded())
	require.NoError(t, ix.Build(context.Background()))
	assert.True(t, ix.IsLoaded())
	assert.Equal(t, 4, ix.Count())

	// "press" is shared by two patterns but embedded once
	embedded := provider.Embedded()
	assert.Len(t, embedded, 7)

	click, ok := ix.ByID("action_click")
	require.True(t, ok)
	assert.Len(t, click.SynonymEmbeddings, 2)
	assert.Len(t, click.Vectors(), 3)
	assert.Equal(t, embeddingtest.Vector("click"), click.Embedding)

	actions := ix.ByCategory(model.CategoryAction)
	require.Len(t, actions, 2)
	assert.Equal(t, "action_click", actions[0].PatternID)
	assert.Equal(t, []model.Category{model.CategoryAction, model.CategoryOutcome, model.CategoryBoundary}, ix.Categories())
	assert.Empty(t, ix.ByCategory(model.CategoryCondition))
	assert.Len(t, ix.All(), 4)
}

func TestIndex_SkipsFailedCanonical(t *testing.T) {
	provider := embeddingtest.New()
	provider.Fail["enable"] = true
	provider.Fail["tap"] = true

	core, logs := observer.New(zap.WarnLevel)
	ix := NewIndex(testDefs(), provider, nil, WithLogger(zap.New(core)))
	require.NoError(t, ix.Build(context.Background()))

	_, ok := ix.ByID("action_enable")
	assert.False(t, ok)
	assert.Equal(t, 3, ix.Count())
	assert.Equal(t, 1, logs.FilterMessage("failed to embed pattern, skipping").Len())

	click, _ := ix.ByID("action_click")
	assert.Len(t, click.SynonymEmbeddings, 1, "failed synonym dropped")
}

func TestIndex_NoPatterns(t *testing.T) {
	provider := embeddingtest.New()
	provider.Unavailable = true

	ix := NewIndex(testDefs(), provider, nil)
	assert.ErrorIs(t, ix.Build(context.Background()), ErrNoPatterns)
	assert.False(t, ix.IsLoaded())
}

func TestIndex_CacheFirst(t *testing.T) {
	c := cache.NewEmbeddingCache(t.TempDir())

	first := embeddingtest.New()
	require.NoError(t, NewIndex(testDefs(), first, c).Build(context.Background()))
	assert.Len(t, first.Embedded(), 7)
	assert.Equal(t, 7, c.Len())

	second := embeddingtest.New()
	ix := NewIndex(testDefs(), second, c)
	require.NoError(t, ix.Build(context.Background()))
	assert.Empty(t, second.Embedded(), "every text served from cache")
	assert.Equal(t, 4, ix.Count())
}

func TestIndex_SearchByText(t *testing.T) {
	ix := NewIndex(testDefs(), embeddingtest.New(), nil)
	require.NoError(t, ix.Build(context.Background()))

	e, ok := ix.SearchByText("  Turn On ")
	require.True(t, ok)
	assert.Equal(t, "action_enable", e.PatternID)

	e, ok = ix.SearchByText("IS ENABLED")
	require.True(t, ok)
	assert.Equal(t, "outcome_enabled", e.PatternID)

	_, ok = ix.SearchByText("swipe")
	assert.False(t, ok)
}

func TestIndex_BuiltInDefinitions(t *testing.T) {
	f, err := LoadDefinitions("")
	require.NoError(t, err)

	ix := NewIndex(f.Patterns, embeddingtest.New(), nil)
	require.NoError(t, ix.Build(context.Background()))
	assert.Equal(t, len(f.Patterns), ix.Count())
}

func TestIndex_Collaborators(t *testing.T) {
	provider := embeddingtest.New()
	c := cache.NewEmbeddingCache(t.TempDir())

	ix := NewIndex(testDefs(), provider, c)
	assert.Same(t, provider, ix.Provider())
	assert.Same(t, c, ix.Cache())

	assert.Nil(t, NewIndex(testDefs(), provider, nil).Cache())
}
