package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ticker-linker/internal/model"
)

func TestEnsureDocIDs(t *testing.T) {
	docs := []model.ArticleText{
		{ID: "keep-me", Body: "$AAPL"},
		{Body: "$TSLA"},
	}

	ensureDocIDs(docs)

	assert.Equal(t, "keep-me", docs[0].ID)
	assert.NotEmpty(t, docs[1].ID)
	assert.Len(t, docs[1].ID, 36) // uuid
}

func useLinkInput(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	origInput, origDryRun := linkInputPath, linkDryRun
	linkInputPath, linkDryRun = path, true
	t.Cleanup(func() { linkInputPath, linkDryRun = origInput, origDryRun })
}

func TestLoadLinkDocs_JSON(t *testing.T) {
	useLinkInput(t, "docs.json", `[{"id":"a1","source":"gdelt","title":"Apple earnings"}]`)

	docs, err := loadLinkDocs(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a1", docs[0].ID)
	assert.Equal(t, model.SourceGdelt, docs[0].Source)
}

func TestLoadLinkDocs_YAML(t *testing.T) {
	useLinkInput(t, "docs.yaml", `
- source: reddit_comment
  body: I like $AAPL
`)

	docs, err := loadLinkDocs(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, model.SourceRedditComment, docs[0].Source)
	assert.NotEmpty(t, docs[0].ID) // generated
}

func TestLoadLinkDocs_BadInput(t *testing.T) {
	useLinkInput(t, "docs.json", "{not json")

	_, err := loadLinkDocs(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse input file")
}
