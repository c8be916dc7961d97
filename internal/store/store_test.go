package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashrun/kash/internal/format"
	"github.com/kashrun/kash/internal/item"
)

func TestOpen_CreatesWorkspaceSkeleton(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, ".kash"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSave_WritesFileUnderTypeFolder(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{
		Type:   item.TypeDoc,
		Title:  "My Doc",
		Format: string(format.Markdown),
		Body:   "# hello\n",
	}

	sp, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)
	assert.Contains(t, sp.String(), "docs/")
	assert.Contains(t, sp.String(), ".doc.md")

	raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(sp.String())))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "title: My Doc")
	assert.Contains(t, string(raw), "# hello")
}

func TestSave_LoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{
		Type:   item.TypeDoc,
		Title:  "Round Trip",
		Format: string(format.Markdown),
		Body:   "body text\n",
	}

	sp, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)

	loaded, err := s.Load(context.Background(), sp)
	require.NoError(t, err)
	assert.Equal(t, "Round Trip", loaded.Title)
	assert.Equal(t, item.TypeDoc, loaded.Type)
	assert.Equal(t, "body text\n", loaded.Body)
}

func TestSave_DuplicateSlugGetsUniquified(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	first := item.Item{Type: item.TypeDoc, Title: "Same Name", Format: string(format.Markdown), Body: "one\n"}
	second := item.Item{Type: item.TypeDoc, Title: "Same Name", Format: string(format.Markdown), Body: "two\n"}

	sp1, err := s.Save(context.Background(), first, SaveOptions{})
	require.NoError(t, err)
	sp2, err := s.Save(context.Background(), second, SaveOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, sp1.String(), sp2.String())
}

func TestSave_IdenticalResourceReusesPriorPath(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{
		Type: item.TypeResource,
		URL:  "https://example.com/article",
	}

	sp1, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)

	sp2, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, sp1.String(), sp2.String())
}

func TestHash_ReturnsSha1Prefixed(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{Type: item.TypeDoc, Title: "H", Format: string(format.Markdown), Body: "content\n"}
	sp, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)

	h, err := s.Hash(sp)
	require.NoError(t, err)
	assert.Regexp(t, `^sha1:[0-9a-f]{40}$`, h)
}

func TestArchiveUnarchive_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{Type: item.TypeDoc, Title: "Archivable", Format: string(format.Markdown), Body: "x\n"}
	sp, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)

	require.NoError(t, s.Archive(sp))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(sp.String())))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dir, "archive", filepath.FromSlash(sp.String())))
	require.NoError(t, err)

	require.NoError(t, s.Unarchive(sp))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(sp.String())))
	require.NoError(t, err)
}

func TestSave_OverwriteSkipsArchiving(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{Type: item.TypeDoc, Title: "Overwritable", Format: string(format.Markdown), Body: "v1\n"}
	sp, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)

	it.StorePath = sp.String()
	it.Body = "v2\n"
	_, err = s.Save(context.Background(), it, SaveOptions{Overwrite: true})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "archive"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestImport_FromLocalFile(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	srcDir := t.TempDir()
	srcFile := filepath.Join(srcDir, "notes.txt")
	require.NoError(t, os.WriteFile(srcFile, []byte("imported content"), 0o644))

	it, err := s.Import(context.Background(), srcFile, item.TypeResource, false)
	require.NoError(t, err)
	assert.Equal(t, item.TypeResource, it.Type)
	assert.NotEmpty(t, it.StorePath)
}

func TestImport_URLLocator(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it, err := s.Import(context.Background(), "https://Example.com/Path/", item.TypeResource, false)
	require.NoError(t, err)
	assert.Equal(t, item.TypeResource, it.Type)
	assert.NotEmpty(t, it.URL)
}

func TestWalkItems_YieldsSavedItems(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{Type: item.TypeDoc, Title: "Walkable", Format: string(format.Markdown), Body: "x\n"}
	sp, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)

	var found []string
	for p, err := range s.WalkItems(context.Background(), nil) {
		require.NoError(t, err)
		found = append(found, p.String())
	}
	assert.Contains(t, found, sp.String())
}

func TestWalkItems_SkipsArchiveAndDotKash(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	it := item.Item{Type: item.TypeDoc, Title: "ToArchive", Format: string(format.Markdown), Body: "x\n"}
	sp, err := s.Save(context.Background(), it, SaveOptions{})
	require.NoError(t, err)
	require.NoError(t, s.Archive(sp))

	for p, err := range s.WalkItems(context.Background(), nil) {
		require.NoError(t, err)
		assert.NotContains(t, p.String(), "archive/")
		assert.NotContains(t, p.String(), ".kash/")
	}
}
