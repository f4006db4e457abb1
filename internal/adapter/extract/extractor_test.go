package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
	"docrag/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestExtractTxt(t *testing.T) {
	dir := t.TempDir()
	body := strings.Repeat("word ", 30)
	path := writeFile(t, dir, "notes.txt", body)

	e := New(config.OCRConfig{})
	records, err := e.Extract(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, path, records[0].Source)
	assert.Nil(t, records[0].Page)
	assert.Contains(t, records[0].Text, "word")
}

func TestExtractTxtDropsInvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	body := strings.Repeat("token ", 30) + string([]byte{0xff, 0xfe})
	path := writeFile(t, dir, "raw.txt", body)

	e := New(config.OCRConfig{})
	records, err := e.Extract(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NotContains(t, records[0].Text, "\xff")
}

func TestExtractTxtTooShort(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tiny.txt", "only a few words here")

	e := New(config.OCRConfig{})
	records, err := e.Extract(path)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestListInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "x")
	writeFile(t, dir, "b.pdf", "x")
	writeFile(t, dir, "c.docx", "x")
	writeFile(t, dir, "ignored.md", "x")

	files, err := ListInputs(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.NotContains(t, f, "ignored")
	}
}

func TestExtractAllEmptyDir(t *testing.T) {
	e := New(config.OCRConfig{})
	_, err := e.ExtractAll(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoInputFiles)
}

func TestExtractAllSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.txt", strings.Repeat("fine text ", 30))
	// A pdf that is not a pdf fails extraction but must not abort the batch.
	writeFile(t, dir, "broken.pdf", "this is not a pdf")

	e := New(config.OCRConfig{PdftoppmPath: "/nonexistent/pdftoppm"})
	records, err := e.ExtractAll(dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Source, "good.txt")
}

func TestDatasetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.jsonl")
	page := 3
	records := []domain.Record{
		{Source: "a.pdf", Page: &page, Text: "page three text"},
		{Source: "b.txt", Text: "plain text"},
	}

	require.NoError(t, WriteDataset(path, records))

	got, err := ReadDataset(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NotNil(t, got[0].Page)
	assert.Equal(t, 3, *got[0].Page)
	assert.Nil(t, got[1].Page)
	assert.Equal(t, "plain text", got[1].Text)
}

func TestWriteDatasetRewrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.jsonl")

	require.NoError(t, WriteDataset(path, []domain.Record{{Source: "old.txt", Text: "old"}}))
	require.NoError(t, WriteDataset(path, []domain.Record{{Source: "new.txt", Text: "new"}}))

	got, err := ReadDataset(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new.txt", got[0].Source)
}
