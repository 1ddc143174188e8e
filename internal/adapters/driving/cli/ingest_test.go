package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestIngestCmd_RequiresArgs(t *testing.T) {
	_, err := executeCommand(t, "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_SingleFile(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	path := writeTestFile(t, t.TempDir(), "notes.txt", "Some text content.")

	out, err := executeCommand(t, "ingest", path)
	require.NoError(t, err)

	require.Len(t, mock.ingested, 1)
	doc := mock.ingested[0]
	assert.Equal(t, "Some text content.", doc.Content)
	assert.Equal(t, "notes", doc.Title)
	assert.Equal(t, "file://"+path, doc.URI)
	assert.Equal(t, path, doc.Metadata["source"])
	assert.Equal(t, "txt", doc.Metadata["format"])
	assert.Contains(t, out, "2/2 chunks ingested")
}

func TestIngestCmd_Directory(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeTestFile(t, dir, "a.txt", "Alpha.")
	writeTestFile(t, dir, "b.md", "Beta.")
	writeTestFile(t, dir, "ignored.pdf", "binary")

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0700))
	writeTestFile(t, sub, "c.txt", "Gamma.")

	_, err := executeCommand(t, "ingest", dir)
	require.NoError(t, err)

	assert.Len(t, mock.ingested, 3)
}

func TestIngestCmd_NoIngestableFiles(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	writeTestFile(t, dir, "image.png", "binary")

	_, err := executeCommand(t, "ingest", dir)
	assert.Error(t, err)
}

func TestIngestCmd_MissingPath(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "ingest", filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat")
}

func TestIngestCmd_ServiceError(t *testing.T) {
	mock, cleanup := setupTestServices()
	defer cleanup()
	mock.err = errMock

	path := writeTestFile(t, t.TempDir(), "notes.txt", "content")

	_, err := executeCommand(t, "ingest", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest")
}

func TestDocIDFromPath_Stable(t *testing.T) {
	a := docIDFromPath("/tmp/My Notes.txt")
	b := docIDFromPath("/tmp/My Notes.txt")
	c := docIDFromPath("/other/My Notes.txt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "same name in different directories must differ")
	assert.Contains(t, a, "my-notes-")
}
