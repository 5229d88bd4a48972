package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectoscalar/vsgpt/vector"
)

type fakeCollection struct {
	docs    map[string]vector.Document
	deleted []string
	addErr  error
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{docs: make(map[string]vector.Document)}
}

func (c *fakeCollection) AddDocuments(ctx context.Context, docs []vector.Document) error {
	if c.addErr != nil {
		return c.addErr
	}

	for _, doc := range docs {
		c.docs[doc.ID] = doc
	}

	return nil
}

func (c *fakeCollection) DeleteBySource(ctx context.Context, source string) error {
	c.deleted = append(c.deleted, source)

	for id, doc := range c.docs {
		if doc.Source() == source {
			delete(c.docs, id)
		}
	}

	return nil
}

func (c *fakeCollection) Query(ctx context.Context, query string, k int) ([]vector.Document, error) {
	return nil, nil
}

func (c *fakeCollection) Count() int {
	return len(c.docs)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestIngestIndexesChunks(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", strings.Repeat("Refunds are processed in 5 days. ", 100))

	coll := newFakeCollection()
	ingestor := NewIngestor(coll, Config{ChunkSize: 256, Overlap: 32})

	report, err := ingestor.Ingest(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Files)
	assert.Greater(t, report.Chunks, 1)
	assert.Equal(t, report.Chunks, coll.Count())

	for _, doc := range coll.docs {
		assert.Equal(t, "notes.txt", doc.Source())
		assert.NotEmpty(t, doc.Metadata["chunk"])
	}
}

func TestIngestReplacesSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "Refunds are processed in 5 days.")

	coll := newFakeCollection()
	ingestor := NewIngestor(coll, Config{})

	ctx := context.Background()

	_, err := ingestor.Ingest(ctx, []string{path})
	require.NoError(t, err)

	first := coll.Count()

	// Re-ingesting the identical file must not grow the store.
	_, err = ingestor.Ingest(ctx, []string{path})
	require.NoError(t, err)

	assert.Equal(t, first, coll.Count())
	assert.Equal(t, []string{"notes.txt", "notes.txt"}, coll.deleted)
}

func TestIngestAbortsOnUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", "some content")

	coll := newFakeCollection()
	ingestor := NewIngestor(coll, Config{})

	_, err := ingestor.Ingest(context.Background(), []string{good, filepath.Join(dir, "missing.txt")})
	require.Error(t, err)

	// The file processed before the failure stays durable.
	assert.Greater(t, coll.Count(), 0)
}

func TestIngestPropagatesStoreFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.txt", "some content")

	coll := newFakeCollection()
	coll.addErr = errors.New("store write failed")

	ingestor := NewIngestor(coll, Config{})

	_, err := ingestor.Ingest(context.Background(), []string{path})
	assert.Error(t, err)
}

func TestDocumentIDDeterministic(t *testing.T) {
	a := documentID("policy.pdf", 0, "chunk text")
	b := documentID("policy.pdf", 0, "chunk text")
	c := documentID("policy.pdf", 1, "chunk text")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 100)

	chunks := SplitText(text, 40, 10)
	require.Greater(t, len(chunks), 1)

	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 40)
		total += len(chunk)
	}

	// Overlap duplicates boundary runes, so the chunks together cover at
	// least the original text.
	assert.GreaterOrEqual(t, total, len(text))

	assert.Equal(t, []string{"short"}, SplitText("short", 40, 10))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("report.pdf"))
	assert.True(t, IsPDF("REPORT.PDF"))
	assert.False(t, IsPDF("notes.txt"))
	assert.False(t, IsPDF("pdf"))
}

func TestStagingCreatesMissingRoot(t *testing.T) {
	// A fresh data directory has no upload dir yet; the first ingestion
	// run must be able to stage files anyway.
	root := filepath.Join(t.TempDir(), "temp_docs")

	staging, err := NewStaging(root)
	require.NoError(t, err)
	defer staging.Cleanup()

	assert.DirExists(t, root)

	path, err := staging.Add("upload.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestStagingCleanupOnSuccess(t *testing.T) {
	root := t.TempDir()

	staging, err := NewStaging(root)
	require.NoError(t, err)

	path, err := staging.Add("upload.pdf", strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, staging.Cleanup())
	assert.NoDirExists(t, staging.Dir())
}

func TestStagingCleanupAfterFailure(t *testing.T) {
	root := t.TempDir()

	err := func() error {
		staging, err := NewStaging(root)
		require.NoError(t, err)
		defer staging.Cleanup()

		if _, err := staging.Add("upload.pdf", strings.NewReader("broken")); err != nil {
			return err
		}

		return errors.New("induced ingestion failure")
	}()

	require.Error(t, err)

	// The staging directory must be gone no matter how ingestion ended.
	entries, readErr := os.ReadDir(root)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestStagingCleanupIdempotent(t *testing.T) {
	staging, err := NewStaging(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, staging.Cleanup())
	require.NoError(t, staging.Cleanup())
}
