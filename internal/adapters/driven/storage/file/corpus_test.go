package file

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

func testCorpus(t *testing.T, model, version string) *driven.CorpusWrite {
	t.Helper()
	raw := [][]float32{{1, 0, 0}, {0, 2, 0}, {1, 1, 1}}
	idx, err := flat.FromVectors(raw)
	require.NoError(t, err)

	return &driven.CorpusWrite{
		Manifest: domain.CorpusManifest{
			ModelKey:   model,
			VersionID:  version,
			Passages:   3,
			Dimensions: 3,
			Files:      []string{"a.pdf", "b.txt"},
			CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Uploads: []domain.RawDocument{
			{Name: "a.pdf", Content: []byte("%PDF")},
			{Name: "../b.txt", Content: []byte("bee")},
		},
		CorpusText: "alpha beta gamma",
		Passages: []domain.Passage{
			{Source: "a.pdf", Text: "alpha"},
			{Source: "a.pdf", Text: "alpha beta"},
			{Source: "b.txt", Text: "gamma"},
		},
		RawVectors: raw,
		Index:      idx,
	}
}

func newTestCorpusStore(t *testing.T) (*CorpusStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewCorpusStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestCorpusStore_WriteLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCorpusStore(t)
	in := testCorpus(t, "m1", "v1")

	require.NoError(t, store.Write(ctx, in))
	assert.True(t, store.Exists("m1", "v1"))

	dir := store.Dir("m1", "v1")
	for _, name := range []string{CorpusTextFile, MetadataFile, EmbeddingsFile, IndexFile, ManifestFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.FileExists(t, filepath.Join(dir, UploadsDir, "a.pdf"))
	assert.FileExists(t, filepath.Join(dir, UploadsDir, "b.txt"), "upload names are reduced to their base")

	corpus, err := store.Load(ctx, "m1", "v1")
	require.NoError(t, err)
	assert.Equal(t, in.Passages, corpus.Passages)
	assert.Equal(t, "m1", corpus.Manifest.ModelKey)

	query := []float32{0.5, 1, 0}
	want, err := in.Index.Search(query, 3)
	require.NoError(t, err)
	got, err := corpus.Index.Search(query, 3)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Row, got[i].Row)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-5)
	}
}

func TestCorpusStore_WriteNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestCorpusStore(t)
	require.NoError(t, store.Write(ctx, testCorpus(t, "m1", "v1")))

	second := testCorpus(t, "m1", "v1")
	second.CorpusText = "different"
	err := store.Write(ctx, second)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	text, err := os.ReadFile(filepath.Join(store.Dir("m1", "v1"), CorpusTextFile))
	require.NoError(t, err)
	assert.Equal(t, "alpha beta gamma", string(text))
}

func TestCorpusStore_WriteRejectsMismatchedCounts(t *testing.T) {
	store, _ := newTestCorpusStore(t)
	c := testCorpus(t, "m1", "v1")
	c.Passages = c.Passages[:2]

	err := store.Write(context.Background(), c)
	assert.True(t, errors.Is(err, domain.ErrCorruptIndex))
	assert.False(t, store.Exists("m1", "v1"))
}

func TestCorpusStore_WriteRejectsUnsafeKeys(t *testing.T) {
	store, _ := newTestCorpusStore(t)
	err := store.Write(context.Background(), testCorpus(t, "../escape", "v1"))
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCorpusStore_LoadMissingIsNotTrained(t *testing.T) {
	store, _ := newTestCorpusStore(t)
	_, err := store.Load(context.Background(), "m1", "nope")
	assert.True(t, errors.Is(err, domain.ErrNotTrained))
}

func TestCorpusStore_LoadDetectsCorruption(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string)
	}{
		{"passage removed", func(t *testing.T, dir string) {
			require.NoError(t, WriteJSONAtomic(filepath.Join(dir, MetadataFile), []domain.Passage{{Text: "x"}}))
		}},
		{"index truncated", func(t *testing.T, dir string) {
			path := filepath.Join(dir, IndexFile)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o644))
		}},
		{"index header claims huge row count", func(t *testing.T, dir string) {
			path := filepath.Join(dir, IndexFile)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			binary.LittleEndian.PutUint64(data[8:], 2_000_000_000)
			require.NoError(t, os.WriteFile(path, data, 0o644))
		}},
		{"embeddings header claims huge dimensions", func(t *testing.T, dir string) {
			path := filepath.Join(dir, EmbeddingsFile)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			data[7] = 0x7f
			require.NoError(t, os.WriteFile(path, data, 0o644))
		}},
		{"embeddings missing", func(t *testing.T, dir string) {
			require.NoError(t, os.Remove(filepath.Join(dir, EmbeddingsFile)))
		}},
		{"extra vector row", func(t *testing.T, dir string) {
			require.NoError(t, WriteAtomic(filepath.Join(dir, EmbeddingsFile), 0o644, func(w io.Writer) error {
				return flat.WriteMatrix(w, [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}})
			}))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store, _ := newTestCorpusStore(t)
			require.NoError(t, store.Write(ctx, testCorpus(t, "m1", "v1")))

			tt.mutate(t, store.Dir("m1", "v1"))

			_, err := store.Load(ctx, "m1", "v1")
			assert.True(t, errors.Is(err, domain.ErrCorruptIndex), "got %v", err)
		})
	}
}

func TestCorpusStore_Evict(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestCorpusStore(t)
	require.NoError(t, store.Write(ctx, testCorpus(t, "m1", "v1")))
	loaded, err := store.Load(ctx, "m1", "v1")
	require.NoError(t, err)

	require.NoError(t, store.Evict(ctx, "m1", "v1"))
	assert.False(t, store.Exists("m1", "v1"))
	assert.NoDirExists(t, filepath.Join(dir, "models", "m1"))

	// Loaded corpora keep serving.
	hits, err := loaded.Index.Search([]float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	// Evicting again is harmless.
	assert.NoError(t, store.Evict(ctx, "m1", "v1"))
}

func TestCorpusStore_SweepsStaging(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "models", "m1", stagingPrefix+"abc")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	_, err := NewCorpusStore(dir)
	require.NoError(t, err)
	assert.NoDirExists(t, stale)
}
