package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure CorpusStore implements the interface.
var _ driven.CorpusStore = (*CorpusStore)(nil)

// Files inside a version directory.
const (
	UploadsDir     = "uploads"
	CorpusTextFile = "corpus.txt"
	MetadataFile   = "metadata.json"
	EmbeddingsFile = "embeddings.bin"
	IndexFile      = "index.bin"
	ManifestFile   = "manifest.json"

	stagingPrefix = ".staging-"
)

// CorpusStore keeps each corpus version in its own directory under
// <dataDir>/models/<model>/<version>. A version is built in a staging
// directory and renamed into place, so a reader never sees a partial version.
type CorpusStore struct {
	root string
}

// NewCorpusStore creates a store under <dataDir>/models and removes staging
// directories left behind by interrupted ingestions.
func NewCorpusStore(dataDir string) (*CorpusStore, error) {
	root := filepath.Join(dataDir, "models")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create models directory: %w", err)
	}
	s := &CorpusStore{root: root}
	s.sweepStaging()
	return s, nil
}

// Dir returns the directory of a version.
func (s *CorpusStore) Dir(modelKey, versionID string) string {
	return filepath.Join(s.root, modelKey, versionID)
}

// Exists reports whether the version's manifest is present.
func (s *CorpusStore) Exists(modelKey, versionID string) bool {
	_, err := os.Stat(filepath.Join(s.Dir(modelKey, versionID), ManifestFile))
	return err == nil
}

// Write stages every file of the version and renames the directory into place.
func (s *CorpusStore) Write(ctx context.Context, c *driven.CorpusWrite) error {
	m := c.Manifest
	if err := domain.ValidateKey("model", m.ModelKey); err != nil {
		return err
	}
	if err := domain.ValidateKey("version", m.VersionID); err != nil {
		return err
	}
	if len(c.Passages) != c.Index.Size() || len(c.Passages) != len(c.RawVectors) {
		return fmt.Errorf("%w: %d passages, %d vectors, %d index rows",
			domain.ErrCorruptIndex, len(c.Passages), len(c.RawVectors), c.Index.Size())
	}

	final := s.Dir(m.ModelKey, m.VersionID)
	if _, err := os.Stat(final); err == nil {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, m.ModelKey+"/"+m.VersionID)
	}

	modelDir := filepath.Join(s.root, m.ModelKey)
	staging := filepath.Join(modelDir, stagingPrefix+uuid.NewString())
	if err := os.MkdirAll(filepath.Join(staging, UploadsDir), 0o755); err != nil {
		return fmt.Errorf("%w: create staging: %v", domain.ErrStorageWrite, err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	if err := writeUploads(filepath.Join(staging, UploadsDir), c.Uploads); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	steps := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{CorpusTextFile, func(w io.Writer) error {
			_, err := io.WriteString(w, c.CorpusText)
			return err
		}},
		{EmbeddingsFile, func(w io.Writer) error { return flat.WriteMatrix(w, c.RawVectors) }},
		{IndexFile, func(w io.Writer) error { return flat.WriteMatrix(w, c.Index.Vectors()) }},
	}
	for _, step := range steps {
		if err := WriteAtomic(filepath.Join(staging, step.name), 0o644, step.write); err != nil {
			return err
		}
	}
	if err := WriteJSONAtomic(filepath.Join(staging, MetadataFile), c.Passages); err != nil {
		return err
	}
	// The manifest goes last: its presence marks a complete version.
	if err := WriteJSONAtomic(filepath.Join(staging, ManifestFile), m); err != nil {
		return err
	}

	if err := os.Rename(staging, final); err != nil {
		return fmt.Errorf("%w: publish %s: %v", domain.ErrStorageWrite, final, err)
	}
	committed = true
	syncDir(modelDir)

	logger.Debug("corpus %s/%s written: %d passages", m.ModelKey, m.VersionID, m.Passages)
	return nil
}

// Load reads a version and verifies that passage, vector and index counts agree.
func (s *CorpusStore) Load(_ context.Context, modelKey, versionID string) (*driven.Corpus, error) {
	dir := s.Dir(modelKey, versionID)
	key := modelKey + "/" + versionID

	var manifest domain.CorpusManifest
	found, err := ReadJSON(filepath.Join(dir, ManifestFile), &manifest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s manifest: %v", domain.ErrCorruptIndex, key, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s has no corpus files", domain.ErrNotTrained, key)
	}

	var passages []domain.Passage
	found, err = ReadJSON(filepath.Join(dir, MetadataFile), &passages)
	if err != nil || !found {
		return nil, fmt.Errorf("%w: %s metadata unreadable: %v", domain.ErrCorruptIndex, key, err)
	}

	header, err := readMatrixHeader(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		return nil, fmt.Errorf("%s embeddings: %w", key, err)
	}

	index, err := readIndex(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("%s index: %w", key, err)
	}

	n := len(passages)
	if n != manifest.Passages || n != header.Rows || n != index.Size() {
		return nil, fmt.Errorf("%w: %s has %d passages, manifest %d, %d vectors, %d index rows",
			domain.ErrCorruptIndex, key, n, manifest.Passages, header.Rows, index.Size())
	}
	if n > 0 && (header.Dims != index.Dimensions() || (manifest.Dimensions != 0 && manifest.Dimensions != index.Dimensions())) {
		return nil, fmt.Errorf("%w: %s dimension mismatch: manifest %d, vectors %d, index %d",
			domain.ErrCorruptIndex, key, manifest.Dimensions, header.Dims, index.Dimensions())
	}

	return &driven.Corpus{Manifest: manifest, Passages: passages, Index: index}, nil
}

// Evict removes a version directory. Already-loaded corpora are unaffected
// because they hold their data in memory.
func (s *CorpusStore) Evict(_ context.Context, modelKey, versionID string) error {
	if err := domain.ValidateKey("model", modelKey); err != nil {
		return err
	}
	if err := domain.ValidateKey("version", versionID); err != nil {
		return err
	}
	if err := os.RemoveAll(s.Dir(modelKey, versionID)); err != nil {
		return fmt.Errorf("%w: evict %s/%s: %v", domain.ErrStorageWrite, modelKey, versionID, err)
	}
	// Drop the model directory once its last version is gone.
	_ = os.Remove(filepath.Join(s.root, modelKey))
	return nil
}

// sweepStaging removes leftovers of interrupted writes.
func (s *CorpusStore) sweepStaging() {
	models, err := os.ReadDir(s.root)
	if err != nil {
		return
	}
	for _, m := range models {
		if !m.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(s.root, m.Name()))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && strings.HasPrefix(e.Name(), stagingPrefix) {
				path := filepath.Join(s.root, m.Name(), e.Name())
				logger.Warn("removing interrupted ingestion %s", path)
				os.RemoveAll(path)
			}
		}
	}
}

// writeUploads stores the original documents under unique base names.
func writeUploads(dir string, uploads []domain.RawDocument) error {
	used := make(map[string]bool, len(uploads))
	for i, u := range uploads {
		name := uploadName(u.Name, i)
		for used[name] {
			name = strconv.Itoa(i) + "_" + name
		}
		used[name] = true

		if err := os.WriteFile(filepath.Join(dir, name), u.Content, 0o644); err != nil {
			return fmt.Errorf("%w: upload %s: %v", domain.ErrStorageWrite, name, err)
		}
	}
	return nil
}

func uploadName(name string, i int) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "document-" + strconv.Itoa(i)
	}
	return base
}

// openMatrix opens a serialised matrix and checks its header against the
// file size, leaving the reader positioned at the start of the file.
func openMatrix(path string) (*os.File, flat.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, flat.Header{}, missingAsCorrupt(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, flat.Header{}, err
	}
	header, err := flat.ReadHeader(f)
	if err == nil {
		err = header.CheckSize(info.Size())
	}
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		f.Close()
		return nil, flat.Header{}, err
	}
	return f, header, nil
}

func readMatrixHeader(path string) (flat.Header, error) {
	f, header, err := openMatrix(path)
	if err != nil {
		return flat.Header{}, err
	}
	f.Close()
	return header, nil
}

func readIndex(path string) (*flat.Index, error) {
	f, _, err := openMatrix(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return flat.Load(f)
}

func missingAsCorrupt(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	return err
}
