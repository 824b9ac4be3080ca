package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clinwell/checkin-api/internal/domain/checkins"
	"github.com/clinwell/checkin-api/internal/domain/pipeline"
)

const (
	tempFilePrefix  = "scan_"
	defaultVideoExt = ".mp4"
)

// TempStore owns ephemeral local storage of uploaded videos. Every file it
// creates lives under a single fixed root and is deleted by the same
// invocation that created it.
type TempStore struct {
	root string
}

// NewTempStore resolves and creates the temp root.
func NewTempStore(root string) (*TempStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve temp root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}
	return &TempStore{root: abs}, nil
}

// Root returns the absolute temp root path.
func (s *TempStore) Root() string { return s.root }

// SaveToTemp writes the payload under the temp root as
// scan_<uuid><ext>, keeping the original extension and defaulting to .mp4
// when the filename has none.
func (s *TempStore) SaveToTemp(media checkins.UploadedMedia) (string, error) {
	ext := filepath.Ext(media.FileName)
	if ext == "" {
		ext = defaultVideoExt
	}
	name := tempFilePrefix + uuid.New().String() + ext
	path := filepath.Join(s.root, name)

	if err := os.WriteFile(path, media.Data, 0o600); err != nil {
		return "", pipeline.Wrap(pipeline.CodeSaveFailed, err, "write temp file %s", name)
	}
	return path, nil
}

// DeleteFromTemp removes a file previously created by SaveToTemp. A path
// outside the temp root is refused outright; a file that is already gone
// counts as success.
func (s *TempStore) DeleteFromTemp(path string) error {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return pipeline.Wrap(pipeline.CodeSecurityError, err, "resolve path %s", path)
	}
	rel, err := filepath.Rel(s.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// rel == "." is the temp root itself, never a file we created
		return pipeline.E(pipeline.CodeSecurityError, "refusing to delete outside temp root: %s", path)
	}

	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return pipeline.Wrap(pipeline.CodeDeleteFailed, err, "remove temp file %s", abs)
	}
	return nil
}

// WithScopedFile saves the payload, runs op on the resulting path and deletes
// the file again on every exit path, panics included. Delete failures are
// logged only; cleanup never masks op's own outcome.
func (s *TempStore) WithScopedFile(media checkins.UploadedMedia, op func(path string) error) error {
	path, err := s.SaveToTemp(media)
	if err != nil {
		return err
	}
	defer func() {
		if derr := s.DeleteFromTemp(path); derr != nil {
			log.Printf("temp cleanup failed for %s: %v", path, derr)
		}
	}()
	return op(path)
}
