package storage

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/clinwell/checkin-api/internal/domain/checkins"
	"github.com/clinwell/checkin-api/internal/domain/pipeline"
)

func newTestStore(t *testing.T) *TempStore {
	t.Helper()
	s, err := NewTempStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewTempStore: %v", err)
	}
	return s
}

func TestSaveToTempNaming(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		fileName string
		wantExt  string
	}{
		{"session.mp4", ".mp4"},
		{"recording.webm", ".webm"},
		{"clip", ".mp4"}, // no extension falls back to .mp4
		{"weird.name.MOV", ".MOV"},
	}

	namePattern := regexp.MustCompile(`^scan_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

	for _, tt := range tests {
		path, err := s.SaveToTemp(checkins.UploadedMedia{Data: []byte("x"), FileName: tt.fileName})
		if err != nil {
			t.Fatalf("SaveToTemp(%s): %v", tt.fileName, err)
		}
		if filepath.Dir(path) != s.Root() {
			t.Fatalf("file %s written outside temp root %s", path, s.Root())
		}
		base := filepath.Base(path)
		if !namePattern.MatchString(base) {
			t.Errorf("SaveToTemp(%s) name = %s, want scan_<uuid> prefix", tt.fileName, base)
		}
		if !strings.HasSuffix(base, tt.wantExt) {
			t.Errorf("SaveToTemp(%s) name = %s, want suffix %s", tt.fileName, base, tt.wantExt)
		}
	}
}

func TestSaveThenDeleteLeavesNoResidue(t *testing.T) {
	s := newTestStore(t)

	path, err := s.SaveToTemp(checkins.UploadedMedia{Data: []byte("payload"), FileName: "a.mp4"})
	if err != nil {
		t.Fatalf("SaveToTemp: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back temp file: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("temp file content = %q, want %q", got, "payload")
	}

	if err := s.DeleteFromTemp(path); err != nil {
		t.Fatalf("DeleteFromTemp: %v", err)
	}
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp root not empty after delete: %d entries", len(entries))
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	path, err := s.SaveToTemp(checkins.UploadedMedia{Data: []byte("x"), FileName: "a.mp4"})
	if err != nil {
		t.Fatalf("SaveToTemp: %v", err)
	}
	if err := s.DeleteFromTemp(path); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := s.DeleteFromTemp(path); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
}

func TestDeleteRefusesPathsOutsideRoot(t *testing.T) {
	s := newTestStore(t)

	outside := filepath.Join(t.TempDir(), "victim.txt")
	if err := os.WriteFile(outside, []byte("keep me"), 0o600); err != nil {
		t.Fatalf("write victim file: %v", err)
	}

	tests := []string{
		outside,
		filepath.Join(s.Root(), "..", filepath.Base(filepath.Dir(outside)), "victim.txt"),
		"/etc/passwd",
	}
	for _, p := range tests {
		err := s.DeleteFromTemp(p)
		if err == nil {
			t.Fatalf("DeleteFromTemp(%s) = nil, want SECURITY_ERROR", p)
		}
		if pipeline.CodeOf(err) != pipeline.CodeSecurityError {
			t.Errorf("DeleteFromTemp(%s) code = %s, want %s", p, pipeline.CodeOf(err), pipeline.CodeSecurityError)
		}
	}

	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("victim file was touched: %v", err)
	}
}

func TestDeleteRefusesTempRootItself(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteFromTemp(s.Root())
	if err == nil {
		t.Fatal("DeleteFromTemp(root) = nil, want SECURITY_ERROR")
	}
	if pipeline.CodeOf(err) != pipeline.CodeSecurityError {
		t.Fatalf("DeleteFromTemp(root) code = %s, want %s", pipeline.CodeOf(err), pipeline.CodeSecurityError)
	}
	if _, statErr := os.Stat(s.Root()); statErr != nil {
		t.Fatalf("temp root was removed: %v", statErr)
	}
}

func TestWithScopedFileCleansUpOnOpFailure(t *testing.T) {
	s := newTestStore(t)

	boom := errors.New("analysis exploded")
	var seenPath string
	err := s.WithScopedFile(checkins.UploadedMedia{Data: []byte("x"), FileName: "a.mp4"}, func(path string) error {
		seenPath = path
		if _, statErr := os.Stat(path); statErr != nil {
			t.Fatalf("temp file missing inside op: %v", statErr)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithScopedFile err = %v, want op error", err)
	}
	if _, statErr := os.Stat(seenPath); !os.IsNotExist(statErr) {
		t.Fatalf("temp file %s survived failed op", seenPath)
	}
}

func TestWithScopedFileCleansUpOnSuccess(t *testing.T) {
	s := newTestStore(t)

	var seenPath string
	err := s.WithScopedFile(checkins.UploadedMedia{Data: []byte("x"), FileName: "a.webm"}, func(path string) error {
		seenPath = path
		return nil
	})
	if err != nil {
		t.Fatalf("WithScopedFile: %v", err)
	}
	if !strings.HasSuffix(seenPath, ".webm") {
		t.Fatalf("scoped path = %s, want .webm suffix", seenPath)
	}
	if _, statErr := os.Stat(seenPath); !os.IsNotExist(statErr) {
		t.Fatalf("temp file %s survived successful op", seenPath)
	}
}
