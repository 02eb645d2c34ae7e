package quarantine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store abstracts the two storage areas the scanner touches: the isolated
// quarantine area for pending/rejected files and the working media area that
// extractors read from. Promote must move the file between the two in one
// observable step; a caller must never see the working ref before the bytes
// are fully there.
type Store interface {
	// WriteQuarantine writes uploaded bytes into the quarantine area and
	// returns an opaque reference to them.
	WriteQuarantine(ctx context.Context, id, filename string, data []byte) (string, error)
	// Promote atomically moves a quarantined file into the working media
	// area and returns its new reference.
	Promote(ctx context.Context, id, filename string) (string, error)
	// Discard removes a quarantined file.
	Discard(ctx context.Context, id, filename string) error
	// ReadWorking reads a promoted file back by the reference Promote
	// returned. Extractors use this so they never touch quarantine paths.
	ReadWorking(ctx context.Context, ref string) ([]byte, error)
}

// LocalStore keeps both areas on the local filesystem. Quarantine writes go
// through a temp file plus rename so a partially written file is never
// visible, and Promote is a rename into the media directory.
type LocalStore struct {
	QuarantineDir string
	MediaDir      string
}

// NewLocalStore creates both directories if needed.
func NewLocalStore(quarantineDir, mediaDir string) (*LocalStore, error) {
	for _, dir := range []string{quarantineDir, mediaDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
		}
	}
	return &LocalStore{QuarantineDir: quarantineDir, MediaDir: mediaDir}, nil
}

func (s *LocalStore) WriteQuarantine(_ context.Context, id, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.QuarantineDir, id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create quarantine dir: %w", err)
	}

	dest := filepath.Join(dir, SanitizeFilename(filename))
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write quarantine file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close quarantine file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to place quarantine file: %w", err)
	}
	return dest, nil
}

func (s *LocalStore) Promote(_ context.Context, id, filename string) (string, error) {
	safe := SanitizeFilename(filename)
	src := filepath.Join(s.QuarantineDir, id, safe)
	dest := filepath.Join(s.MediaDir, id+"_"+safe)

	if err := os.Rename(src, dest); err != nil {
		// Cross-device fallback: copy then swap in via rename.
		if err := copyThenRename(src, dest); err != nil {
			return "", fmt.Errorf("failed to promote file: %w", err)
		}
		os.Remove(src)
	}
	os.Remove(filepath.Join(s.QuarantineDir, id))
	return dest, nil
}

func (s *LocalStore) ReadWorking(_ context.Context, ref string) ([]byte, error) {
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read working file %s: %w", ref, err)
	}
	return data, nil
}

func (s *LocalStore) Discard(_ context.Context, id, filename string) error {
	if err := os.RemoveAll(filepath.Join(s.QuarantineDir, id)); err != nil {
		return fmt.Errorf("failed to discard quarantined file: %w", err)
	}
	return nil
}

func copyThenRename(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".promote-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// SanitizeFilename strips path components and replaces anything outside a
// conservative character set, truncating very long names.
func SanitizeFilename(filename string) string {
	name := filepath.Base(filename)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	safe := b.String()
	if safe == "" || safe == "." || safe == ".." {
		safe = "upload"
	}
	if len(safe) > 100 {
		ext := filepath.Ext(safe)
		if len(ext) > 5 {
			ext = ext[:5]
		}
		safe = safe[:95] + ext
	}
	return safe
}
