// Package blobstore stores uploaded audio content-addressed by job id
// under a single root directory, rejects any path that would escape
// that root, and offers a best-effort WAV sanity probe (ProbeWAV) that
// Save itself does not run.
package blobstore

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// Store saves and retrieves audio blobs keyed by job id.
type Store interface {
	Save(jobID, ext string, file *multipart.FileHeader) (path string, err error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
	ProbeWAV(path string) (valid bool, reason string)
}

type store struct {
	root string
}

// New constructs a blob store rooted at dir, creating it if necessary.
func New(dir string) (Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &store{root: abs}, nil
}

// Save writes the uploaded file under root as "<jobID>.<ext>" and returns
// the path to persist on the job record.
func (s *store) Save(jobID, ext string, fileHeader *multipart.FileHeader) (string, error) {
	if strings.ContainsAny(jobID, "/\\.") {
		return "", fmt.Errorf("invalid job id %q", jobID)
	}

	filename := fmt.Sprintf("%s.%s", jobID, strings.ToLower(ext))
	destPath, err := s.resolve(filename)
	if err != nil {
		return "", err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("write blob: %w", err)
	}

	return destPath, nil
}

// Open opens an existing blob for reading, rejecting any path outside root.
func (s *store) Open(path string) (io.ReadCloser, error) {
	resolved, err := s.resolveExisting(path)
	if err != nil {
		return nil, err
	}
	return os.Open(resolved)
}

// Remove deletes a blob, rejecting any path outside root. A missing file
// is not an error: cleanup is always best-effort and idempotent.
func (s *store) Remove(path string) error {
	resolved, err := s.resolveExisting(path)
	if err != nil {
		return err
	}
	if err := os.Remove(resolved); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ProbeWAV performs a best-effort sanity check on WAV files: a header
// that fails to parse is reported, never treated as a hard submission
// failure. This only protects workers from decoding garbage; format and
// size are validated separately at submission time.
func (s *store) ProbeWAV(path string) (bool, string) {
	if !strings.HasSuffix(strings.ToLower(path), ".wav") {
		return true, ""
	}
	resolved, err := s.resolveExisting(path)
	if err != nil {
		return false, err.Error()
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return false, fmt.Sprintf("read failed: %v", err)
	}

	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return false, "not a valid WAV container"
	}
	return true, ""
}

func (s *store) resolve(filename string) (string, error) {
	joined := filepath.Join(s.root, filename)
	if !strings.HasPrefix(joined, s.root+string(os.PathSeparator)) && joined != s.root {
		return "", fmt.Errorf("resolved path escapes blob root")
	}
	return joined, nil
}

func (s *store) resolveExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("path %q is outside the blob root", path)
	}
	return abs, nil
}
