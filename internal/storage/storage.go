// Package storage owns the on-disk layout shared by the API and the
// worker: the upload directory holding submitted files and the results
// directory holding finished readouts.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Store struct {
	uploadDir  string
	resultsDir string
}

func New(uploadDir, resultsDir string) (*Store, error) {
	for _, dir := range []string{uploadDir, resultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return &Store{uploadDir: uploadDir, resultsDir: resultsDir}, nil
}

// SaveUpload persists a submitted file under <job_id>_<name> so the
// worker can address it. The original name is reduced to a safe base
// name first.
func (s *Store) SaveUpload(jobID, filename string, r io.Reader) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		name = "upload"
	}
	path := filepath.Join(s.uploadDir, jobID+"_"+name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

// Remove deletes a stored file. A file that is already gone is not an
// error.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ResultPath is where the assembled readout for a job lives.
func (s *Store) ResultPath(jobID string) string {
	return filepath.Join(s.resultsDir, jobID+".mp3")
}

// ResolveResult maps a caller-supplied result filename to a path inside
// the results directory, rejecting traversal and missing files.
func (s *Store) ResolveResult(filename string) (string, error) {
	clean := filepath.Base(filename)
	if clean != filename || clean == "." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename")
	}
	path := filepath.Join(s.resultsDir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("file not found")
	}
	return path, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	return strings.Trim(name, "._")
}
