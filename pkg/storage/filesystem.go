package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidName is returned for file names that would escape the owner's directory.
var ErrInvalidName = errors.New("invalid file name")

// ErrNotExist is returned when the requested file is not stored.
var ErrNotExist = errors.New("file does not exist")

// Info describes a stored file.
type Info struct {
	Name      string
	Size      int64
	UpdatedAt time.Time
}

// LocalStorage keeps per-owner files on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./files"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes data as owner/name, replacing any previous content.
func (s *LocalStorage) Save(owner, name string, data []byte) (Info, error) {
	path, err := s.resolve(owner, name)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Info{}, fmt.Errorf("prepare owner directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Info{}, fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return Info{}, fmt.Errorf("commit file: %w", err)
	}
	return s.Stat(owner, name)
}

// Read returns the content of owner/name.
func (s *LocalStorage) Read(owner, name string) ([]byte, Info, error) {
	path, err := s.resolve(owner, name)
	if err != nil {
		return nil, Info{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Info{}, ErrNotExist
		}
		return nil, Info{}, fmt.Errorf("read file: %w", err)
	}
	info, err := s.Stat(owner, name)
	if err != nil {
		return nil, Info{}, err
	}
	return data, info, nil
}

// Open returns a read-only handle for owner/name.
func (s *LocalStorage) Open(owner, name string) (io.ReadCloser, Info, error) {
	info, err := s.Stat(owner, name)
	if err != nil {
		return nil, Info{}, err
	}
	path, _ := s.resolve(owner, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, Info{}, fmt.Errorf("open file: %w", err)
	}
	return file, info, nil
}

// Stat describes owner/name without reading it.
func (s *LocalStorage) Stat(owner, name string) (Info, error) {
	path, err := s.resolve(owner, name)
	if err != nil {
		return Info{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, ErrNotExist
		}
		return Info{}, fmt.Errorf("stat file: %w", err)
	}
	return Info{Name: name, Size: fi.Size(), UpdatedAt: fi.ModTime().UTC()}, nil
}

// Delete removes owner/name if present.
func (s *LocalStorage) Delete(owner, name string) error {
	path, err := s.resolve(owner, name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files not modified within ttl and returns their
// paths relative to the base directory.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup files: %w", err)
	}
	return deleted, nil
}

func (s *LocalStorage) resolve(owner, name string) (string, error) {
	if !validSegment(owner) || !validSegment(name) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.baseDir, owner, name), nil
}

func validSegment(seg string) bool {
	if seg == "" || seg == "." || seg == ".." {
		return false
	}
	if strings.ContainsAny(seg, `/\`) || strings.ContainsRune(seg, 0) {
		return false
	}
	return !strings.HasSuffix(seg, ".tmp")
}
