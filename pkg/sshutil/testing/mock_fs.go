// Package testing provides SSH test doubles: an in-memory remote filesystem
// with a mock client for unit tests, and a real in-process SSH/SFTP server
// for end-to-end tests.
package testing

import (
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
)

// MockFS simulates an in-memory remote filesystem.
type MockFS struct {
	mu    sync.RWMutex
	files map[string][]byte   // path -> content
	dirs  map[string]struct{} // directories
	modes map[string]os.FileMode
}

// NewMockFS creates a new empty mock filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
		modes: make(map[string]os.FileMode),
	}
}

// MkdirAll creates a directory and all parent directories, like `mkdir -p`.
// Returns true if the leaf directory did not exist before.
func (fs *MockFS) MkdirAll(p string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.mkdirAllLocked(path.Clean(p))
}

func (fs *MockFS) mkdirAllLocked(p string) (bool, error) {
	if _, isFile := fs.files[p]; isFile {
		return false, fmt.Errorf("mkdir %s: not a directory", p)
	}
	_, existed := fs.dirs[p]

	current := ""
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			current = "/"
			continue
		}
		if current == "/" {
			current = "/" + part
		} else if current == "" {
			current = part
		} else {
			current = current + "/" + part
		}
		if _, isFile := fs.files[current]; isFile {
			return false, fmt.Errorf("mkdir %s: not a directory", current)
		}
		fs.dirs[current] = struct{}{}
	}
	return !existed, nil
}

// WriteFile writes content to a file, creating parent directories as needed.
func (fs *MockFS) WriteFile(p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if _, err := fs.mkdirAllLocked(path.Dir(p)); err != nil {
		return err
	}
	fs.files[p] = append([]byte(nil), content...)
	return nil
}

// AppendFile appends to a file, creating it (but not its parent) if needed.
// Returns true if the file was created.
func (fs *MockFS) AppendFile(p string, content []byte) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p = path.Clean(p)
	if _, ok := fs.dirs[path.Dir(p)]; !ok {
		return false, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	existing, existed := fs.files[p]
	fs.files[p] = append(existing, content...)
	return !existed, nil
}

// ReadFile reads the content of a file. A missing file yields an error
// matching os.ErrNotExist, like the SFTP client does.
func (fs *MockFS) ReadFile(p string) ([]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	content, exists := fs.files[path.Clean(p)]
	if !exists {
		return nil, &os.PathError{Op: "open", Path: p, Err: os.ErrNotExist}
	}
	return content, nil
}

// Chmod records a mode for a path.
func (fs *MockFS) Chmod(p string, mode os.FileMode) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.modes[path.Clean(p)] = mode
}

// Mode returns the mode recorded by Chmod, or 0.
func (fs *MockFS) Mode(p string) os.FileMode {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.modes[path.Clean(p)]
}

// IsDir returns true if the path exists and is a directory.
func (fs *MockFS) IsDir(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, exists := fs.dirs[path.Clean(p)]
	return exists
}

// IsFile returns true if the path exists and is a file.
func (fs *MockFS) IsFile(p string) bool {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	_, exists := fs.files[path.Clean(p)]
	return exists
}
