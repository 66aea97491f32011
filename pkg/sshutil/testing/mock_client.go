package testing

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/rileyhilliard/keyprov/pkg/sshutil"
)

// MockClient simulates a connected remote host backed by a MockFS.
// It satisfies the same RemoteHome/ReadFile/AppendFile surface as *sshutil.Client.
type MockClient struct {
	mu     sync.Mutex
	host   string
	home   string
	fs     *MockFS
	closed bool

	// Failure injection. A nil value means the call behaves normally.
	HomeErr   error
	ReadErr   error
	AppendErr error

	calls   []string
	appends int
}

// NewMockClient creates a mock client whose remote $HOME is home.
// The home directory exists; ~/.ssh does not.
func NewMockClient(host, home string) *MockClient {
	m := &MockClient{
		host: host,
		home: home,
		fs:   NewMockFS(),
	}
	_, _ = m.fs.MkdirAll(home)
	return m
}

// RemoteHome returns the configured home directory.
func (m *MockClient) RemoteHome(ctx context.Context) (string, error) {
	if err := m.record("home"); err != nil {
		return "", err
	}
	if m.HomeErr != nil {
		return "", m.HomeErr
	}
	return m.home, nil
}

// ReadFile mirrors sshutil.Client.ReadFile.
func (m *MockClient) ReadFile(ctx context.Context, remotePath string) (sshutil.ReadResult, error) {
	if err := m.record("read " + remotePath); err != nil {
		return sshutil.ReadResult{}, err
	}
	if m.ReadErr != nil {
		return sshutil.ReadResult{}, m.ReadErr
	}

	data, err := m.fs.ReadFile(remotePath)
	if err != nil {
		return sshutil.ReadResult{Found: false}, nil
	}
	return sshutil.ReadResult{Content: string(data), Found: true}, nil
}

// AppendFile mirrors sshutil.Client.AppendFile, including the 0700/0600 modes
// on newly created paths.
func (m *MockClient) AppendFile(ctx context.Context, remotePath, text string) (sshutil.AppendResult, error) {
	var result sshutil.AppendResult
	if err := m.record("append " + remotePath); err != nil {
		return result, err
	}
	if m.AppendErr != nil {
		return result, m.AppendErr
	}

	dir := path.Dir(remotePath)
	created, err := m.fs.MkdirAll(dir)
	if err != nil {
		return result, err
	}
	if created {
		result.CreatedDir = true
		m.fs.Chmod(dir, 0700)
	}

	createdFile, err := m.fs.AppendFile(remotePath, []byte(text))
	if err != nil {
		return result, err
	}
	if createdFile {
		result.CreatedFile = true
		m.fs.Chmod(remotePath, 0600)
	}

	m.mu.Lock()
	m.appends++
	m.mu.Unlock()
	return result, nil
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetFS returns the mock filesystem for direct manipulation in tests.
func (m *MockClient) GetFS() *MockFS {
	return m.fs
}

// Appends returns how many successful AppendFile calls were made.
func (m *MockClient) Appends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appends
}

// Calls returns the operations performed, in order.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// WithFiles pre-populates the mock filesystem with files.
func WithFiles(client *MockClient, files map[string]string) {
	for p, content := range files {
		_ = client.GetFS().WriteFile(p, []byte(content))
	}
}

func (m *MockClient) record(call string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	m.calls = append(m.calls, call)
	return nil
}

// String implements fmt.Stringer for test failure messages.
func (m *MockClient) String() string {
	return fmt.Sprintf("MockClient(%s, home=%s)", m.host, m.home)
}
