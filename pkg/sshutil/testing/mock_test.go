package testing

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockFS_MkdirAll(t *testing.T) {
	fs := NewMockFS()

	created, err := fs.MkdirAll("/a/b/c")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, fs.IsDir("/a"))
	assert.True(t, fs.IsDir("/a/b"))
	assert.True(t, fs.IsDir("/a/b/c"))

	created, err = fs.MkdirAll("/a/b/c")
	require.NoError(t, err)
	assert.False(t, created, "second mkdir -p is a no-op")
}

func TestMockFS_MkdirAllThroughFile(t *testing.T) {
	fs := NewMockFS()
	require.NoError(t, fs.WriteFile("/home/u/blocker", []byte("x")))

	_, err := fs.MkdirAll("/home/u/blocker/sub")
	assert.Error(t, err)
}

func TestMockFS_AppendFile(t *testing.T) {
	fs := NewMockFS()

	_, err := fs.AppendFile("/missing/file", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = fs.MkdirAll("/home/u")
	require.NoError(t, err)

	created, err := fs.AppendFile("/home/u/f", []byte("one"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = fs.AppendFile("/home/u/f", []byte("two"))
	require.NoError(t, err)
	assert.False(t, created)

	data, err := fs.ReadFile("/home/u/f")
	require.NoError(t, err)
	assert.Equal(t, "onetwo", string(data))
}

func TestMockFS_ReadFileMissing(t *testing.T) {
	fs := NewMockFS()
	_, err := fs.ReadFile("/nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestMockClient_AppendCreatesWithModes(t *testing.T) {
	m := NewMockClient("box", "/home/alice")
	ctx := context.Background()

	res, err := m.AppendFile(ctx, "/home/alice/.ssh/authorized_keys", "\nkey\n")
	require.NoError(t, err)
	assert.True(t, res.CreatedDir)
	assert.True(t, res.CreatedFile)

	fs := m.GetFS()
	assert.Equal(t, os.FileMode(0700), fs.Mode("/home/alice/.ssh"))
	assert.Equal(t, os.FileMode(0600), fs.Mode("/home/alice/.ssh/authorized_keys"))
	assert.Equal(t, 1, m.Appends())

	read, err := m.ReadFile(ctx, "/home/alice/.ssh/authorized_keys")
	require.NoError(t, err)
	assert.True(t, read.Found)
	assert.Equal(t, "\nkey\n", read.Content)
}

func TestMockClient_ReadMissing(t *testing.T) {
	m := NewMockClient("box", "/home/alice")

	res, err := m.ReadFile(context.Background(), "/home/alice/.ssh/authorized_keys")
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestMockClient_FailureInjection(t *testing.T) {
	m := NewMockClient("box", "/home/alice")
	boom := errors.New("boom")
	m.HomeErr = boom
	m.ReadErr = boom
	m.AppendErr = boom
	ctx := context.Background()

	_, err := m.RemoteHome(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = m.ReadFile(ctx, "/x")
	assert.ErrorIs(t, err, boom)
	_, err = m.AppendFile(ctx, "/home/alice/x", "y")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Appends())
}

func TestMockClient_ClosedRejectsCalls(t *testing.T) {
	m := NewMockClient("box", "/home/alice")
	require.NoError(t, m.Close())
	assert.True(t, m.Closed())

	_, err := m.RemoteHome(context.Background())
	assert.Error(t, err)
	assert.Empty(t, m.Calls())
}

func TestWithFiles(t *testing.T) {
	m := NewMockClient("box", "/home/alice")
	WithFiles(m, map[string]string{
		"/home/alice/.ssh/authorized_keys": "ssh-rsa AAAA existing\n",
	})

	res, err := m.ReadFile(context.Background(), "/home/alice/.ssh/authorized_keys")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, []string{"read /home/alice/.ssh/authorized_keys"}, m.Calls())
}
