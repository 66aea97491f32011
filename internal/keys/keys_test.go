package keys

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func rsaAuthorizedKey(t *testing.T) string {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pub, err := ssh.NewPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub))) + " alice@laptop"
}

func ed25519AuthorizedKey(t *testing.T) string {
	t.Helper()
	pubKey, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pub, err := ssh.NewPublicKey(pubKey)
	require.NoError(t, err)
	return strings.TrimSpace(string(ssh.MarshalAuthorizedKey(pub)))
}

func withKeygen(t *testing.T, command string) {
	t.Helper()
	prev := keygenCommand
	keygenCommand = command
	t.Cleanup(func() { keygenCommand = prev })
}

func TestPairFromPublicPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name        string
		path        string
		wantPrivate string
		wantPublic  string
	}{
		{
			name:        "absolute public path",
			path:        "/keys/id_rsa.pub",
			wantPrivate: "/keys/id_rsa",
			wantPublic:  "/keys/id_rsa.pub",
		},
		{
			name:        "tilde is expanded",
			path:        "~/.ssh/id_rsa.pub",
			wantPrivate: filepath.Join(home, ".ssh", "id_rsa"),
			wantPublic:  filepath.Join(home, ".ssh", "id_rsa.pub"),
		},
		{
			name:        "public path without suffix is kept",
			path:        "/keys/work_key",
			wantPrivate: "",
			wantPublic:  "/keys/work_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := PairFromPublicPath(tt.path)
			assert.Equal(t, tt.wantPrivate, pair.PrivatePath)
			assert.Equal(t, tt.wantPublic, pair.PublicPath)
		})
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	pair := PairFromPublicPath(filepath.Join(dir, "id_rsa.pub"))

	assert.False(t, Exists(pair))

	require.NoError(t, os.WriteFile(pair.PublicPath, []byte("ssh-rsa AAAA"), 0644))
	assert.True(t, Exists(pair))

	dirPair := PairFromPublicPath(filepath.Join(dir, "sub.pub"))
	require.NoError(t, os.Mkdir(dirPair.PublicPath, 0700))
	assert.False(t, Exists(dirPair), "a directory is not a key")
}

func TestReadPublicKey_TrimsWhitespace(t *testing.T) {
	pubKeyPath := filepath.Join(t.TempDir(), "id_test.pub")
	require.NoError(t, os.WriteFile(pubKeyPath, []byte("  ssh-rsa AAAA... user@host  \n\n"), 0600))

	content, err := ReadPublicKey(pubKeyPath)
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa AAAA... user@host", content)
}

func TestReadPublicKey_MissingFile(t *testing.T) {
	_, err := ReadPublicKey("/nonexistent/path/id_test.pub")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKey))
	assert.Contains(t, err.Error(), "Failed to read public key")
}

func TestValidatePublicKey(t *testing.T) {
	rsaKey := rsaAuthorizedKey(t)

	t.Run("rsa key is accepted", func(t *testing.T) {
		fp, err := ValidatePublicKey(rsaKey)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(fp, "SHA256:"))
	})

	t.Run("ed25519 is rejected", func(t *testing.T) {
		_, err := ValidatePublicKey(ed25519AuthorizedKey(t))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrKey))
		assert.Contains(t, err.Error(), "ssh-ed25519")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ValidatePublicKey("   ")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrKey))
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := ValidatePublicKey(rsaKey[:40])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed")
	})

	t.Run("two lines", func(t *testing.T) {
		_, err := ValidatePublicKey(rsaKey + "\n" + rsaKey)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than one line")
	})
}

func TestGenerate_RefusesToOverwrite(t *testing.T) {
	withKeygen(t, "false")
	pair := PairFromPublicPath(filepath.Join(t.TempDir(), "id_rsa.pub"))
	require.NoError(t, os.WriteFile(pair.PrivatePath, []byte("existing key"), 0600))

	err := Generate(context.Background(), pair, 2048)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Key already exists")
	data, readErr := os.ReadFile(pair.PrivatePath)
	require.NoError(t, readErr)
	assert.Equal(t, "existing key", string(data))
}

func TestGenerate_NeedsPubSuffix(t *testing.T) {
	withKeygen(t, "true")
	pair := PairFromPublicPath(filepath.Join(t.TempDir(), "work_key"))
	require.False(t, pair.HasPrivate())

	err := Generate(context.Background(), pair, 2048)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKey))
	assert.Contains(t, err.Error(), "must end in .pub")
	assert.NoFileExists(t, pair.PublicPath)
}

func TestGenerate_ReportsFailedExitStatus(t *testing.T) {
	withKeygen(t, "false")
	pair := PairFromPublicPath(filepath.Join(t.TempDir(), "id_rsa.pub"))

	err := Generate(context.Background(), pair, 2048)

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrKey))
	assert.Contains(t, err.Error(), "Failed to generate SSH key")
}

func TestGenerate_ReportsMissingOutput(t *testing.T) {
	withKeygen(t, "true")
	pair := PairFromPublicPath(filepath.Join(t.TempDir(), "id_rsa.pub"))

	err := Generate(context.Background(), pair, 2048)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not written")
}

func TestGenerate_CreatesDirectoryAndKey(t *testing.T) {
	if _, err := exec.LookPath("ssh-keygen"); err != nil {
		t.Skip("ssh-keygen not available")
	}

	pair := PairFromPublicPath(filepath.Join(t.TempDir(), "nested", "dir", "id_rsa.pub"))

	err := Generate(context.Background(), pair, 2048)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Dir(pair.PrivatePath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	assert.True(t, Exists(pair))
	_, err = os.Stat(pair.PrivatePath)
	assert.NoError(t, err, "private key should exist")

	pub, err := ReadPublicKey(pair.PublicPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pub, "ssh-rsa "))
	assert.True(t, strings.HasSuffix(pub, GeneratedComment))

	_, err = ValidatePublicKey(pub)
	assert.NoError(t, err)
}

func TestGenerate_HonoursCancellation(t *testing.T) {
	withKeygen(t, "sleep")
	pair := PairFromPublicPath(filepath.Join(t.TempDir(), "id_rsa.pub"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Generate(ctx, pair, 2048)
	assert.Error(t, err)
}
