package keys

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rileyhilliard/keyprov/internal/config"
	"github.com/rileyhilliard/keyprov/internal/errors"
	"golang.org/x/crypto/ssh"
)

// RequiredPrefix is the only key type accepted for installation.
const RequiredPrefix = "ssh-rsa"

// GeneratedComment is the comment stamped on keys keyprov generates.
const GeneratedComment = "keyprov-generated"

// keygenCommand is the key generator binary. Tests swap it out.
var keygenCommand = "ssh-keygen"

// KeyPair locates a local key pair. The private key is never read here.
type KeyPair struct {
	PrivatePath string // PublicPath without ".pub"; empty when it has no such suffix
	PublicPath  string // Exactly the path the user gave, tilde expanded
}

// PairFromPublicPath builds a KeyPair from a public key path such as
// ~/.ssh/id_rsa.pub. The public path is kept as given. The private path
// is only known when the public one ends in .pub.
func PairFromPublicPath(pubPath string) KeyPair {
	pubPath = config.ExpandTilde(pubPath)
	pair := KeyPair{PublicPath: pubPath}
	if strings.HasSuffix(pubPath, ".pub") {
		pair.PrivatePath = strings.TrimSuffix(pubPath, ".pub")
	}
	return pair
}

// HasPrivate reports whether the private key location is known.
func (p KeyPair) HasPrivate() bool {
	return p.PrivatePath != ""
}

// Exists reports whether the public key file is present.
func Exists(pair KeyPair) bool {
	info, err := os.Stat(pair.PublicPath)
	return err == nil && !info.IsDir()
}

// Generate creates a new RSA key pair with an empty passphrase using
// ssh-keygen. Arguments are passed as a vector, never through a shell.
// An existing private key is never overwritten.
func Generate(ctx context.Context, pair KeyPair, bits int) error {
	if !pair.HasPrivate() {
		return errors.New(errors.ErrKey,
			fmt.Sprintf("Can't generate a key for %s", pair.PublicPath),
			"ssh-keygen writes <name> and <name>.pub, so the public key path must end in .pub")
	}
	if bits <= 0 {
		bits = config.DefaultKeyBits
	}

	sshDir := filepath.Dir(pair.PrivatePath)
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrKey,
			fmt.Sprintf("Failed to create SSH directory: %s", sshDir),
			"Check permissions on home directory")
	}

	if _, err := os.Stat(pair.PrivatePath); err == nil {
		return errors.New(errors.ErrKey,
			fmt.Sprintf("Key already exists at %s", pair.PrivatePath),
			fmt.Sprintf("Regenerate its public half with: ssh-keygen -y -f %s > %s", pair.PrivatePath, pair.PublicPath))
	}

	args := []string{
		"-q",
		"-t", "rsa",
		"-b", strconv.Itoa(bits),
		"-f", pair.PrivatePath,
		"-N", "", // Empty passphrase (user can add one with ssh-keygen -p)
		"-C", GeneratedComment,
	}

	cmd := exec.CommandContext(ctx, keygenCommand, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if stderr := strings.TrimSpace(string(output)); stderr != "" {
			err = fmt.Errorf("%w: %s", err, stderr)
		}
		return errors.WrapWithCode(err, errors.ErrKey,
			"Failed to generate SSH key",
			"Ensure ssh-keygen is installed and accessible")
	}

	// Verify the key was created
	if !Exists(pair) {
		return errors.New(errors.ErrKey,
			"Key generation completed but "+pair.PublicPath+" was not written",
			"Check disk space and permissions")
	}

	return nil
}

// ReadPublicKey reads the contents of a public key file.
func ReadPublicKey(pubPath string) (string, error) {
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrKey,
			fmt.Sprintf("Failed to read public key: %s", pubPath),
			"Check that the file exists and is readable")
	}
	return strings.TrimSpace(string(data)), nil
}

// ValidatePublicKey checks that key is a single well-formed ssh-rsa
// authorized_keys line and returns its SHA256 fingerprint.
func ValidatePublicKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New(errors.ErrKey,
			"Public key is empty",
			"Point --public_key at an ssh-rsa public key file")
	}

	if !strings.HasPrefix(key, RequiredPrefix) {
		keyType := strings.Fields(key)[0]
		return "", errors.New(errors.ErrKey,
			fmt.Sprintf("Unsupported public key type '%s'", keyType),
			"Only ssh-rsa keys can be installed. Generate one with: ssh-keygen -t rsa -b 4096")
	}

	if strings.ContainsAny(key, "\r\n") {
		return "", errors.New(errors.ErrKey,
			"Public key spans more than one line",
			"The file should hold a single ssh-rsa line")
	}

	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(key))
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrKey,
			"Public key is malformed",
			"The file may be truncated. Regenerate it with: ssh-keygen -y -f <private key>")
	}
	return ssh.FingerprintSHA256(pub), nil
}
