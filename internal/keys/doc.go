// Package keys handles the local half of key provisioning.
//
// # Key Discovery
//
// PairFromPublicPath() turns a public key path (default ~/.ssh/id_rsa.pub)
// into a KeyPair. The public path is used exactly as given; the private
// key path is derived by dropping a .pub suffix, and stays unknown when
// there is none. Exists() checks whether the public key is on disk.
//
// # Key Generation
//
// Generate() creates a new RSA key pair using ssh-keygen:
//
//	err := keys.Generate(ctx, pair, 4096)
//
// ssh-keygen is run with an argument vector, never through a shell, and
// its exit status is checked. The parent directory is created with 0700.
// An existing private key is never overwritten.
//
// Keys are generated with an empty passphrase. Users can add one later
// with ssh-keygen -p.
//
// # Validation
//
// ValidatePublicKey() only accepts ssh-rsa keys and parses the line with
// x/crypto/ssh so truncated keys are caught before connecting. It returns
// the SHA256 fingerprint for display.
//
// # Manual Fallback
//
// ManualInstructions() renders the shell commands a user can run when the
// automatic install fails.
//
// # Security Notes
//
// This package never reads or displays private key contents.
package keys
