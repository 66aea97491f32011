package config

import (
	"time"

	"github.com/rileyhilliard/keyprov/pkg/sshutil"
)

// Defaults for values not provided by flags, env or config file.
const (
	DefaultPort          = 22
	DefaultPublicKeyPath = "~/.ssh/id_rsa.pub"
	DefaultKeyBits       = 4096
	DefaultTimeout       = 15 * time.Second
	DefaultKnownHosts    = "~/.ssh/known_hosts"
)

// Config holds keyprov settings. Every field can come from the config
// file or a KEYPROV_* environment variable; CLI flags override both.
type Config struct {
	// Port is the SSH port used when neither --port nor ~/.ssh/config set one.
	Port int `yaml:"port" mapstructure:"port"`

	// PublicKey is the local public key path. Tilde is expanded.
	PublicKey string `yaml:"public_key" mapstructure:"public_key"`

	// HostKeyPolicy is one of accept-any, accept-new or strict.
	HostKeyPolicy string `yaml:"host_key_policy" mapstructure:"host_key_policy"`

	// KnownHosts is the known_hosts file used by accept-new and strict.
	KnownHosts string `yaml:"known_hosts" mapstructure:"known_hosts"`

	// Timeout bounds the TCP connect and SSH handshake. Zero waits forever.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// KeyBits is the RSA modulus size for generated keys.
	KeyBits int `yaml:"key_bits" mapstructure:"key_bits"`

	// Password is only ever read from KEYPROV_PASSWORD and never written out.
	Password string `yaml:"-" mapstructure:"password"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:          DefaultPort,
		PublicKey:     DefaultPublicKeyPath,
		HostKeyPolicy: string(sshutil.HostKeyAcceptAny),
		KnownHosts:    DefaultKnownHosts,
		Timeout:       DefaultTimeout,
		KeyBits:       DefaultKeyBits,
	}
}
