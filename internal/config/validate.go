package config

import (
	"fmt"

	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/rileyhilliard/keyprov/pkg/sshutil"
)

// MinKeyBits is the smallest RSA modulus keyprov will generate.
const MinKeyBits = 2048

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if err := ValidatePort(cfg.Port); err != nil {
		return err
	}

	if _, err := sshutil.ParseHostKeyPolicy(cfg.HostKeyPolicy); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a host key policy", cfg.HostKeyPolicy),
			"Use one of: accept-any, accept-new, strict")
	}

	if cfg.Timeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Timeout can't be negative (got %s)", cfg.Timeout),
			"Use 0 to wait forever, or something like 15s")
	}

	if cfg.KeyBits < MinKeyBits {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("key_bits %d is too small", cfg.KeyBits),
			fmt.Sprintf("Use at least %d (default %d)", MinKeyBits, DefaultKeyBits))
	}

	if cfg.PublicKey == "" {
		return errors.New(errors.ErrConfig,
			"public_key can't be empty",
			"Remove the setting to use "+DefaultPublicKeyPath)
	}

	return nil
}

// ValidatePort checks that port is a usable TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Port %d is out of range", port),
			"Use a port between 1 and 65535")
	}
	return nil
}
