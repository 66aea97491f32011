package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/keyprov/internal/config"
	"github.com/rileyhilliard/keyprov/internal/errors"
	"github.com/rileyhilliard/keyprov/pkg/sshutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// InstallFlags holds the flags of the root (install) command.
type InstallFlags struct {
	Port          int
	Password      string
	PublicKey     string
	Yes           bool
	DryRun        bool
	Verify        bool
	HostKeyPolicy string
	KnownHosts    string
	Timeout       time.Duration
}

// AddInstallFlags registers the install flags on cmd.
func AddInstallFlags(cmd *cobra.Command, flags *InstallFlags) {
	f := cmd.Flags()
	f.IntVarP(&flags.Port, "port", "p", config.DefaultPort, "SSH port")
	f.StringVar(&flags.Password, "password", "", "SSH password (default: $KEYPROV_PASSWORD, else prompt)")
	f.StringVar(&flags.PublicKey, "public-key", config.DefaultPublicKeyPath, "path to the public key to install")
	f.BoolVarP(&flags.Yes, "yes", "y", false, "generate a missing key without asking")
	f.BoolVar(&flags.DryRun, "dry-run", false, "report whether the key would be added without writing")
	f.BoolVar(&flags.Verify, "verify", false, "reconnect with the key afterwards to confirm passwordless login")
	f.StringVar(&flags.HostKeyPolicy, "host-key-policy", string(sshutil.HostKeyAcceptAny),
		fmt.Sprintf("host key checking: %s", joinPolicies()))
	f.StringVar(&flags.KnownHosts, "known-hosts", config.DefaultKnownHosts, "known_hosts file for accept-new and strict")
	f.DurationVar(&flags.Timeout, "timeout", config.DefaultTimeout, "connect timeout (0 waits forever)")
}

// normalizeFlagName makes --public_key and --public-key the same flag.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// ParseDestination splits user@host. Exactly one "@" with text on both
// sides is accepted.
func ParseDestination(dest string) (user, host string, err error) {
	parts := strings.Split(dest, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New(errors.ErrInput,
			"Invalid destination format. Use username@hostname.",
			fmt.Sprintf("Got '%s'. Example: keyprov alice@example.com", dest))
	}
	return parts[0], parts[1], nil
}

func joinPolicies() string {
	names := make([]string, len(sshutil.HostKeyPolicies))
	for i, p := range sshutil.HostKeyPolicies {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
