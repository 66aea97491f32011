package sshutil

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rileyhilliard/keyprov/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// HostKeyPolicy names how a server's host key is checked.
type HostKeyPolicy string

const (
	// HostKeyAcceptAny accepts every host key without checking or recording it.
	HostKeyAcceptAny HostKeyPolicy = "accept-any"
	// HostKeyAcceptNew records unknown hosts in known_hosts and rejects mismatches.
	HostKeyAcceptNew HostKeyPolicy = "accept-new"
	// HostKeyStrict requires the host to already be present in known_hosts.
	HostKeyStrict HostKeyPolicy = "strict"
)

// HostKeyPolicies lists the accepted policy names in display order.
var HostKeyPolicies = []HostKeyPolicy{HostKeyAcceptAny, HostKeyAcceptNew, HostKeyStrict}

// ParseHostKeyPolicy converts a policy name into a HostKeyPolicy.
// The empty string selects HostKeyAcceptAny.
func ParseHostKeyPolicy(s string) (HostKeyPolicy, error) {
	if s == "" {
		return HostKeyAcceptAny, nil
	}
	for _, p := range HostKeyPolicies {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown host key policy %q", s)
}

// HostKeyCallback builds the ssh.HostKeyCallback for a policy.
// knownHostsPath is ignored for HostKeyAcceptAny.
func HostKeyCallback(policy HostKeyPolicy, knownHostsPath string) (ssh.HostKeyCallback, error) {
	switch policy {
	case HostKeyAcceptAny, "":
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit accept-any policy
	case HostKeyStrict:
		if _, err := os.Stat(knownHostsPath); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				fmt.Sprintf("Can't read known_hosts at %s", knownHostsPath),
				"Connect once with --host-key-policy accept-new, or add the host with ssh-keyscan")
		}
		return createHostKeyCallback(knownHostsPath, false)
	case HostKeyAcceptNew:
		return createHostKeyCallback(knownHostsPath, true)
	default:
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown host key policy '%s'", policy),
			"Use one of: accept-any, accept-new, strict")
	}
}

// knownHostsMu serialises appends to known_hosts within this process.
var knownHostsMu sync.Mutex

// createHostKeyCallback wraps the knownhosts callback to provide better error
// messages. With learn set, hosts that are not in the file yet are appended.
func createHostKeyCallback(knownHostsPath string, learn bool) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		dir := filepath.Dir(knownHostsPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !stderrors.As(err, &keyErr) {
			return err
		}

		if len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}

		// Unknown host
		if !learn {
			return &UnknownHostError{Hostname: hostname, KnownHosts: knownHostsPath}
		}
		return appendKnownHost(knownHostsPath, hostname, key)
	}, nil
}

func appendKnownHost(knownHostsPath, hostname string, key ssh.PublicKey) error {
	knownHostsMu.Lock()
	defer knownHostsMu.Unlock()

	f, err := os.OpenFile(knownHostsPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts: %w", err)
	}
	line := knownhosts.Line([]string{hostname}, key) + "\n"
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to record host key: %w", err)
	}
	return f.Close()
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the server was reinstalled, remove the old entry:\n"+
			"    ssh-keygen -f %s -R %s",
		wantStr, e.ReceivedType, e.KnownHosts, host)
}

// UnknownHostError is returned by the strict policy for hosts missing from known_hosts.
type UnknownHostError struct {
	Hostname   string
	KnownHosts string
}

func (e *UnknownHostError) Error() string {
	return fmt.Sprintf("%s is not in %s", e.Hostname, e.KnownHosts)
}

// Suggestion returns how to trust the host.
func (e *UnknownHostError) Suggestion() string {
	return "Re-run with --host-key-policy accept-new to record it, or add it with ssh-keyscan"
}
