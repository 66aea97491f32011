package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry represents a parsed host entry from SSH config.
type SSHHostEntry struct {
	Alias    string // The Host pattern (alias)
	Hostname string // The HostName value (actual host to connect to)
	User     string // The User value
	Port     string // The Port value
}

// Description returns a user-friendly description of the host.
func (h SSHHostEntry) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}

	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}

	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}

	return strings.Join(parts, ", ")
}

// Destination returns user@alias, falling back to the configured User.
func (h SSHHostEntry) Destination(defaultUser string) string {
	user := h.User
	if user == "" {
		user = defaultUser
	}
	if user == "" {
		return h.Alias
	}
	return user + "@" + h.Alias
}

// DefaultSSHConfigPath returns ~/.ssh/config.
func DefaultSSHConfigPath() string {
	return filepath.Join(homeDir(), ".ssh", "config")
}

// ParseSSHConfigFile parses the specified SSH config file and returns every
// concrete host alias (wildcard patterns are skipped). A missing file is not
// an error.
func ParseSSHConfigFile(configPath string) ([]SSHHostEntry, error) {
	if configPath == "" {
		configPath = DefaultSSHConfigPath()
	}

	cfg, err := decodeSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var hosts []SSHHostEntry
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			if strings.Contains(alias, "*") || strings.Contains(alias, "?") || strings.HasPrefix(alias, "!") {
				continue
			}
			if seen[alias] {
				continue
			}
			seen[alias] = true

			hosts = append(hosts, entryFor(cfg, alias))
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}

// LookupHost resolves alias against the SSH config at configPath
// (empty means ~/.ssh/config). ok is false when nothing in the file applies.
func LookupHost(configPath, alias string) (SSHHostEntry, bool) {
	if configPath == "" {
		configPath = DefaultSSHConfigPath()
	}

	cfg, err := decodeSSHConfig(configPath)
	if err != nil {
		return SSHHostEntry{Alias: alias}, false
	}

	entry := entryFor(cfg, alias)
	found := entry.Hostname != "" || entry.Port != "" || entry.User != ""
	return entry, found
}

func entryFor(cfg *ssh_config.Config, alias string) SSHHostEntry {
	entry := SSHHostEntry{Alias: alias}
	if hostname, _ := cfg.Get(alias, "HostName"); hostname != "" {
		entry.Hostname = hostname
	}
	if user, _ := cfg.Get(alias, "User"); user != "" {
		entry.User = user
	}
	if port, _ := cfg.Get(alias, "Port"); port != "" {
		entry.Port = port
	}
	return entry
}

func decodeSSHConfig(configPath string) (*ssh_config.Config, error) {
	content, err := preprocessSSHConfig(configPath)
	if err != nil {
		return nil, err
	}
	return ssh_config.Decode(bytes.NewReader(content))
}

// preprocessSSHConfig reads the SSH config and returns content up to the first
// Match directive, which kevinburke/ssh_config can't parse.
func preprocessSSHConfig(configPath string) ([]byte, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}
