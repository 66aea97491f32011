package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSSHConfig = `
Host bastion
    HostName 10.0.0.5
    User ops
    Port 2200

Host db1 db1-alt
    HostName db1.internal

Host *.example.com
    User wildcard

Match host foo
    User matched

Host after-match
    HostName 10.9.9.9
`

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseSSHConfigFile(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	hosts, err := ParseSSHConfigFile(path)
	require.NoError(t, err)

	var aliases []string
	for _, h := range hosts {
		aliases = append(aliases, h.Alias)
	}
	// Sorted, wildcards dropped, nothing after the Match block
	assert.Equal(t, []string{"bastion", "db1", "db1-alt"}, aliases)

	assert.Equal(t, "10.0.0.5", hosts[0].Hostname)
	assert.Equal(t, "ops", hosts[0].User)
	assert.Equal(t, "2200", hosts[0].Port)
}

func TestPreprocessSSHConfig_StopsAtMatch(t *testing.T) {
	path := writeSSHConfig(t, "Host a\n  User x\n  match exec true\nHost b\n")

	content, err := preprocessSSHConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Host a\n  User x", string(content))
}

func TestParseSSHConfigFile_Missing(t *testing.T) {
	hosts, err := ParseSSHConfigFile(filepath.Join(t.TempDir(), "nope"))
	assert.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestLookupHost(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	entry, ok := LookupHost(path, "bastion")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5", entry.Hostname)
	assert.Equal(t, "2200", entry.Port)

	_, ok = LookupHost(path, "unknown-host")
	assert.False(t, ok)

	_, ok = LookupHost(filepath.Join(t.TempDir(), "missing"), "bastion")
	assert.False(t, ok)
}

func TestResolveSSHSettings(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"plain host defaults to 22", Options{Host: "10.1.1.1", SSHConfigPath: path}, "10.1.1.1:22"},
		{"alias uses config", Options{Host: "bastion", SSHConfigPath: path}, "10.0.0.5:2200"},
		{"explicit port wins", Options{Host: "bastion", Port: 22, SSHConfigPath: path}, "10.0.0.5:22"},
		{"ipv6 literal", Options{Host: "::1", Port: 2222, SSHConfigPath: path}, "[::1]:2222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveSSHSettings(tt.opts).address())
		})
	}
}

func TestSSHHostEntry_Description(t *testing.T) {
	assert.Equal(t, "db1", SSHHostEntry{Alias: "db1"}.Description())
	assert.Equal(t, "10.0.0.5, user: ops, port: 2200",
		SSHHostEntry{Alias: "bastion", Hostname: "10.0.0.5", User: "ops", Port: "2200"}.Description())
}

func TestSSHHostEntry_Destination(t *testing.T) {
	assert.Equal(t, "ops@bastion", SSHHostEntry{Alias: "bastion", User: "ops"}.Destination("alice"))
	assert.Equal(t, "alice@db1", SSHHostEntry{Alias: "db1"}.Destination("alice"))
	assert.Equal(t, "db1", SSHHostEntry{Alias: "db1"}.Destination(""))
}
