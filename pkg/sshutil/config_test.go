package sshutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSHConfigFile(t *testing.T) {
	// Create a temp SSH config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
Host core-sw1
    HostName 192.168.1.100
    User admin
    Port 22
    IdentityFile ~/.ssh/id_core_sw1

Host edge-rtr
    HostName edge.lab.example.net
    User netops

Host *
    ServerAliveInterval 60

Host lab-*
    User labuser
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)

	// Should have exactly 2 hosts (core-sw1 and edge-rtr)
	// Wildcards (*) and patterns (work-*) should be excluded
	assert.Len(t, hosts, 2)

	// Check that hosts are sorted alphabetically
	assert.Equal(t, "edge-rtr", hosts[0].Alias)
	assert.Equal(t, "core-sw1", hosts[1].Alias)

	// Check core-sw1 details
	coreSw1 := hosts[1]
	assert.Equal(t, "192.168.1.100", coreSw1.Hostname)
	assert.Equal(t, "admin", coreSw1.User)
	assert.Equal(t, "22", coreSw1.Port)
	assert.Contains(t, coreSw1.IdentityFile, "id_core_sw1")

	// Check edge-rtr details
	edgertr := hosts[0]
	assert.Equal(t, "edge.lab.example.net", edgertr.Hostname)
	assert.Equal(t, "netops", edgertr.User)
	assert.Equal(t, "", edgertr.Port) // Not specified
}

func TestParseSSHConfigFileNotExists(t *testing.T) {
	hosts, err := ParseSSHConfigFile("/nonexistent/config")

	// Should return nil hosts and nil error for missing config
	assert.NoError(t, err)
	assert.Nil(t, hosts)
}

func TestSSHHostEntryDescription(t *testing.T) {
	tests := []struct {
		name     string
		entry    SSHHostEntry
		expected string
	}{
		{
			name: "full entry",
			entry: SSHHostEntry{
				Alias:    "core-sw1",
				Hostname: "192.168.1.100",
				User:     "admin",
				Port:     "2222",
			},
			expected: "192.168.1.100, user: admin, port: 2222",
		},
		{
			name: "default port",
			entry: SSHHostEntry{
				Alias:    "core-sw1",
				Hostname: "192.168.1.100",
				User:     "admin",
				Port:     "22",
			},
			expected: "192.168.1.100, user: admin",
		},
		{
			name: "hostname same as alias",
			entry: SSHHostEntry{
				Alias:    "core-sw1",
				Hostname: "core-sw1",
				User:     "admin",
			},
			expected: "user: admin",
		},
		{
			name: "minimal entry",
			entry: SSHHostEntry{
				Alias: "core-sw1",
			},
			expected: "core-sw1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.entry.Description()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestFilterHostsWithKeys(t *testing.T) {
	// Create a temp directory with a fake key
	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "id_test")
	err := os.WriteFile(keyPath, []byte("fake key"), 0600)
	require.NoError(t, err)

	hosts := []SSHHostEntry{
		{Alias: "with-key", IdentityFile: keyPath},
		{Alias: "without-key", IdentityFile: "/nonexistent/key"},
		{Alias: "no-identity"},
	}

	// This test depends on whether default keys exist
	// Just verify the filter runs without error
	filtered := FilterHostsWithKeys(hosts)

	// The host with the valid key should be included
	hasWithKey := false
	for _, h := range filtered {
		if h.Alias == "with-key" {
			hasWithKey = true
			break
		}
	}
	assert.True(t, hasWithKey, "Host with valid identity file should be included")
}

func TestParseSSHConfigWithMatch(t *testing.T) {
	// Create a temp SSH config with Match directive
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
Host before-match
    HostName before.example.com

Match host *.example.com
    User matchuser

Host after-match
    HostName after.example.com
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)

	// Should only see the host before the Match directive
	assert.Len(t, hosts, 1)
	assert.Equal(t, "before-match", hosts[0].Alias)
}

func TestSSHHostEntry_HasIdentityFile_CustomPath(t *testing.T) {
	// Create a temp identity file
	tmpDir := t.TempDir()
	keyPath := filepath.Join(tmpDir, "custom_key")
	err := os.WriteFile(keyPath, []byte("fake key content"), 0600)
	require.NoError(t, err)

	entry := SSHHostEntry{
		Alias:        "test-host",
		IdentityFile: keyPath,
	}

	assert.True(t, entry.HasIdentityFile())
}

func TestSSHHostEntry_HasIdentityFile_NonexistentPath(t *testing.T) {
	entry := SSHHostEntry{
		Alias:        "test-host",
		IdentityFile: "/nonexistent/key/file",
	}

	// Will return true only if default keys exist in ~/.ssh/
	// We can't control this in the test, but we can verify it doesn't panic
	_ = entry.HasIdentityFile()
}

func TestSSHHostEntry_HasIdentityFile_EmptyPath(t *testing.T) {
	entry := SSHHostEntry{
		Alias:        "test-host",
		IdentityFile: "",
	}

	// Will check for default keys
	// Just verify it doesn't panic
	_ = entry.HasIdentityFile()
}

func TestParseSSHConfigFile_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	// Create an empty config file
	err := os.WriteFile(configPath, []byte(""), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestParseSSHConfigFile_CommentsOnly(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
# This is a comment
# Another comment

# Yet another comment
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestParseSSHConfigFile_DuplicateHosts(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
Host duplicate
    HostName first.example.com

Host duplicate
    HostName second.example.com
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)

	// Should only have one entry (seen filter)
	assert.Len(t, hosts, 1)
	assert.Equal(t, "duplicate", hosts[0].Alias)
}

func TestParseSSHConfigFile_MultiplePatterns(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
Host server1 server2 server3
    User shareduser
    Port 2222
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)

	// Should have all three hosts
	assert.Len(t, hosts, 3)

	// All should have the same user and port
	for _, h := range hosts {
		assert.Equal(t, "shareduser", h.User)
		assert.Equal(t, "2222", h.Port)
	}
}

func TestSSHHostEntry_Description_OnlyUser(t *testing.T) {
	entry := SSHHostEntry{
		Alias: "core-sw1",
		User:  "admin",
	}

	desc := entry.Description()
	assert.Equal(t, "user: admin", desc)
}

func TestSSHHostEntry_Description_OnlyPort(t *testing.T) {
	entry := SSHHostEntry{
		Alias: "core-sw1",
		Port:  "2222",
	}

	desc := entry.Description()
	assert.Equal(t, "port: 2222", desc)
}

func TestSSHHostEntry_Description_OnlyHostname(t *testing.T) {
	entry := SSHHostEntry{
		Alias:    "core-sw1",
		Hostname: "192.168.1.100",
	}

	desc := entry.Description()
	assert.Equal(t, "192.168.1.100", desc)
}

func TestFilterHostsWithKeys_EmptyInput(t *testing.T) {
	filtered := FilterHostsWithKeys([]SSHHostEntry{})
	assert.Empty(t, filtered)
}

func TestFilterHostsWithKeys_NilInput(t *testing.T) {
	filtered := FilterHostsWithKeys(nil)
	assert.Empty(t, filtered)
}

func TestParseSSHConfigFile_SpecialCharactersInAlias(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
Host tor-sw_01
    HostName tor01.lab.example.net
    User admin
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)

	assert.Len(t, hosts, 1)
	assert.Equal(t, "tor-sw_01", hosts[0].Alias)
}

func TestParseSSHConfigFile_WithIdentityFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
Host oob-console
    HostName oob.lab.example.net
    IdentityFile ~/.ssh/oob_key
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)

	assert.Len(t, hosts, 1)
	assert.Contains(t, hosts[0].IdentityFile, "oob_key")
}

func TestParseSSHConfigFile_ProxyJump(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config")

	configContent := `
Host bastion
    HostName bastion.lab.example.net

Host leaf-sw3
    HostName 10.20.0.3
    ProxyJump bastion,mgmt-gw
`

	err := os.WriteFile(configPath, []byte(configContent), 0600)
	require.NoError(t, err)

	hosts, err := ParseSSHConfigFile(configPath)
	require.NoError(t, err)
	require.Len(t, hosts, 2)

	leaf := hosts[1]
	assert.Equal(t, "leaf-sw3", leaf.Alias)
	assert.Equal(t, "bastion,mgmt-gw", leaf.ProxyJump)
	assert.Equal(t, []string{"bastion", "mgmt-gw"}, leaf.Hops())
	assert.Equal(t, "10.20.0.3, via: bastion -> mgmt-gw", leaf.Description())

	assert.Empty(t, hosts[0].Hops())
}

func TestSplitProxyJump(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"none", nil},
		{"NONE", nil},
		{"bastion", []string{"bastion"}},
		{"bastion, admin@gw:2222", []string{"bastion", "admin@gw:2222"}},
		{"ssh://jump1,ssh://jump2", []string{"jump1", "jump2"}},
		{"a,,b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitProxyJump(tt.input))
		})
	}
}
