package security

// Config holds the policy inputs consulted on every approval. It is loaded at
// construction and reloadable via Engine.Update; a reload is not transactional
// with in-flight validations and applies to the next-evaluated call.
type Config struct {
	// CommandWhitelist lists command tokens permitted when EnforceWhitelist is on.
	CommandWhitelist []string `json:"command_whitelist,omitempty"`
	// CommandBlacklist lists rejected command tokens or exact full command strings.
	CommandBlacklist []string `json:"command_blacklist,omitempty"`
	// AllowedPaths restricts file access to the listed prefixes when non-empty
	// (default-deny outside the list).
	AllowedPaths []string `json:"allowed_paths,omitempty"`
	// BlockedPaths rejects file access under any listed prefix.
	BlockedPaths []string `json:"blocked_paths,omitempty"`
	// AllowedTools restricts dispatch to the listed tool names when non-empty.
	AllowedTools []string `json:"allowed_tools,omitempty"`
	// BlockedTools rejects the listed tool names when AllowedTools is empty.
	BlockedTools []string `json:"blocked_tools,omitempty"`
	// EnforceWhitelist rejects command tokens absent from CommandWhitelist.
	EnforceWhitelist bool `json:"enforce_whitelist"`
	// BlockSensitiveDirs hard-rejects access to OS-sensitive directories
	// instead of only warning.
	BlockSensitiveDirs bool `json:"block_sensitive_dirs"`
}

// DefaultConfig returns a conservative baseline: no whitelist enforcement, a
// blacklist of well-known destructive commands, and sensitive-directory
// blocking enabled.
func DefaultConfig() Config {
	return Config{
		CommandBlacklist: []string{
			"rm -rf /",
			"mkfs",
			"dd",
			"shutdown",
			"reboot",
		},
		BlockSensitiveDirs: true,
	}
}

func (c Config) clone() Config {
	out := c
	out.CommandWhitelist = append([]string(nil), c.CommandWhitelist...)
	out.CommandBlacklist = append([]string(nil), c.CommandBlacklist...)
	out.AllowedPaths = append([]string(nil), c.AllowedPaths...)
	out.BlockedPaths = append([]string(nil), c.BlockedPaths...)
	out.AllowedTools = append([]string(nil), c.AllowedTools...)
	out.BlockedTools = append([]string(nil), c.BlockedTools...)
	return out
}
