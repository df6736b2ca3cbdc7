package security

import "regexp"

// dangerousPatterns match full command strings that are rejected regardless of
// whitelist membership. Each entry carries a short rule label surfaced in the
// rejection message.
var dangerousPatterns = []struct {
	Rule    string
	Pattern *regexp.Regexp
}{
	{"root-deletion", regexp.MustCompile(`rm\s+(-[a-zA-Z]+\s+)*(/|/\*)(\s|$)`)},
	{"privilege-escalation", regexp.MustCompile(`(^|\s|;|&&|\|\|)\s*(sudo|su)(\s|$)`)},
	{"world-writable-chmod", regexp.MustCompile(`chmod\s+(-[a-zA-Z]+\s+)*777`)},
	{"shell-piping", regexp.MustCompile(`\|\s*(ba|z|da)?sh(\s|$)`)},
	{"output-redirection-clobber", regexp.MustCompile(`>\s*/(etc|boot|dev/sd|dev/nvme)`)},
	{"chained-destructive", regexp.MustCompile(`(;|&&|\|\|)\s*rm\s+-[a-zA-Z]*r[a-zA-Z]*f`)},
	{"filesystem-format", regexp.MustCompile(`(^|\s)mkfs(\.|\s)`)},
	{"raw-disk-write", regexp.MustCompile(`(^|\s)dd\s+.*of=/dev/`)},
}

// sensitiveDirs are OS directories that always produce a warning on access
// and a hard rejection when Config.BlockSensitiveDirs is set. Entries starting
// with ~/ are expanded against the current user's home directory.
var sensitiveDirs = []string{
	"/etc",
	"/boot",
	"/sys",
	"/proc",
	"/var/log",
	"~/.ssh",
	"~/.aws",
	"~/.gnupg",
	"~/.config",
	"~/.kube",
}

// protectedDeletePatterns reject delete targets independent of path gates.
var protectedDeletePatterns = []struct {
	Rule    string
	Pattern *regexp.Regexp
}{
	{"wildcard-delete", regexp.MustCompile(`[*?\[\]]`)},
	{"git-metadata", regexp.MustCompile(`(^|/)\.git(/|$)`)},
	{"dependency-tree", regexp.MustCompile(`(^|/)node_modules(/|$)`)},
	{"env-file", regexp.MustCompile(`(^|/)\.env[^/]*$`)},
	{"package-manifest", regexp.MustCompile(`(^|/)package(-lock)?\.json$`)},
}
