package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
)

// ViolationError reports a rejected tool call. It carries the violated rule so
// callers can distinguish policy rejections from execution failures.
type ViolationError struct {
	Tool    string `json:"tool"`    // Tool whose call was rejected
	Rule    string `json:"rule"`    // Violated rule label
	Message string `json:"message"` // Human-readable rejection reason
}

// Error implements the error interface for ViolationError.
func (e *ViolationError) Error() string {
	return fmt.Sprintf("security violation [%s] for tool %s: %s", e.Rule, e.Tool, e.Message)
}

// toolCategory selects which parameter-level gate applies to a tool.
type toolCategory int

const (
	categoryOther toolCategory = iota
	categoryShell
	categoryFileAccess
	categoryDelete
)

// categories maps built-in tool names to their gate. Tools absent from the
// map only pass through the tool-level gate.
var categories = map[string]toolCategory{
	"execute_command": categoryShell,
	"read_file":       categoryFileAccess,
	"write_to_file":   categoryFileAccess,
	"replace_in_file": categoryFileAccess,
	"list_files":      categoryFileAccess,
	"search_files":    categoryFileAccess,
	"delete_file":     categoryDelete,
}

// EngineOptions configures a policy Engine.
type EngineOptions struct {
	// Logger used for sensitive-directory warnings and rejection logging.
	Logger logging.Logger
}

// Engine is the pure decision component: given a tool call and execution
// context it approves or fail-closed rejects. It holds the read-mostly
// Config behind a mutex so an explicit Update can reload it while tasks run.
type Engine struct {
	mu     sync.RWMutex
	cfg    Config
	logger logging.Logger
}

// NewEngine constructs a policy engine from an initial configuration.
func NewEngine(cfg Config, optFns ...func(o *EngineOptions)) *Engine {
	opts := EngineOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Engine{cfg: cfg.clone(), logger: opts.Logger}
}

// Update replaces the active configuration. The swap is atomic with respect
// to Approve but not transactional with in-flight evaluations.
func (e *Engine) Update(cfg Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg.clone()
}

// Snapshot returns a copy of the active configuration.
func (e *Engine) Snapshot() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg.clone()
}

// Approve implements core.Approver. A nil return approves the call; any error
// is a rejection that the dispatcher converts into a failed result.
func (e *Engine) Approve(call *core.ToolCall, toolCtx *core.ToolExecutionContext) error {
	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	if err := e.checkToolGate(cfg, call.Name); err != nil {
		return err
	}

	switch categories[call.Name] {
	case categoryShell:
		command, _ := call.Params["command"].(string)
		return e.checkCommand(cfg, call.Name, command)
	case categoryFileAccess:
		path, _ := call.Params["path"].(string)
		return e.checkFileAccess(cfg, call.Name, path, toolCtx.WorkspacePath())
	case categoryDelete:
		path, _ := call.Params["path"].(string)
		if err := e.checkFileAccess(cfg, call.Name, path, toolCtx.WorkspacePath()); err != nil {
			return err
		}
		return e.checkDeleteTarget(call.Name, path)
	default:
		return nil
	}
}

// checkToolGate applies the allow-list (exclusive when configured) or the
// deny-list; with neither configured every tool name passes.
func (e *Engine) checkToolGate(cfg Config, name string) error {
	if len(cfg.AllowedTools) > 0 {
		for _, allowed := range cfg.AllowedTools {
			if allowed == name {
				return nil
			}
		}
		return &ViolationError{Tool: name, Rule: "tool-not-allowed", Message: fmt.Sprintf("tool %q is not in the allowed tool list", name)}
	}

	for _, blocked := range cfg.BlockedTools {
		if blocked == name {
			return &ViolationError{Tool: name, Rule: "tool-blocked", Message: fmt.Sprintf("tool %q is blocked by policy", name)}
		}
	}

	return nil
}

// checkCommand gates shell-execution tools. Blacklist and dangerous-pattern
// checks run before whitelist membership so a whitelisted token can never
// launder a destructive command.
func (e *Engine) checkCommand(cfg Config, tool, command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return &ViolationError{Tool: tool, Rule: "empty-command", Message: "empty command"}
	}

	token := strings.Fields(command)[0]

	for _, blocked := range cfg.CommandBlacklist {
		if token == blocked || command == blocked {
			return &ViolationError{Tool: tool, Rule: "command-blacklisted", Message: fmt.Sprintf("command %q is blacklisted", token)}
		}
	}

	for _, dp := range dangerousPatterns {
		if dp.Pattern.MatchString(command) {
			return &ViolationError{Tool: tool, Rule: dp.Rule, Message: fmt.Sprintf("command matches dangerous pattern %q", dp.Rule)}
		}
	}

	if cfg.EnforceWhitelist {
		for _, allowed := range cfg.CommandWhitelist {
			if token == allowed {
				return nil
			}
		}
		return &ViolationError{Tool: tool, Rule: "command-not-whitelisted", Message: fmt.Sprintf("command %q is not whitelisted", token)}
	}

	return nil
}

// checkFileAccess gates file read/write/update tools by resolved absolute path.
func (e *Engine) checkFileAccess(cfg Config, tool, path, workspace string) error {
	if path == "" {
		return &ViolationError{Tool: tool, Rule: "empty-path", Message: "empty path"}
	}

	abs := resolvePath(path, workspace)

	for _, blocked := range cfg.BlockedPaths {
		if underPrefix(abs, blocked) {
			return &ViolationError{Tool: tool, Rule: "path-blocked", Message: fmt.Sprintf("path %q is under blocked prefix %q", abs, blocked)}
		}
	}

	for _, dir := range expandedSensitiveDirs() {
		if underPrefix(abs, dir) {
			e.logger.Warn("security.sensitive_dir_access", "tool", tool, "path", abs, "dir", dir)
			if cfg.BlockSensitiveDirs {
				return &ViolationError{Tool: tool, Rule: "sensitive-directory", Message: fmt.Sprintf("path %q is inside sensitive directory %q", abs, dir)}
			}
		}
	}

	if len(cfg.AllowedPaths) > 0 {
		for _, allowed := range cfg.AllowedPaths {
			if underPrefix(abs, allowed) {
				return nil
			}
		}
		return &ViolationError{Tool: tool, Rule: "path-not-allowed", Message: fmt.Sprintf("path %q is outside the allowed path list", abs)}
	}

	return nil
}

// checkDeleteTarget applies the extra protections for delete tools.
func (e *Engine) checkDeleteTarget(tool, path string) error {
	for _, pp := range protectedDeletePatterns {
		if pp.Pattern.MatchString(path) {
			return &ViolationError{Tool: tool, Rule: pp.Rule, Message: fmt.Sprintf("delete target %q matches protected pattern %q", path, pp.Rule)}
		}
	}
	return nil
}

// resolvePath converts a possibly relative path into a cleaned absolute path
// rooted at the task workspace.
func resolvePath(path, workspace string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspace, path)
	}
	return filepath.Clean(path)
}

// underPrefix reports whether abs equals or descends from prefix.
func underPrefix(abs, prefix string) bool {
	prefix = filepath.Clean(prefix)
	if abs == prefix {
		return true
	}
	return strings.HasPrefix(abs, prefix+string(filepath.Separator))
}

// expandedSensitiveDirs resolves the ~/ entries of sensitiveDirs against the
// current user's home directory.
func expandedSensitiveDirs() []string {
	home, err := os.UserHomeDir()
	out := make([]string, 0, len(sensitiveDirs))
	for _, d := range sensitiveDirs {
		if strings.HasPrefix(d, "~/") {
			if err != nil {
				continue
			}
			out = append(out, filepath.Join(home, d[2:]))
			continue
		}
		out = append(out, d)
	}
	return out
}
