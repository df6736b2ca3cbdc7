package tool

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/core"
)

const defaultCommandTimeout = 2 * time.Minute

// ShellToolOptions configures the execute_command tool.
type ShellToolOptions struct {
	// Shell is the interpreter the command is passed to. Defaults to
	// "/bin/sh".
	Shell string

	// Timeout bounds a single command execution. Defaults to two minutes.
	Timeout time.Duration

	// MaxOutputBytes truncates combined output beyond this size. Defaults
	// to 64 KiB.
	MaxOutputBytes int
}

// RegisterShellTool adds execute_command to the catalog and assigns it to
// the "shell" capability group.
func RegisterShellTool(catalog *Catalog, optFns ...func(o *ShellToolOptions)) {
	opts := ShellToolOptions{
		Shell:          "/bin/sh",
		Timeout:        defaultCommandTimeout,
		MaxOutputBytes: 64 * 1024,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	def := Definition{
		Name:        "execute_command",
		Description: "Execute a shell command in the workspace directory and return its combined output and exit code.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The command line to run.",
				},
			},
			"required": []string{"command"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			command, _ := StringParam(toolCtx, "command")
			if strings.TrimSpace(command) == "" {
				return "", fmt.Errorf("command must not be empty")
			}

			toolCtx.LogInfo("tool.execute_command", "task_id", toolCtx.TaskID(), "command", command)

			ctx, cancel := context.WithTimeout(toolCtx.Context(), opts.Timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, opts.Shell, "-c", command)
			cmd.Dir = toolCtx.WorkspacePath()

			var buf bytes.Buffer
			cmd.Stdout = &buf
			cmd.Stderr = &buf

			runErr := cmd.Run()

			output := buf.String()
			if len(output) > opts.MaxOutputBytes {
				output = output[:opts.MaxOutputBytes] + "\n[truncated]"
			}

			if ctx.Err() == context.DeadlineExceeded {
				toolCtx.LogWarn("tool.execute_command.timeout", "task_id", toolCtx.TaskID(), "timeout", opts.Timeout)
				return "", fmt.Errorf("command timed out after %s", opts.Timeout)
			}

			exitCode := 0
			if exitErr, ok := runErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else if runErr != nil {
				return "", fmt.Errorf("run command: %w", runErr)
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "Exit code: %d\n", exitCode)
			if output == "" {
				sb.WriteString("(no output)")
			} else {
				sb.WriteString(output)
			}

			return sb.String(), nil
		},
	}

	catalog.Register(def)
	catalog.AddToGroup("shell", def.Name)
}
