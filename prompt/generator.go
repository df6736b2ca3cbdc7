// Package prompt builds the system prompt and environment context handed to
// model providers. Generation is pluggable via the Generator interface so
// embedders can swap in their own prompt strategy without touching the
// engine.
package prompt

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/taskmesh/tool"
)

// EnvironmentFacts captures host facts surfaced to the model.
type EnvironmentFacts struct {
	WorkingDirectory string
	Shell            string
	Platform         string
	OSVersion        string
	Date             time.Time
}

// CollectFacts gathers environment facts for a workspace from the host.
func CollectFacts(workspacePath string) EnvironmentFacts {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	osVersion := ""
	if data, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
		osVersion = strings.TrimSpace(string(data))
	}

	return EnvironmentFacts{
		WorkingDirectory: workspacePath,
		Shell:            shell,
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		OSVersion:        osVersion,
		Date:             time.Now(),
	}
}

// Context carries everything a generator needs to produce a system prompt.
type Context struct {
	WorkspacePath string
	Mode          string // Optional capability-group filter, empty means all tools
	Tools         []tool.Definition
	Facts         EnvironmentFacts
}

// Generator produces the system prompt for one model round.
type Generator interface {
	Generate(ctx Context) (string, error)
}

// BuilderOptions configures the default generator.
type BuilderOptions struct {
	// Preamble overrides the role statement at the top of the prompt.
	Preamble string
}

// Builder is the default Generator. It renders a role preamble, the textual
// tool-invocation protocol, the available tool listing and the completion
// contract.
type Builder struct {
	opts BuilderOptions
}

// NewBuilder constructs a Builder.
func NewBuilder(optFns ...func(o *BuilderOptions)) *Builder {
	opts := BuilderOptions{
		Preamble: "You are a highly skilled software engineer operating autonomously inside a workspace. You accomplish the user's task step by step using the tools described below.",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Builder{opts: opts}
}

// Generate implements Generator.
func (b *Builder) Generate(ctx Context) (string, error) {
	if len(ctx.Tools) == 0 {
		return "", fmt.Errorf("no tools available for prompt generation")
	}

	var sb strings.Builder

	sb.WriteString(b.opts.Preamble)
	sb.WriteString("\n\n")

	sb.WriteString("# Tool use\n\n")
	sb.WriteString("You invoke tools using XML-style tags. Each invocation names the tool as the outer tag and supplies parameters as nested tags:\n\n")
	sb.WriteString("<tool_name>\n<parameter_name>value</parameter_name>\n</tool_name>\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- Wait for the result of each tool use before relying on its outcome.\n")
	sb.WriteString("- Tool uses execute in the order you write them.\n")
	sb.WriteString("- When the task is fully accomplished, call attempt_completion with a result summary. Do not end a message without either a tool use or a completion attempt.\n\n")

	sb.WriteString("# Available tools\n")
	for _, def := range ctx.Tools {
		fmt.Fprintf(&sb, "\n## %s\n%s\n", def.Name, def.Description)
		writeParameterDocs(&sb, def)
	}

	sb.WriteString("\n# Environment\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", ctx.Facts.WorkingDirectory)
	fmt.Fprintf(&sb, "Shell: %s\n", ctx.Facts.Shell)
	fmt.Fprintf(&sb, "Platform: %s\n", ctx.Facts.Platform)
	if ctx.Facts.OSVersion != "" {
		fmt.Fprintf(&sb, "OS version: %s\n", ctx.Facts.OSVersion)
	}
	fmt.Fprintf(&sb, "Today's date: %s\n", ctx.Facts.Date.Format("2006-01-02"))

	return sb.String(), nil
}

// writeParameterDocs renders the parameter listing for one tool, required
// parameters first.
func writeParameterDocs(sb *strings.Builder, def tool.Definition) {
	properties, ok := def.Parameters["properties"].(map[string]any)
	if !ok || len(properties) == 0 {
		return
	}

	required := map[string]bool{}
	for _, name := range def.RequiredParams() {
		required[name] = true
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})

	sb.WriteString("Parameters:\n")
	for _, name := range names {
		desc := ""
		if prop, ok := properties[name].(map[string]any); ok {
			if d, ok := prop["description"].(string); ok {
				desc = d
			}
		}
		marker := "optional"
		if required[name] {
			marker = "required"
		}
		fmt.Fprintf(sb, "- %s (%s): %s\n", name, marker, desc)
	}
}

// EnvironmentDetails renders the per-task context block appended to the first
// round's user content.
func EnvironmentDetails(facts EnvironmentFacts) string {
	var sb strings.Builder
	sb.WriteString("<environment_details>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", facts.WorkingDirectory)
	fmt.Fprintf(&sb, "Shell: %s\n", facts.Shell)
	fmt.Fprintf(&sb, "Platform: %s\n", facts.Platform)
	if facts.OSVersion != "" {
		fmt.Fprintf(&sb, "OS version: %s\n", facts.OSVersion)
	}
	fmt.Fprintf(&sb, "Today's date: %s\n", facts.Date.Format("2006-01-02"))
	sb.WriteString("</environment_details>")
	return sb.String()
}
