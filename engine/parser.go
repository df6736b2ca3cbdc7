package engine

import (
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// ParseIssue describes a tool block that could not be parsed. Issues are
// reported to the caller instead of being silently dropped so the loop can
// log them and feed corrective guidance back to the model.
type ParseIssue struct {
	Tool   string // Tool name of the offending block
	Offset int    // Byte offset of the opening tag in the scanned text
	Reason string // Human readable description
}

func (i ParseIssue) String() string {
	return fmt.Sprintf("tool block <%s> at offset %d: %s", i.Tool, i.Offset, i.Reason)
}

// ParseResult holds the tool calls recovered from one assistant message plus
// any malformed blocks encountered along the way.
type ParseResult struct {
	Calls     []*core.ToolCall
	Malformed []ParseIssue
}

// ParserOptions configures a Parser.
type ParserOptions struct {
	// CommandFallbackTools names tools whose bare inner text maps to the
	// "command" parameter instead of "content".
	CommandFallbackTools []string
}

// Parser recovers tool invocations from assistant text using the tag
// protocol:
//
//	<tool_name><param>value</param>...</tool_name>
//
// It is an explicit stack-based reader over a one-level grammar: tool blocks
// at the top, parameter tags one level down, raw text inside parameters.
// Nested same-named tags, attributes and escaped markup are not supported.
// Only registered tool names open a block; any other tag is treated as plain
// text. Unterminated or malformed blocks are reported, never silently
// skipped.
type Parser struct {
	knownTools      map[string]bool
	commandFallback map[string]bool
}

// NewParser constructs a parser that recognizes the given tool names.
func NewParser(toolNames []string, optFns ...func(o *ParserOptions)) *Parser {
	opts := ParserOptions{
		CommandFallbackTools: []string{"execute_command"},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	known := make(map[string]bool, len(toolNames))
	for _, name := range toolNames {
		known[name] = true
	}
	fallback := make(map[string]bool, len(opts.CommandFallbackTools))
	for _, name := range opts.CommandFallbackTools {
		fallback[name] = true
	}

	return &Parser{knownTools: known, commandFallback: fallback}
}

// Parse scans text once, left to right, and returns the tool calls found in
// order of appearance.
func (p *Parser) Parse(text string) ParseResult {
	var result ParseResult

	i := 0
	for i < len(text) {
		lt := strings.IndexByte(text[i:], '<')
		if lt < 0 {
			break
		}
		i += lt

		name, closing, end, ok := readTag(text, i)
		if !ok || closing || !p.knownTools[name] {
			i++
			continue
		}

		call, issue, next := p.parseBlock(text, name, i, end)
		if issue != nil {
			result.Malformed = append(result.Malformed, *issue)
		}
		if call != nil {
			result.Calls = append(result.Calls, call)
		}
		i = next
	}

	return result
}

// parseBlock consumes one tool block starting at the opening tag. It returns
// the parsed call (nil when malformed), an issue (nil when clean), and the
// offset parsing should resume from.
func (p *Parser) parseBlock(text, toolName string, open, innerStart int) (*core.ToolCall, *ParseIssue, int) {
	closeTag := "</" + toolName + ">"
	innerEnd := strings.Index(text[innerStart:], closeTag)
	if innerEnd < 0 {
		// Resume right after the opening tag so a later well-formed
		// block is still recovered.
		return nil, &ParseIssue{
			Tool:   toolName,
			Offset: open,
			Reason: "unterminated block, missing " + closeTag,
		}, innerStart
	}
	innerEnd += innerStart
	next := innerEnd + len(closeTag)
	inner := text[innerStart:innerEnd]

	params, issue := p.parseParams(toolName, open, inner)
	if issue != nil {
		return nil, issue, next
	}

	if len(params) == 0 {
		trimmed := strings.TrimSpace(inner)
		if trimmed == "" {
			return nil, &ParseIssue{
				Tool:   toolName,
				Offset: open,
				Reason: "empty block, no parameters",
			}, next
		}
		key := "content"
		if p.commandFallback[toolName] {
			key = "command"
		}
		params = map[string]any{key: trimmed}
	}

	return core.NewToolCall(toolName, params), nil, next
}

// parseParams reads <key>value</key> pairs from a block's inner text. Keys
// repeat last-write-wins. A parameter tag without its matching close makes
// the whole block malformed.
func (p *Parser) parseParams(toolName string, blockOffset int, inner string) (map[string]any, *ParseIssue) {
	params := map[string]any{}

	i := 0
	for i < len(inner) {
		lt := strings.IndexByte(inner[i:], '<')
		if lt < 0 {
			break
		}
		i += lt

		name, closing, end, ok := readTag(inner, i)
		if !ok {
			i++
			continue
		}
		if closing {
			return nil, &ParseIssue{
				Tool:   toolName,
				Offset: blockOffset,
				Reason: "unexpected closing tag </" + name + ">",
			}
		}

		closeTag := "</" + name + ">"
		valueEnd := strings.Index(inner[end:], closeTag)
		if valueEnd < 0 {
			return nil, &ParseIssue{
				Tool:   toolName,
				Offset: blockOffset,
				Reason: "unterminated parameter <" + name + ">",
			}
		}
		valueEnd += end

		params[name] = strings.TrimSpace(inner[end:valueEnd])
		i = valueEnd + len(closeTag)
	}

	if len(params) == 0 {
		return nil, nil
	}
	return params, nil
}

// readTag attempts to read a tag at position i (which must point at '<').
// It returns the tag name, whether it is a closing tag, the offset just past
// '>', and whether a well-formed tag was present.
func readTag(s string, i int) (name string, closing bool, end int, ok bool) {
	j := i + 1
	if j < len(s) && s[j] == '/' {
		closing = true
		j++
	}

	start := j
	for j < len(s) && isTagNameChar(s[j]) {
		j++
	}
	if j == start || j >= len(s) || s[j] != '>' {
		return "", false, 0, false
	}

	return s[start:j], closing, j + 1, true
}

func isTagNameChar(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
