package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParser() *Parser {
	return NewParser([]string{
		"read_file", "write_to_file", "execute_command", "attempt_completion", "list_files",
	})
}

func TestParserSingleCall(t *testing.T) {
	res := testParser().Parse("<read_file><path>a.ts</path></read_file>")

	require.Len(t, res.Calls, 1)
	assert.Empty(t, res.Malformed)
	assert.Equal(t, "read_file", res.Calls[0].Name)
	assert.Equal(t, map[string]any{"path": "a.ts"}, res.Calls[0].Params)
	assert.NotEmpty(t, res.Calls[0].ID)
}

func TestParserMultipleCallsInOrder(t *testing.T) {
	text := "First I read the file.\n" +
		"<read_file><path>main.go</path></read_file>\n" +
		"Then I list the directory.\n" +
		"<list_files><path>.</path><recursive>true</recursive></list_files>\n"

	res := testParser().Parse(text)

	require.Len(t, res.Calls, 2)
	assert.Equal(t, "read_file", res.Calls[0].Name)
	assert.Equal(t, "list_files", res.Calls[1].Name)
	assert.Equal(t, "true", res.Calls[1].Params["recursive"])
}

func TestParserCommandFallback(t *testing.T) {
	// ---- Shell tool: bare inner text becomes "command" ----
	res := testParser().Parse("<execute_command>ls -la</execute_command>")
	require.Len(t, res.Calls, 1)
	assert.Equal(t, map[string]any{"command": "ls -la"}, res.Calls[0].Params)

	// ---- Non-shell tool: bare inner text becomes "content" ----
	res = testParser().Parse("<write_to_file>hello world</write_to_file>")
	require.Len(t, res.Calls, 1)
	assert.Equal(t, map[string]any{"content": "hello world"}, res.Calls[0].Params)
}

func TestParserUnknownTagsIgnored(t *testing.T) {
	text := "Generic <b>markup</b> and a <thinking>aside</thinking> are not tool calls."

	res := testParser().Parse(text)

	assert.Empty(t, res.Calls)
	assert.Empty(t, res.Malformed)
}

func TestParserUnterminatedBlockReported(t *testing.T) {
	res := testParser().Parse("<read_file><path>a.ts</path>")

	assert.Empty(t, res.Calls)
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, "read_file", res.Malformed[0].Tool)
	assert.Contains(t, res.Malformed[0].Reason, "unterminated block")
}

func TestParserUnterminatedParamReported(t *testing.T) {
	res := testParser().Parse("<read_file><path>a.ts</read_file>")

	assert.Empty(t, res.Calls)
	require.Len(t, res.Malformed, 1)
	assert.Contains(t, res.Malformed[0].Reason, "unterminated parameter")
}

func TestParserEmptyBlockReported(t *testing.T) {
	res := testParser().Parse("<read_file>   </read_file>")

	assert.Empty(t, res.Calls)
	require.Len(t, res.Malformed, 1)
	assert.Contains(t, res.Malformed[0].Reason, "empty block")
}

func TestParserMalformedDoesNotPoisonLaterCalls(t *testing.T) {
	text := "<read_file><path>a.ts</path>\n" +
		"</read_file_wrong>\n" +
		"<list_files><path>src</path></list_files>"

	res := testParser().Parse(text)

	// The unterminated first block is reported, and scanning resumes so
	// the later well-formed block is still recovered.
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, "read_file", res.Malformed[0].Tool)
	require.Len(t, res.Calls, 1)
	assert.Equal(t, "list_files", res.Calls[0].Name)
}

func TestParserMultilineContent(t *testing.T) {
	text := "<write_to_file>\n<path>out.txt</path>\n<content>\nline one\nline two\n</content>\n</write_to_file>"

	res := testParser().Parse(text)

	require.Len(t, res.Calls, 1)
	assert.Equal(t, "out.txt", res.Calls[0].Params["path"])
	assert.Equal(t, "line one\nline two", res.Calls[0].Params["content"])
}

func TestParserCompletionBlock(t *testing.T) {
	res := testParser().Parse("<attempt_completion><result>Done</result></attempt_completion>")

	require.Len(t, res.Calls, 1)
	assert.Equal(t, "attempt_completion", res.Calls[0].Name)
	assert.Equal(t, "Done", res.Calls[0].Params["result"])
}

func TestParserMarkupInsideParamValue(t *testing.T) {
	text := "<write_to_file><path>page.html</path><content><html><body>hi</body></html></content></write_to_file>"

	res := testParser().Parse(text)

	require.Len(t, res.Calls, 1)
	assert.Equal(t, "<html><body>hi</body></html>", res.Calls[0].Params["content"])
}

func TestParseIssueString(t *testing.T) {
	issue := ParseIssue{Tool: "read_file", Offset: 7, Reason: "empty block, no parameters"}
	assert.Equal(t, "tool block <read_file> at offset 7: empty block, no parameters", issue.String())
}
