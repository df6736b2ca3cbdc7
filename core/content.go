package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ImagePart is an image attachment segment (base64 encoded).
type ImagePart struct {
	Data     string // Base64 encoded image bytes
	MimeType string // e.g. "image/png"
}

// isPart implements the Part interface for ImagePart.
func (ImagePart) isPart() {}

// ToolUsePart records a tool invocation requested by the assistant. Provider
// adapters that surface structured tool-use chunks emit these directly;
// text-protocol responses are parsed into ToolCalls by the engine instead.
type ToolUsePart struct {
	ID     string         // Synthesized or provider-supplied call id
	Name   string         // Tool name
	Params map[string]any // Named parameters
}

// isPart implements the Part interface for ToolUsePart.
func (ToolUsePart) isPart() {}

// ToolResultPart records the outcome of a previously issued tool call.
type ToolResultPart struct {
	ToolCallID string // Matches the originating call id
	ToolName   string // Tool name
	Content    string // Rendered result payload or error text
	IsError    bool   // True when the call failed
}

// isPart implements the Part interface for ToolResultPart.
func (ToolResultPart) isPart() {}

// Content holds role + ordered parts. The model-conversation history of a
// task is an ordered slice of Contents with roles user/assistant/tool.
type Content struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, assistant, tool)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}

// NewTextContent builds a single-text-part Content for the given role.
func NewTextContent(role, text string) Content {
	return Content{Role: role, Parts: []Part{TextPart{Text: text}}}
}

// Text concatenates all text parts in order.
func (c Content) Text() string {
	var out string
	for _, p := range c.Parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

// ToolUses returns any ToolUseParts contained within the content preserving
// their original order.
func (c Content) ToolUses() []ToolUsePart {
	var uses []ToolUsePart
	for _, p := range c.Parts {
		if tu, ok := p.(ToolUsePart); ok {
			uses = append(uses, tu)
		}
	}
	return uses
}
