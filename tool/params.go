package tool

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

// StringParam returns a string parameter and whether it was present with the
// expected type.
func StringParam(toolCtx *core.ToolExecutionContext, key string) (string, bool) {
	v, ok := toolCtx.Params()[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// BoolParam returns a boolean parameter, tolerating the string forms "true"
// and "false" produced by the textual tool protocol.
func BoolParam(toolCtx *core.ToolExecutionContext, key string) (bool, bool) {
	v, ok := toolCtx.Params()[key]
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		if b == "true" {
			return true, true
		}
		if b == "false" {
			return false, true
		}
	}
	return false, false
}

// IntParam returns an integer parameter, tolerating float64 values produced
// by JSON decoding and numeric strings produced by the textual tool protocol.
func IntParam(toolCtx *core.ToolExecutionContext, key string) (int, bool) {
	v, ok := toolCtx.Params()[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// ObjectParam returns a map parameter, tolerating the JSON-string form
// produced by the textual tool protocol.
func ObjectParam(toolCtx *core.ToolExecutionContext, key string) (map[string]any, bool) {
	v, ok := toolCtx.Params()[key]
	if !ok {
		return nil, false
	}
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(m), &out); err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}
