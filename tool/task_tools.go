package tool

import (
	"fmt"
	"strings"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/internal/util"
)

// RegisterTaskTools adds the task control tools (completion, follow-up
// questions, todo tracking) to the catalog under the "task" capability group.
func RegisterTaskTools(catalog *Catalog) {
	defs := []Definition{
		attemptCompletionTool(),
		askFollowupQuestionTool(),
		updateTodoListTool(),
	}

	for _, def := range defs {
		catalog.Register(def)
		catalog.AddToGroup("task", def.Name)
	}
}

func attemptCompletionTool() Definition {
	return Definition{
		Name:        "attempt_completion",
		Description: "Present the final result of the task. Use only once all prior tool uses have succeeded.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"result": map[string]any{
					"type":        "string",
					"description": "Final result description for the user.",
				},
			},
			"required": []string{"result"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			result, _ := StringParam(toolCtx, "result")
			if strings.TrimSpace(result) == "" {
				return "", fmt.Errorf("result must not be empty")
			}
			return result, nil
		},
	}
}

// followupParams declares the ask_followup_question schema; required fields
// and types are derived from the struct by util.CreateSchema.
type followupParams struct {
	Question string `json:"question" description:"The question to ask the user."`
}

func askFollowupQuestionTool() Definition {
	return Definition{
		Name:        "ask_followup_question",
		Description: "Ask the user a clarifying question needed to proceed with the task.",
		Parameters:  util.CreateSchema(followupParams{}),
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			question, _ := StringParam(toolCtx, "question")
			if strings.TrimSpace(question) == "" {
				return "", fmt.Errorf("question must not be empty")
			}
			return fmt.Sprintf("Question for the user: %s", question), nil
		},
	}
}

func updateTodoListTool() Definition {
	return Definition{
		Name:        "update_todo_list",
		Description: "Replace the task's todo list with an updated markdown checklist ([ ] pending, [-] in progress, [x] done).",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"todos": map[string]any{
					"type":        "string",
					"description": "Markdown checklist, one item per line.",
				},
			},
			"required": []string{"todos"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			sink := toolCtx.Todos()
			if sink == nil {
				return "", fmt.Errorf("todo tracking is not available for this task")
			}

			raw, _ := StringParam(toolCtx, "todos")
			items := parseTodoChecklist(raw)
			sink.SetTodos(items)
			toolCtx.LogDebug("tool.update_todo_list", "task_id", toolCtx.TaskID(), "items", len(items))

			return fmt.Sprintf("Todo list updated (%d items)", len(items)), nil
		},
	}
}

// parseTodoChecklist converts a markdown checklist into todo items. Lines
// that do not look like checklist entries are kept as pending items so the
// model's intent is never silently dropped.
func parseTodoChecklist(raw string) []core.TodoItem {
	var items []core.TodoItem

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		if line == "" {
			continue
		}

		status := core.TodoPending
		switch {
		case strings.HasPrefix(line, "[x]") || strings.HasPrefix(line, "[X]"):
			status = core.TodoCompleted
			line = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "[-]"):
			status = core.TodoInProgress
			line = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "[ ]"):
			line = strings.TrimSpace(line[3:])
		}

		if line == "" {
			continue
		}

		items = append(items, core.TodoItem{Content: line, Status: status})
	}

	return items
}
