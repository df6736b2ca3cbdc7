package tool

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hupe1980/taskmesh/core"
)

const (
	// maxReadBytes bounds the content returned by read_file so a single
	// large file cannot flood the conversation.
	maxReadBytes = 256 * 1024

	// maxListEntries bounds list_files output.
	maxListEntries = 500

	// maxSearchResults bounds search_files output.
	maxSearchResults = 200
)

// resolveWorkspacePath makes a path absolute relative to the workspace and
// cleans it. Absolute inputs are only cleaned.
func resolveWorkspacePath(workspace, path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(workspace, path)
	}

	return filepath.Clean(path)
}

// RegisterFileTools adds the filesystem tool set to the catalog and assigns
// it to the "filesystem" capability group.
func RegisterFileTools(catalog *Catalog) {
	defs := []Definition{
		readFileTool(),
		writeToFileTool(),
		replaceInFileTool(),
		listFilesTool(),
		searchFilesTool(),
		deleteFileTool(),
	}

	for _, def := range defs {
		catalog.Register(def)
		catalog.AddToGroup("filesystem", def.Name)
	}
}

func readFileTool() Definition {
	return Definition{
		Name:        "read_file",
		Description: "Read the contents of a file at the given path. Large files are truncated.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path of the file to read, relative to the workspace.",
				},
			},
			"required": []string{"path"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			path, _ := StringParam(toolCtx, "path")
			abs := resolveWorkspacePath(toolCtx.WorkspacePath(), path)

			data, err := os.ReadFile(abs)
			if err != nil {
				return "", fmt.Errorf("read %s: %w", path, err)
			}

			if len(data) > maxReadBytes {
				return string(data[:maxReadBytes]) + "\n[truncated]", nil
			}

			return string(data), nil
		},
	}
}

func writeToFileTool() Definition {
	return Definition{
		Name:        "write_to_file",
		Description: "Write content to a file, creating parent directories and overwriting any existing file.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Destination path, relative to the workspace.",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Full content to write.",
				},
			},
			"required": []string{"path", "content"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			path, _ := StringParam(toolCtx, "path")
			content, _ := StringParam(toolCtx, "content")
			abs := resolveWorkspacePath(toolCtx.WorkspacePath(), path)

			if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
				return "", fmt.Errorf("create parent directories for %s: %w", path, err)
			}

			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("write %s: %w", path, err)
			}

			return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
		},
	}
}

func replaceInFileTool() Definition {
	return Definition{
		Name:        "replace_in_file",
		Description: "Replace an exact string in a file with a new string. The old string must occur exactly once unless replace_all is set.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path of the file to edit, relative to the workspace.",
				},
				"old_string": map[string]any{
					"type":        "string",
					"description": "Exact text to replace.",
				},
				"new_string": map[string]any{
					"type":        "string",
					"description": "Replacement text.",
				},
				"replace_all": map[string]any{
					"type":        "boolean",
					"description": "Replace every occurrence instead of requiring a unique match.",
				},
			},
			"required": []string{"path", "old_string", "new_string"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			path, _ := StringParam(toolCtx, "path")
			oldStr, _ := StringParam(toolCtx, "old_string")
			newStr, _ := StringParam(toolCtx, "new_string")
			replaceAll, _ := BoolParam(toolCtx, "replace_all")

			if oldStr == newStr {
				return "", fmt.Errorf("old_string and new_string are identical")
			}

			abs := resolveWorkspacePath(toolCtx.WorkspacePath(), path)

			data, err := os.ReadFile(abs)
			if err != nil {
				return "", fmt.Errorf("read %s: %w", path, err)
			}

			content := string(data)
			count := strings.Count(content, oldStr)
			if count == 0 {
				return "", fmt.Errorf("old_string not found in %s", path)
			}

			if !replaceAll && count > 1 {
				return "", fmt.Errorf("old_string occurs %d times in %s; provide more context or set replace_all", count, path)
			}

			content = strings.ReplaceAll(content, oldStr, newStr)
			if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("write %s: %w", path, err)
			}

			if replaceAll {
				return fmt.Sprintf("Replaced %d occurrences in %s", count, path), nil
			}

			return fmt.Sprintf("Replaced 1 occurrence in %s", path), nil
		},
	}
}

func listFilesTool() Definition {
	return Definition{
		Name:        "list_files",
		Description: "List files and directories at the given path. Set recursive to walk the whole tree.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to list, relative to the workspace.",
				},
				"recursive": map[string]any{
					"type":        "boolean",
					"description": "Walk the directory tree instead of a single level.",
				},
			},
			"required": []string{"path"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			path, _ := StringParam(toolCtx, "path")
			recursive, _ := BoolParam(toolCtx, "recursive")
			abs := resolveWorkspacePath(toolCtx.WorkspacePath(), path)

			var entries []string

			if recursive {
				err := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
					if err != nil {
						return nil //nolint:nilerr // skip unreadable entries
					}
					if p == abs {
						return nil
					}
					if d.IsDir() && (d.Name() == ".git" || d.Name() == "node_modules") {
						return filepath.SkipDir
					}

					rel, relErr := filepath.Rel(abs, p)
					if relErr != nil {
						rel = p
					}
					if d.IsDir() {
						rel += "/"
					}
					entries = append(entries, rel)

					if len(entries) >= maxListEntries {
						return fs.SkipAll
					}
					return nil
				})
				if err != nil {
					return "", fmt.Errorf("list %s: %w", path, err)
				}
			} else {
				dirEntries, err := os.ReadDir(abs)
				if err != nil {
					return "", fmt.Errorf("list %s: %w", path, err)
				}
				for _, e := range dirEntries {
					name := e.Name()
					if e.IsDir() {
						name += "/"
					}
					entries = append(entries, name)
					if len(entries) >= maxListEntries {
						break
					}
				}
			}

			if len(entries) == 0 {
				return "(empty)", nil
			}

			sort.Strings(entries)
			out := strings.Join(entries, "\n")
			if len(entries) >= maxListEntries {
				out += "\n[truncated]"
			}

			return out, nil
		},
	}
}

func searchFilesTool() Definition {
	return Definition{
		Name:        "search_files",
		Description: "Search files under a directory for a regular expression and return matching lines.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to search, relative to the workspace.",
				},
				"regex": map[string]any{
					"type":        "string",
					"description": "Go regular expression to match against file lines.",
				},
				"file_pattern": map[string]any{
					"type":        "string",
					"description": "Optional glob restricting which file names are searched, e.g. *.go.",
				},
			},
			"required": []string{"path", "regex"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			path, _ := StringParam(toolCtx, "path")
			pattern, _ := StringParam(toolCtx, "regex")
			filePattern, _ := StringParam(toolCtx, "file_pattern")

			re, err := regexp.Compile(pattern)
			if err != nil {
				return "", fmt.Errorf("invalid regex: %w", err)
			}

			abs := resolveWorkspacePath(toolCtx.WorkspacePath(), path)

			var results []string

			walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil //nolint:nilerr // skip unreadable entries
				}
				if d.IsDir() {
					if d.Name() == ".git" || d.Name() == "node_modules" {
						return filepath.SkipDir
					}
					return nil
				}

				if filePattern != "" {
					matched, matchErr := filepath.Match(filePattern, d.Name())
					if matchErr != nil || !matched {
						return nil
					}
				}

				data, readErr := os.ReadFile(p)
				if readErr != nil {
					return nil //nolint:nilerr // skip unreadable files
				}

				rel, relErr := filepath.Rel(abs, p)
				if relErr != nil {
					rel = p
				}

				for i, line := range strings.Split(string(data), "\n") {
					if re.MatchString(line) {
						results = append(results, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
						if len(results) >= maxSearchResults {
							return fs.SkipAll
						}
					}
				}

				return nil
			})
			if walkErr != nil {
				return "", fmt.Errorf("search %s: %w", path, walkErr)
			}

			if len(results) == 0 {
				return "No matches found.", nil
			}

			out := strings.Join(results, "\n")
			if len(results) >= maxSearchResults {
				out += "\n[truncated]"
			}

			return out, nil
		},
	}
}

func deleteFileTool() Definition {
	return Definition{
		Name:        "delete_file",
		Description: "Delete a single file at the given path. Directories are not removed.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path of the file to delete, relative to the workspace.",
				},
			},
			"required": []string{"path"},
		},
		Handler: func(toolCtx *core.ToolExecutionContext) (string, error) {
			path, _ := StringParam(toolCtx, "path")
			abs := resolveWorkspacePath(toolCtx.WorkspacePath(), path)

			info, err := os.Stat(abs)
			if err != nil {
				return "", fmt.Errorf("stat %s: %w", path, err)
			}
			if info.IsDir() {
				return "", fmt.Errorf("%s is a directory", path)
			}

			if err := os.Remove(abs); err != nil {
				toolCtx.LogError("tool.delete_file", "task_id", toolCtx.TaskID(), "path", path, "error", err)
				return "", fmt.Errorf("delete %s: %w", path, err)
			}

			return fmt.Sprintf("Deleted %s", path), nil
		},
	}
}
