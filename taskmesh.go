// Package taskmesh provides a high-level façade over the task engine and its
// supporting services (tool catalog, security policy, storage & logging)
// enabling rapid construction of autonomous task agents. Most applications
// interact with this package by:
//  1. Creating a TaskMesh via New() with a model provider (optionally
//     overriding the default in-memory store, policy or tool set)
//  2. Starting tasks asynchronously (NewTask + Start) or synchronously (Run)
//  3. Observing progress through a core.TaskObserver
//
// The façade delegates the request/tool loop to engine.TaskEngine while
// keeping setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a durable
// task store, a hardened security configuration and a structured logger.
package taskmesh

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/engine"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/security"
	"github.com/hupe1980/taskmesh/storage"
	"github.com/hupe1980/taskmesh/tool"
)

// Options configures the TaskMesh instance.
type Options struct {
	// EngineConfig tunes the request/tool loop (mistake limit, round cap,
	// streaming, native tool definitions).
	EngineConfig engine.Config

	// SecurityConfig configures the fail-closed policy applied to every
	// tool call. Ignored when Policy is set.
	SecurityConfig security.Config

	// Policy overrides the security engine built from SecurityConfig.
	Policy core.Approver

	// Store persists task snapshots (defaults to an in-memory store).
	Store core.TaskStore

	// Observer receives lifecycle, message and tool notifications for all
	// engines created by this mesh.
	Observer core.TaskObserver

	// Resources reaches external resource servers; when set the MCP bridge
	// tools are registered on the shared catalog.
	Resources core.ResourceClient

	// Shell configures the execute_command tool.
	Shell tool.ShellToolOptions

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// TaskMesh is the high-level façade aggregating the shared services that task
// engines are built from. The tool catalog and security policy are shared
// across all tasks; each task gets its own engine instance.
type TaskMesh struct {
	opts     Options
	provider model.Provider
	catalog  *tool.Catalog
	policy   core.Approver
	store    core.TaskStore
}

// New creates a new TaskMesh instance with optional overrides. Any unset
// service is initialized with its default implementation and the standard
// tool set is registered on the shared catalog.
func New(provider model.Provider, optFns ...func(o *Options)) (*TaskMesh, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider must not be nil")
	}

	opts := Options{
		EngineConfig:   engine.DefaultConfig,
		SecurityConfig: security.DefaultConfig(),
		Store:          storage.NewInMemoryStore(),
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	policy := opts.Policy
	if policy == nil {
		policy = security.NewEngine(opts.SecurityConfig, func(o *security.EngineOptions) {
			o.Logger = opts.Logger
		})
	}

	shell := opts.Shell
	catalog := tool.NewCatalog()
	tool.RegisterCoreTools(catalog, func(o *tool.CoreToolsOptions) {
		o.Shell = shell
		o.EnableMCP = opts.Resources != nil
	})

	return &TaskMesh{
		opts:     opts,
		provider: provider,
		catalog:  catalog,
		policy:   policy,
		store:    opts.Store,
	}, nil
}

// Catalog returns the shared tool catalog so callers can register additional
// tools before starting tasks.
func (m *TaskMesh) Catalog() *tool.Catalog { return m.catalog }

// NewTask creates an engine for a fresh task rooted at workspacePath. The
// returned engine is idle; call Start to run it.
func (m *TaskMesh) NewTask(taskID, workspacePath string) (*engine.TaskEngine, error) {
	if taskID == "" {
		taskID = core.NewID()
	}

	return engine.New(taskID, workspacePath, m.provider, m.catalog, func(o *engine.Options) {
		o.Config = m.opts.EngineConfig
		o.Policy = m.policy
		o.Store = m.store
		o.Observer = m.opts.Observer
		o.Resources = m.opts.Resources
		o.Logger = m.opts.Logger
	})
}

// Run is a synchronous helper that creates a task with a generated id, runs
// the loop to a terminal state and returns the completion result text.
func (m *TaskMesh) Run(ctx context.Context, workspacePath, prompt string) (string, error) {
	e, err := m.NewTask("", workspacePath)
	if err != nil {
		return "", err
	}

	if err := e.Start(ctx, prompt, nil); err != nil {
		return "", err
	}

	if e.Status() != core.StatusCompleted {
		return "", fmt.Errorf("task %s ended in status %s", e.TaskID(), e.Status())
	}

	for _, msg := range e.Messages() {
		if msg.IsCompletionMarker() {
			return msg.Text, nil
		}
	}

	return "", nil
}

// Task returns the stored snapshot for a task id.
func (m *TaskMesh) Task(taskID string) (*core.Task, error) {
	return m.store.Get(taskID)
}

// Tasks lists stored task snapshots matching the filter.
func (m *TaskMesh) Tasks(filter core.TaskFilter) ([]*core.Task, error) {
	return m.store.Query(filter)
}
