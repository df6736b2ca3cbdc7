package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/model"
	"github.com/hupe1980/taskmesh/prompt"
	"github.com/hupe1980/taskmesh/security"
	"github.com/hupe1980/taskmesh/storage"
	"github.com/hupe1980/taskmesh/tool"
)

// Config defines tuning parameters for a TaskEngine's loop behavior.
type Config struct {
	// MistakeLimit is the number of consecutive tool-call-less rounds
	// tolerated before a synthetic guidance message is injected into the
	// conversation. 0 disables the check.
	MistakeLimit int

	// MaxRounds caps the number of loop rounds as a runaway guard.
	// 0 means unlimited.
	MaxRounds int

	// Stream requests partial response chunks from the provider. Partials
	// are surfaced through the observer; history only ever receives the
	// final composed message.
	Stream bool

	// StopOnToolError halts the remaining tool calls of a round after the
	// first failed one. The failed result still reaches the conversation
	// so the model can self-correct.
	StopOnToolError bool

	// NativeTools additionally advertises the catalog through the
	// provider's structured tool-calling interface. The textual tag
	// protocol remains active either way.
	NativeTools bool
}

// DefaultConfig provides production-ready defaults: three tool-call-less
// rounds before guidance is injected, a generous round cap, streaming off.
var DefaultConfig = Config{
	MistakeLimit: 3,
	MaxRounds:    100,
}

// Options configures a TaskEngine instance using the functional options
// pattern. All collaborators have working defaults; production embeddings
// typically provide their own policy, store and observer.
type Options struct {
	// Config contains loop tuning parameters. Defaults to DefaultConfig.
	Config Config

	// Policy approves tool calls before execution. Defaults to a security
	// engine with the default configuration. An explicitly nil policy
	// fails closed at dispatch time.
	Policy core.Approver

	// Store persists task snapshots between rounds. Defaults to an
	// in-memory store.
	Store core.TaskStore

	// Generator produces the per-round system prompt. Defaults to
	// prompt.NewBuilder().
	Generator prompt.Generator

	// Observer receives lifecycle, message and tool notifications for
	// this engine instance only. Defaults to NoOp.
	Observer core.TaskObserver

	// Resources reaches external resource servers for the MCP bridge
	// tools. Optional.
	Resources core.ResourceClient

	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger

	// Facts overrides the environment facts collected from the host.
	Facts *prompt.EnvironmentFacts
}

// TaskEngine owns one task's conversation state and status and runs the
// request/tool loop: build prompt, call the model, parse tool invocations,
// dispatch them under the security policy, append ordered results, repeat
// until the model signals completion, the caller aborts, or an unrecoverable
// error occurs.
//
// Concurrency model:
//   - Exactly one loop runs per engine at a time; Start rejects re-entry.
//   - Tool calls within one round execute strictly sequentially in
//     detection order.
//   - Abort and pause are cooperative signals honored at round boundaries;
//     the run context is additionally cancelled on abort so in-flight model
//     calls and spawned processes stop promptly when they honor it.
//   - External actors read snapshots (Messages, History, Todos) and never
//     mutate internal state directly.
type TaskEngine struct {
	task       *core.Task
	machine    *core.StateMachine
	provider   model.Provider
	catalog    *tool.Catalog
	dispatcher *tool.Dispatcher
	parser     *Parser
	generator  prompt.Generator
	policy     core.Approver
	store      core.TaskStore
	observer   core.TaskObserver
	resources  core.ResourceClient
	logger     logging.Logger
	facts      prompt.EnvironmentFacts
	config     Config

	mu       sync.Mutex // guards the fields below
	running  bool
	aborted  bool
	paused   bool
	resumeCh chan struct{}
	cancel   context.CancelFunc
}

// New creates a TaskEngine for one task. The provider and catalog are
// required; construction fails fast on a missing collaborator so no partial
// engine is ever created.
func New(taskID, workspacePath string, provider model.Provider, catalog *tool.Catalog, optFns ...func(o *Options)) (*TaskEngine, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id must not be empty")
	}
	if workspacePath == "" {
		return nil, fmt.Errorf("workspace path must not be empty")
	}
	if provider == nil {
		return nil, fmt.Errorf("model provider must not be nil")
	}
	if catalog == nil || len(catalog.Names()) == 0 {
		return nil, fmt.Errorf("tool catalog must not be empty")
	}

	opts := Options{
		Config:    DefaultConfig,
		Policy:    security.NewEngine(security.DefaultConfig()),
		Store:     storage.NewInMemoryStore(),
		Generator: prompt.NewBuilder(),
		Observer:  core.NoOpObserver{},
		Logger:    logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Observer == nil {
		opts.Observer = core.NoOpObserver{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Store == nil {
		opts.Store = storage.NewInMemoryStore()
	}
	if opts.Generator == nil {
		opts.Generator = prompt.NewBuilder()
	}

	facts := prompt.CollectFacts(workspacePath)
	if opts.Facts != nil {
		facts = *opts.Facts
	}

	e := &TaskEngine{
		task:      core.NewTask(taskID, workspacePath),
		machine:   core.NewStateMachine(),
		provider:  provider,
		catalog:   catalog,
		parser:    NewParser(catalog.Names()),
		generator: opts.Generator,
		policy:    opts.Policy,
		store:     opts.Store,
		observer:  opts.Observer,
		resources: opts.Resources,
		logger:    opts.Logger,
		facts:     facts,
		config:    opts.Config,
	}
	e.dispatcher = tool.NewDispatcher(catalog, func(o *tool.DispatcherOptions) {
		o.Logger = opts.Logger
		o.Observer = opts.Observer
	})

	if err := e.store.Save(e.task); err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}

	return e, nil
}

// Status returns the task's current lifecycle state.
func (e *TaskEngine) Status() core.Status {
	return e.machine.Current()
}

// TaskID returns the task's id.
func (e *TaskEngine) TaskID() string {
	return e.task.ID
}

// Messages returns a snapshot of the task's message log.
func (e *TaskEngine) Messages() []core.Message {
	return e.task.MessagesSnapshot()
}

// History returns a snapshot of the model-conversation history.
func (e *TaskEngine) History() []core.Content {
	return e.task.HistorySnapshot()
}

// Todos returns a snapshot of the task's todo list.
func (e *TaskEngine) Todos() []core.TodoItem {
	return e.task.Todos()
}

// SetTodos replaces the task's todo list.
func (e *TaskEngine) SetTodos(items []core.TodoItem) {
	e.task.SetTodos(items)
}

// MistakeCount returns the consecutive-mistake counter. Exposed for
// inspection; the loop manages it.
func (e *TaskEngine) MistakeCount() int {
	return e.task.MistakeCount()
}

// Abort requests termination. It is one-way: once set the loop exits at the
// next round boundary, and the run context is cancelled so in-flight
// collaborator calls stop promptly. Abort wins over pause.
func (e *TaskEngine) Abort() {
	e.mu.Lock()
	e.aborted = true
	if e.paused {
		e.paused = false
		close(e.resumeCh)
	}
	cancel := e.cancel
	running := e.running
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// When no loop is active there is no round boundary to observe the
	// flag, so the transition happens here. A task already in a terminal
	// state stays there; observers only hear about aborts that took.
	if !running && !e.machine.Current().IsTerminal() {
		if err := e.transition(core.StatusAborted); err == nil {
			e.observer.OnTaskAborted(e.task.ID)
		}
	}
}

// Pause cooperatively suspends the loop at the next round boundary.
func (e *TaskEngine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.paused || e.aborted || e.machine.Current() != core.StatusRunning {
		return
	}
	e.paused = true
	e.resumeCh = make(chan struct{})

	e.transition(core.StatusPaused)
	e.observer.OnTaskPaused(e.task.ID)
}

// Resume wakes a paused loop.
func (e *TaskEngine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.paused {
		return
	}
	e.paused = false
	close(e.resumeCh)

	e.transition(core.StatusRunning)
	e.observer.OnTaskResumed(e.task.ID)
}

// Start resets the message log and conversation history and runs the loop to
// a terminal state. Calling Start again on the same engine begins a fresh
// run; nothing from the prior run leaks into the new one. Start blocks until
// the loop ends and returns the loop-level error, if any.
func (e *TaskEngine) Start(ctx context.Context, promptText string, images []string) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("task %s is already running", e.task.ID)
	}
	e.running = true
	e.aborted = false
	e.paused = false
	e.machine.Reset()

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	e.task.BeginRun(core.NewID(), promptText, images)
	if err := e.transition(core.StatusRunning); err != nil {
		return err
	}
	e.observer.OnTaskStarted(e.task.ID)

	err := e.runLoop(runCtx, promptText, images)
	e.persist()

	switch {
	case err != nil && e.isAborted():
		// Cancellation raced with abort; abort wins.
		e.finishAborted()
		return nil
	case err != nil:
		e.finishFailed(err)
		return err
	case e.isAborted():
		e.finishAborted()
		return nil
	case e.task.HasCompletionMarker():
		e.finishCompleted()
		return nil
	default:
		// Loop ended without completion or abort (round cap).
		err := fmt.Errorf("task %s stopped after %d rounds without completion", e.task.ID, e.config.MaxRounds)
		e.finishFailed(err)
		return err
	}
}

// runLoop drives rounds until one signals loop-end.
func (e *TaskEngine) runLoop(ctx context.Context, promptText string, images []string) error {
	e.appendInitialContent(promptText, images)

	round := 0
	for {
		round++
		if e.config.MaxRounds > 0 && round > e.config.MaxRounds {
			return nil
		}

		cont, err := e.runRound(ctx, round)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		e.persist()
	}
}

// appendInitialContent seeds the conversation with the user's prompt, any
// attached images, and the environment details block.
func (e *TaskEngine) appendInitialContent(promptText string, images []string) {
	parts := []core.Part{core.TextPart{Text: promptText}}
	for _, img := range images {
		parts = append(parts, core.ImagePart{Data: img, MimeType: "image/png"})
	}
	parts = append(parts, core.TextPart{Text: "\n\n" + prompt.EnvironmentDetails(e.facts)})

	e.task.AppendHistory(core.Content{Role: "user", Parts: parts})

	msg := core.NewMessage("user", core.MessageKindText, promptText)
	e.task.AddMessage(msg)
	e.observer.OnMessage(e.task.ID, msg)
}

// runRound executes one loop round. It returns false when the loop should
// end, and an error only for loop-level failures (which fail the task).
func (e *TaskEngine) runRound(ctx context.Context, round int) (bool, error) {
	// Round boundary: abort wins over pause; pause blocks until resumed.
	if e.isAborted() {
		return false, nil
	}
	if err := e.waitWhilePaused(ctx); err != nil {
		return false, err
	}
	if e.isAborted() {
		return false, nil
	}

	// Mistake escalation never terminates the task; it injects guidance
	// and resets the counter.
	if e.config.MistakeLimit > 0 && e.task.MistakeCount() >= e.config.MistakeLimit {
		guidance := "You have attempted several responses without a valid tool use. Ask the user for guidance with ask_followup_question, or re-read the task and proceed with the appropriate tool."
		e.task.AppendHistory(core.NewTextContent("user", guidance))
		msg := core.NewMessage("user", core.MessageKindGuidance, guidance)
		e.task.AddMessage(msg)
		e.observer.OnMessage(e.task.ID, msg)
		e.task.ResetMistakes()
	}

	systemPrompt, err := e.generator.Generate(prompt.Context{
		WorkspacePath: e.task.WorkspacePath,
		Tools:         e.catalog.List(),
		Facts:         e.facts,
	})
	if err != nil {
		return false, fmt.Errorf("generate system prompt: %w", err)
	}

	text, toolUses, err := e.callModel(ctx, systemPrompt)
	if err != nil {
		return false, err
	}

	// The assistant turn enters history exactly once, before any results.
	e.appendAssistantTurn(text, toolUses)

	calls, malformed := e.collectCalls(text, toolUses)
	for _, issue := range malformed {
		e.logger.Warn("engine.parse.malformed", "task_id", e.task.ID, "issue", issue.String())
	}

	if len(calls) == 0 {
		e.task.IncrementMistakes()
		e.appendCorrective(malformed)
		return true, nil
	}

	e.dispatchCalls(ctx, calls)
	e.task.ResetMistakes()

	if e.task.HasCompletionMarker() {
		return false, nil
	}
	return true, nil
}

// callModel invokes the provider with full history + system prompt and
// consumes the response channels. Partial chunks are surfaced through the
// observer; the final composed content is returned.
func (e *TaskEngine) callModel(ctx context.Context, systemPrompt string) (string, []core.ToolUsePart, error) {
	req := model.Request{
		Instructions: systemPrompt,
		Contents:     e.task.HistorySnapshot(),
		Stream:       e.config.Stream,
	}
	if e.config.NativeTools {
		for _, def := range e.catalog.List() {
			req.Tools = append(req.Tools, model.ToolDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			})
		}
	}

	respCh, errCh := e.provider.Generate(ctx, req)

	var text strings.Builder
	var toolUses []core.ToolUsePart
	var sawFinal bool

	for resp := range respCh {
		if resp.Partial {
			partial := core.NewMessage("assistant", core.MessageKindText, resp.Content.Text())
			partial.Partial = true
			e.observer.OnMessage(e.task.ID, partial)
			continue
		}
		sawFinal = true
		text.WriteString(resp.Content.Text())
		toolUses = append(toolUses, resp.Content.ToolUses()...)
	}

	if err := <-errCh; err != nil {
		return "", nil, fmt.Errorf("model call: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	if !sawFinal {
		return "", nil, fmt.Errorf("model call: no final response received")
	}

	return text.String(), toolUses, nil
}

// appendAssistantTurn records the assistant's message in history and the log.
func (e *TaskEngine) appendAssistantTurn(text string, toolUses []core.ToolUsePart) {
	parts := []core.Part{}
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}
	for _, tu := range toolUses {
		parts = append(parts, tu)
	}
	if len(parts) == 0 {
		parts = append(parts, core.TextPart{Text: ""})
	}
	e.task.AppendHistory(core.Content{Role: "assistant", Parts: parts})

	if text != "" {
		msg := core.NewMessage("assistant", core.MessageKindText, text)
		e.task.AddMessage(msg)
		e.observer.OnMessage(e.task.ID, msg)
	}
}

// collectCalls merges structured tool-use chunks with invocations parsed out
// of the composed text, preserving detection order (structured first, then
// textual in order of appearance).
func (e *TaskEngine) collectCalls(text string, toolUses []core.ToolUsePart) ([]*core.ToolCall, []ParseIssue) {
	var calls []*core.ToolCall

	for _, tu := range toolUses {
		call := core.NewToolCall(tu.Name, tu.Params)
		if tu.ID != "" {
			call.ID = tu.ID
		}
		calls = append(calls, call)
	}

	parsed := e.parser.Parse(text)
	calls = append(calls, parsed.Calls...)

	return calls, parsed.Malformed
}

// dispatchCalls runs the round's tool calls strictly sequentially and appends
// exactly one tool-result history entry per call, in call order.
func (e *TaskEngine) dispatchCalls(ctx context.Context, calls []*core.ToolCall) {
	factory := func(call *core.ToolCall) *core.ToolExecutionContext {
		return core.NewToolExecutionContext(
			ctx, e.task.ID, e.task.WorkspacePath, call.Params, e.policy,
			func(o *core.ToolExecutionContextOptions) {
				o.Resources = e.resources
				o.Todos = e.task
				o.Logger = e.logger
			},
		)
	}

	results := e.dispatcher.ExecuteAll(calls, factory, e.config.StopOnToolError)

	for i, res := range results {
		call := calls[i]
		e.task.AppendHistory(core.Content{
			Role: "tool",
			Parts: []core.Part{core.ToolResultPart{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Content:    res.Rendered(),
				IsError:    !res.Success,
			}},
		})

		if call.Name == "attempt_completion" && res.Success {
			marker := core.NewMessage("assistant", core.MessageKindCompletion, res.Output)
			e.task.AddMessage(marker)
			e.observer.OnMessage(e.task.ID, marker)
		}
	}
}

// appendCorrective reminds the model to use the tool protocol after a round
// without any tool call, naming malformed blocks when there were any.
func (e *TaskEngine) appendCorrective(malformed []ParseIssue) {
	var sb strings.Builder
	sb.WriteString("Your previous response contained no valid tool use.")
	for _, issue := range malformed {
		sb.WriteString(" Malformed ")
		sb.WriteString(issue.String())
		sb.WriteString(".")
	}
	sb.WriteString(" Respond with exactly one tool invocation in the <tool_name><param>value</param></tool_name> format, or call attempt_completion if the task is done.")

	text := sb.String()
	e.task.AppendHistory(core.NewTextContent("user", text))

	msg := core.NewMessage("user", core.MessageKindGuidance, text)
	e.task.AddMessage(msg)
	e.observer.OnMessage(e.task.ID, msg)
}

// waitWhilePaused blocks until the engine is resumed, aborted, or the run
// context ends.
func (e *TaskEngine) waitWhilePaused(ctx context.Context) error {
	e.mu.Lock()
	paused := e.paused
	resumeCh := e.resumeCh
	e.mu.Unlock()

	if !paused {
		return nil
	}

	select {
	case <-resumeCh:
		return nil
	case <-ctx.Done():
		if e.isAborted() {
			return nil
		}
		return ctx.Err()
	}
}

func (e *TaskEngine) isAborted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.aborted
}

// transition moves the state machine and emits the status-change
// notification. Errors on illegal transitions are logged, not propagated;
// the table itself is the authority.
func (e *TaskEngine) transition(to core.Status) error {
	from := e.machine.Current()
	if from == to {
		return nil
	}
	if err := e.machine.Transition(to); err != nil {
		e.logger.Warn("engine.transition.rejected", "task_id", e.task.ID, "from", from, "to", to)
		return err
	}
	e.task.SetStatus(to)
	e.observer.OnStatusChanged(e.task.ID, from, to)
	return nil
}

func (e *TaskEngine) finishCompleted() {
	_ = e.transition(core.StatusCompleted)
	e.persist()

	result := ""
	for _, msg := range e.task.MessagesSnapshot() {
		if msg.IsCompletionMarker() {
			result = msg.Text
		}
	}
	e.observer.OnTaskCompleted(e.task.ID, result)
}

func (e *TaskEngine) finishAborted() {
	_ = e.transition(core.StatusAborted)
	e.persist()
	e.observer.OnTaskAborted(e.task.ID)
}

func (e *TaskEngine) finishFailed(err error) {
	e.task.SetError(err.Error())
	msg := core.NewMessage("assistant", core.MessageKindError, err.Error())
	e.task.AddMessage(msg)
	e.observer.OnMessage(e.task.ID, msg)

	_ = e.transition(core.StatusFailed)
	e.persist()
	e.observer.OnTaskFailed(e.task.ID, err)
}

// persist saves a task snapshot; storage failures are logged and do not
// interrupt the loop.
func (e *TaskEngine) persist() {
	if err := e.store.Save(e.task); err != nil {
		e.logger.Error("engine.persist.error", "task_id", e.task.ID, "error", err)
	}
}
