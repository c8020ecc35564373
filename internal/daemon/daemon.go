package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cuken/overseer/internal/config"
	"github.com/cuken/overseer/internal/llmadapter"
	"github.com/cuken/overseer/internal/logger"
	"github.com/cuken/overseer/internal/mcp"
	"github.com/cuken/overseer/internal/memory"
	"github.com/cuken/overseer/internal/orchestrator"
	"github.com/cuken/overseer/internal/storage"
	"github.com/cuken/overseer/internal/storage/sqlite"
	"github.com/cuken/overseer/internal/task"
	"github.com/cuken/overseer/pkg/types"
)

// Daemon owns the long-running process: it wires the task inbox watcher,
// the memory store, the LLM adapter and the orchestrator together and
// keeps them running until asked to stop.
type Daemon struct {
	projectDir string
	cfg        *types.Config
	store      *task.Store
	queue      *task.Queue
	watcher    *task.Watcher
	mem        *memory.Store
	mcpClient  *mcp.Client
	report     storage.Store
	orch       *orchestrator.Orchestrator
	signals    *SignalHandler
	pidFile    string
	verbose    bool
	jsonEvents bool
	log        *logger.Logger
}

// SetJSONEvents switches Run into tailing mode: every orchestrator event
// is additionally marshaled as a single JSON line to stdout, for a
// caller piping `overseer events` into another tool.
func (d *Daemon) SetJSONEvents(v bool) {
	d.jsonEvents = v
}

// SetVerbose enables verbose logging
func (d *Daemon) SetVerbose(v bool) {
	d.verbose = v
	if d.log != nil {
		d.log.SetVerbose(v)
	}
}

// New creates a new daemon instance
func New(projectDir string) (*Daemon, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.EnsureDirectories(projectDir, cfg); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	logsDir := filepath.Join(projectDir, cfg.Paths.Logs)
	if err := logger.Setup(logsDir, false); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	log := logger.New("Daemon", logsDir)

	tasksDir := filepath.Join(projectDir, config.DefaultConfigDir, "tasks")
	if err := os.MkdirAll(tasksDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tasks directory: %w", err)
	}
	store, err := task.NewStore(tasksDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	queue := task.NewQueue(store)

	inboxDir := filepath.Join(projectDir, cfg.Paths.Inbox)
	watcher, err := task.NewWatcher(inboxDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	memPath := filepath.Join(projectDir, cfg.Memory.Path)
	mem := memory.New(memPath, time.Duration(cfg.Memory.DebounceMs)*time.Millisecond,
		cfg.Memory.MaxEntries, time.Duration(cfg.Memory.MaxAgeDays)*24*time.Hour)

	dbPath := filepath.Join(projectDir, cfg.Paths.DB)
	report, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open reporting database: %w", err)
	}

	return &Daemon{
		projectDir: projectDir,
		cfg:        cfg,
		store:      store,
		queue:      queue,
		watcher:    watcher,
		mem:        mem,
		mcpClient:  mcp.NewClient(),
		report:     report,
		signals:    NewSignalHandler(),
		pidFile:    filepath.Join(projectDir, ".overseer", "daemon.pid"),
		log:        log,
	}, nil
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.writePIDFile(); err != nil {
		d.log.Warn("Failed to write PID file: %v", err)
	}
	defer d.removePIDFile()

	ctx = d.signals.Setup(ctx)
	defer d.signals.Stop()
	defer d.report.Close()

	d.log.Info("Starting in %s", d.projectDir)
	d.log.Info("Config: model=%s, max_agents=%d", d.cfg.LLM.Model, d.cfg.Orchestrator.MaxAgents)

	var llm *llmadapter.Adapter
	var err error
	if d.cfg.LLM.UseBedrock {
		llm, err = llmadapter.NewBedrockAdapter(llmadapter.BedrockConfig{
			Model:     d.cfg.LLM.Model,
			Region:    d.cfg.LLM.BedrockRegion,
			MaxTokens: d.cfg.LLM.MaxTokens,
			RateLimit: d.cfg.RateLimit,
		})
	} else {
		llm, err = llmadapter.New(llmadapter.Config{
			APIKey:    d.cfg.LLM.APIKey,
			Model:     d.cfg.LLM.Model,
			MaxTokens: d.cfg.LLM.MaxTokens,
			RateLimit: d.cfg.RateLimit,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to build LLM adapter: %w", err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if llm.CheckHealth(healthCtx) {
		d.log.Success("LLM backend reachable")
	} else {
		d.log.Warn("LLM backend health check failed, continuing anyway")
	}
	cancel()

	d.log.Info("Connecting to MCP servers...")
	if err := d.mcpClient.Connect(ctx, d.cfg.MCP.Servers); err != nil {
		d.log.Warn("MCP connection failed: %v", err)
	}
	defer d.mcpClient.Close()

	for name, connected := range d.mcpClient.ServerStatus() {
		if connected {
			d.log.Success("MCP server connected: %s", name)
		}
	}

	if err := d.mem.Initialize(); err != nil {
		d.log.Warn("Failed to load memory store: %v", err)
	}

	d.log.Info("Loading persisted tasks...")
	if err := d.queue.LoadPersisted(); err != nil {
		d.log.Warn("Failed to load persisted tasks: %v", err)
	}
	d.log.Info("Queue has %d pending tasks", d.queue.Size())

	d.watcher.Start()
	defer d.watcher.Stop()

	d.orch = orchestrator.New(orchestrator.Config{
		Queue:        d.queue,
		Memory:       d.mem,
		LLM:          llm,
		Tools:        mcp.NewToolExecutor(d.mcpClient),
		MaxAgents:    d.cfg.Orchestrator.MaxAgents,
		StopDeadline: time.Duration(d.cfg.Orchestrator.StopDeadlineMs) * time.Millisecond,
		AgentGrace:   time.Duration(d.cfg.Orchestrator.AgentGraceMs) * time.Millisecond,
	})
	d.orch.Events().OnAgentFailed(func(e orchestrator.AgentFailedEvent) {
		d.log.Error("agent %s failed on task %s: %v", e.Agent.ID, e.Agent.TaskID, e.Err)
	})
	d.orch.Events().OnTaskCompleted(func(e orchestrator.TaskCompletedEvent) {
		d.log.Success("task %s completed", e.Task.ID)
	})

	d.orch.Events().OnTaskAdded(func(e orchestrator.TaskAddedEvent) {
		if err := d.report.CreateTask(ctx, e.Task); err != nil {
			d.log.Warn("failed to record task %s in reporting store: %v", e.Task.ID, err)
		}
	})
	d.orch.Events().OnTaskCompleted(func(e orchestrator.TaskCompletedEvent) {
		if err := d.report.UpdateTask(ctx, e.Task); err != nil {
			d.log.Warn("failed to update task %s in reporting store: %v", e.Task.ID, err)
		}
	})
	d.orch.Events().OnAgentSpawned(func(e orchestrator.AgentSpawnedEvent) {
		if err := d.report.UpdateWorkerStatus(ctx, workerStatusOf(e.Agent)); err != nil {
			d.log.Warn("failed to record agent %s in reporting store: %v", e.Agent.ID, err)
		}
	})
	d.orch.Events().OnAgentCompleted(func(e orchestrator.AgentCompletedEvent) {
		if err := d.report.UpdateWorkerStatus(ctx, workerStatusOf(e.Agent)); err != nil {
			d.log.Warn("failed to update agent %s in reporting store: %v", e.Agent.ID, err)
		}
	})
	d.orch.Events().OnAgentFailed(func(e orchestrator.AgentFailedEvent) {
		if err := d.report.UpdateWorkerStatus(ctx, workerStatusOf(e.Agent)); err != nil {
			d.log.Warn("failed to update agent %s in reporting store: %v", e.Agent.ID, err)
		}
	})

	if d.jsonEvents {
		d.orch.Events().OnTaskAdded(func(e orchestrator.TaskAddedEvent) { d.emitJSON("task_added", e) })
		d.orch.Events().OnAgentSpawned(func(e orchestrator.AgentSpawnedEvent) { d.emitJSON("agent_spawned", e) })
		d.orch.Events().OnAgentCompleted(func(e orchestrator.AgentCompletedEvent) { d.emitJSON("agent_completed", e) })
		d.orch.Events().OnAgentFailed(func(e orchestrator.AgentFailedEvent) { d.emitJSON("agent_failed", e) })
		d.orch.Events().OnTaskCompleted(func(e orchestrator.TaskCompletedEvent) { d.emitJSON("task_completed", e) })
	}

	if err := d.orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}

	d.log.Success("Ready. Watching %s for tasks...", d.cfg.Paths.Inbox)

	statusTicker := time.NewTicker(1 * time.Minute)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Shutting down...")
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return d.orch.Stop(stopCtx)

		case newTask := <-d.watcher.New():
			if _, err := d.orch.AddTask(newTask.Description, newTask.Mode, newTask.Priority, newTask.Dependencies, newTask.Files); err != nil {
				d.log.Warn("Rejected task from inbox: %v", err)
			} else {
				d.log.Success("New task from inbox: %s", newTask.Description)
			}

		case err := <-d.watcher.Errors():
			d.log.Error("Watcher error: %v", err)

		case <-statusTicker.C:
			d.printStatus()
		}
	}
}

func workerStatusOf(a *types.Agent) *types.WorkerStatus {
	return &types.WorkerStatus{
		ID:        a.ID,
		TaskID:    a.TaskID,
		Mode:      a.Mode,
		State:     a.Status,
		StartedAt: a.StartedAt,
		EndedAt:   a.CompletedAt,
		Result:    a.Result,
		Error:     a.Error,
	}
}

// eventLine is the shape printed for each JSON-tailed event.
type eventLine struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (d *Daemon) emitJSON(eventType string, data interface{}) {
	b, err := json.Marshal(eventLine{Type: eventType, Data: data})
	if err != nil {
		d.log.Warn("failed to marshal event %s: %v", eventType, err)
		return
	}
	fmt.Println(string(b))
}

func (d *Daemon) printStatus() {
	status := d.orch.GetStatus()
	d.log.Debug("Status: %d pending, %d active agents (max %d)",
		status.PendingTasks, status.ActiveAgents, status.MaxAgents)
}

func (d *Daemon) writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile(d.pidFile, []byte(fmt.Sprintf("%d", pid)), 0644)
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.pidFile)
}

// Stop gracefully stops the daemon outside of Run's own signal-driven path.
func (d *Daemon) Stop() {
	if d.orch != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d.orch.Stop(ctx)
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.mcpClient != nil {
		d.mcpClient.Close()
	}
	if d.report != nil {
		d.report.Close()
	}
}
