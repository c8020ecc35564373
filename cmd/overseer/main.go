package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuken/overseer/internal/config"
	"github.com/cuken/overseer/internal/daemon"
	"github.com/cuken/overseer/internal/task"
	"github.com/cuken/overseer/pkg/types"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "overseer",
	Short: "Multi-agent orchestrator for a hosted LLM backend",
	Long: `Overseer dispatches a priority- and dependency-ordered task queue onto a
bounded pool of concurrent agents, each a single LLM call routed through a
shared rate limiter and an on-disk memory store for cross-agent context.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of text")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the orchestrator daemon",
	Long:  `Starts the background process that watches the task inbox and dispatches agents until stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectDir, err := config.GetProjectDir()
		if err != nil {
			return fmt.Errorf("failed to find project directory: %w", err)
		}

		d, err := daemon.New(projectDir)
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}

		d.SetVerbose(verbose)
		return d.Run(context.Background())
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Run the orchestrator, tailing its event bus as JSON lines",
	Long:  `Like run, but every orchestrator event is additionally printed to stdout as one JSON object per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectDir, err := config.GetProjectDir()
		if err != nil {
			return fmt.Errorf("failed to find project directory: %w", err)
		}

		d, err := daemon.New(projectDir)
		if err != nil {
			return fmt.Errorf("failed to create daemon: %w", err)
		}

		d.SetVerbose(verbose)
		d.SetJSONEvents(true)
		return d.Run(context.Background())
	},
}

var verbose bool

func init() {
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	eventsCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize overseer in current directory",
	Long:  `Creates the .overseer directory structure and default configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}

		cfg, err := config.Load(cwd)
		if err != nil {
			return fmt.Errorf("failed to load/create config: %w", err)
		}

		if err := config.EnsureDirectories(cwd, cfg); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}

		if err := config.EnsureGitignore(cwd); err != nil {
			return fmt.Errorf("failed to update .gitignore: %w", err)
		}

		dirs := map[string]string{
			"inbox": cfg.Paths.Inbox,
			"logs":  cfg.Paths.Logs,
		}

		if jsonOutput {
			return printJSON(InitResponse{
				Message:     "Initialized overseer",
				Path:        cwd,
				Directories: dirs,
				Instructions: []string{
					"Edit .overseer/config.yaml to set your Anthropic API key and model.",
					"Drop .md files in .overseer/inbox/ to add tasks, or use `overseer task add`.",
					"Run `overseer run` to start the orchestrator.",
				},
			})
		}

		fmt.Println("Initialized overseer in", cwd)
		fmt.Println("\nCreated directories:")
		for _, d := range dirs {
			fmt.Printf("  %s/\n", d)
		}
		fmt.Println("\nEdit .overseer/config.yaml to set your Anthropic API key and model.")
		fmt.Println("Drop .md files in .overseer/inbox/ to add tasks, or use `overseer task add`.")
		fmt.Println("Run `overseer run` to start the orchestrator.")
		return nil
	},
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <mode> <description>",
	Short: "Drop a new task into the inbox",
	Long:  `Writes a markdown task file into the inbox directory, where a running daemon's watcher will pick it up.`,
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectDir, err := config.GetProjectDir()
		if err != nil {
			return fmt.Errorf("failed to find project directory: %w", err)
		}

		cfg, err := config.Load(projectDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		mode := types.Mode(args[0])
		if !mode.IsValid() {
			return fmt.Errorf("unknown mode %q (valid modes: %v)", args[0], types.Modes)
		}
		description := strings.Join(args[1:], " ")

		filename := fmt.Sprintf("task-%d.md", time.Now().UnixNano())
		content := fmt.Sprintf("mode: %s\n\n%s\n", mode, description)

		dstPath := filepath.Join(projectDir, cfg.Paths.Inbox, filename)
		if err := os.WriteFile(dstPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write task file: %w", err)
		}

		if jsonOutput {
			return printJSON(TaskAddResponse{
				Message:  "Added task",
				Filename: filename,
				Location: dstPath,
				Mode:     string(mode),
			})
		}

		fmt.Printf("Added task: %s\n", filename)
		fmt.Printf("Mode: %s\n", mode)
		fmt.Printf("Location: %s\n", dstPath)
		fmt.Println("\nThe running daemon will pick this up automatically.")
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known tasks grouped by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := loadPersistedTasks()
		if err != nil {
			return err
		}

		grouped := groupByStatus(tasks)

		if jsonOutput {
			return printJSON(TaskListResponse{
				Pending:   grouped[types.TaskPending],
				Running:   grouped[types.TaskRunning],
				Completed: grouped[types.TaskCompleted],
				Failed:    grouped[types.TaskFailed],
			})
		}

		categories := []struct {
			name  string
			state types.TaskState
		}{
			{"Pending", types.TaskPending},
			{"Running", types.TaskRunning},
			{"Completed", types.TaskCompleted},
			{"Failed", types.TaskFailed},
		}

		ids := make([]string, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		highlights := formatIDHighlights(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, cat := range categories {
			list := grouped[cat.state]
			if len(list) == 0 {
				continue
			}
			fmt.Printf("\n%s (%d):\n", cat.name, len(list))
			fmt.Fprintln(w, "  ID\tMODE\tPRIORITY\tDESCRIPTION")
			for _, t := range list {
				fmt.Fprintf(w, "  %s\t%s\t%d\t%s\n", highlights[t.ID], t.Mode, t.Priority, truncate(t.Description, 50))
			}
			w.Flush()
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending and running tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := loadPersistedTasks()
		if err != nil {
			return err
		}

		grouped := groupByStatus(tasks)
		pending := grouped[types.TaskPending]
		running := grouped[types.TaskRunning]

		if jsonOutput {
			return printJSON(StatusResponse{Pending: pending, Running: running})
		}

		ids := make([]string, 0, len(running))
		for _, t := range running {
			ids = append(ids, t.ID)
		}
		highlights := formatIDHighlights(ids)

		fmt.Printf("%d pending, %d running\n", len(pending), len(running))
		for _, t := range running {
			fmt.Printf("  running  %s  %s  %s\n", highlights[t.ID], t.Mode, truncate(t.Description, 50))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	rootCmd.AddCommand(taskCmd)
}

func loadPersistedTasks() ([]*types.Task, error) {
	projectDir, err := config.GetProjectDir()
	if err != nil {
		return nil, fmt.Errorf("failed to find project directory: %w", err)
	}

	tasksDir := filepath.Join(projectDir, config.DefaultConfigDir, "tasks")
	store, err := task.NewStore(tasksDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open task store: %w", err)
	}
	defer store.Close()

	return store.LoadAll()
}

func groupByStatus(tasks []*types.Task) map[types.TaskState][]*types.Task {
	grouped := make(map[types.TaskState][]*types.Task)
	for _, t := range tasks {
		grouped[t.Status] = append(grouped[t.Status], t)
	}
	return grouped
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
