package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cuken/overseer/pkg/types"
	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default directory for overseer state
	DefaultConfigDir = ".overseer"
	// ConfigFileName is the config file name without extension
	ConfigFileName = "config"
)

// Load reads configuration from the .overseer directory
func Load(projectDir string) (*types.Config, error) {
	configDir := filepath.Join(projectDir, DefaultConfigDir)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	defaults := types.DefaultConfig()
	setDefaults(v, defaults)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			configPath := filepath.Join(configDir, ConfigFileName+".yaml")
			if err := WriteDefault(configPath); err != nil {
				return nil, fmt.Errorf("failed to write default config: %w", err)
			}
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read new config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &cfg, nil
}

// WriteDefault writes the default configuration to a file
func WriteDefault(path string) error {
	defaults := types.DefaultConfig()

	v := viper.New()
	setDefaults(v, defaults)

	v.Set("mcp.servers", []map[string]interface{}{
		{
			"name":    "filesystem",
			"command": "npx",
			"args":    []string{"-y", "@modelcontextprotocol/server-filesystem", "."},
		},
		{
			"name":    "fetch",
			"command": "uvx",
			"args":    []string{"mcp-server-fetch"},
		},
	})

	return v.WriteConfigAs(path)
}

func setDefaults(v *viper.Viper, cfg *types.Config) {
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.api_key", cfg.LLM.APIKey)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.use_bedrock", cfg.LLM.UseBedrock)
	v.SetDefault("llm.bedrock_region", cfg.LLM.BedrockRegion)

	v.SetDefault("rate_limit.per_minute", cfg.RateLimit.PerMinute)
	v.SetDefault("rate_limit.per_day", cfg.RateLimit.PerDay)
	v.SetDefault("rate_limit.max_retries", cfg.RateLimit.MaxRetries)
	v.SetDefault("rate_limit.retry_delay_ms", cfg.RateLimit.RetryDelayMs)

	v.SetDefault("memory.path", cfg.Memory.Path)
	v.SetDefault("memory.debounce_ms", cfg.Memory.DebounceMs)
	v.SetDefault("memory.max_entries", cfg.Memory.MaxEntries)
	v.SetDefault("memory.max_age_days", cfg.Memory.MaxAgeDays)

	v.SetDefault("orchestrator.max_agents", cfg.Orchestrator.MaxAgents)
	v.SetDefault("orchestrator.stop_deadline_ms", cfg.Orchestrator.StopDeadlineMs)
	v.SetDefault("orchestrator.agent_grace_ms", cfg.Orchestrator.AgentGraceMs)

	v.SetDefault("paths.inbox", cfg.Paths.Inbox)
	v.SetDefault("paths.logs", cfg.Paths.Logs)
	v.SetDefault("paths.db", cfg.Paths.DB)
}

// EnsureDirectories creates all required directories for overseer operation
func EnsureDirectories(projectDir string, cfg *types.Config) error {
	dirs := []string{
		filepath.Join(projectDir, cfg.Paths.Inbox),
		filepath.Join(projectDir, cfg.Paths.Logs),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// EnsureGitignore adds necessary entries to .gitignore for overseer
func EnsureGitignore(projectDir string) error {
	gitignorePath := filepath.Join(projectDir, ".gitignore")

	entries := []string{
		"# Overseer - autonomous agent orchestration",
		".overseer/",
		"!.overseer/config.yaml",
		"!.overseer/inbox/",
		".overseer/inbox/*.md",
		"!.overseer/inbox/.gitkeep",
	}

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var toAdd []string
	for _, entry := range entries {
		if !containsLine(existing, entry) {
			toAdd = append(toAdd, entry)
		}
	}

	if len(toAdd) == 0 {
		return nil
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open .gitignore: %w", err)
	}
	defer f.Close()

	if existing != "" && !endsWithNewline(existing) {
		f.WriteString("\n")
	}

	for _, entry := range toAdd {
		f.WriteString(entry + "\n")
	}

	return nil
}

// containsLine checks if a string contains a specific line
func containsLine(content, line string) bool {
	for _, l := range splitLines(content) {
		if l == line {
			return true
		}
	}
	return false
}

// splitLines splits content by newlines
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// endsWithNewline checks if string ends with newline
func endsWithNewline(s string) bool {
	return len(s) > 0 && s[len(s)-1] == '\n'
}

// GetProjectDir finds the project root by looking for .overseer or .git
func GetProjectDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	dir := cwd
	for {
		overseerDir := filepath.Join(dir, DefaultConfigDir)
		if info, err := os.Stat(overseerDir); err == nil && info.IsDir() {
			return dir, nil
		}

		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd, nil
		}
		dir = parent
	}
}
