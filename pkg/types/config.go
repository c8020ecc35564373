package types

// MCPServer describes one MCP tool server the agent layer may connect to.
type MCPServer struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
	Env     []string `yaml:"env,omitempty" mapstructure:"env"`
}

// LLMConfig holds the hosted LLM backend credentials and defaults.
type LLMConfig struct {
	Model        string `yaml:"model" mapstructure:"model"`
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	MaxTokens    int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	UseBedrock   bool   `yaml:"use_bedrock" mapstructure:"use_bedrock"`
	BedrockRegion string `yaml:"bedrock_region" mapstructure:"bedrock_region"`
}

// RateLimitConfig holds the sliding-window limits applied per adapter.
type RateLimitConfig struct {
	PerMinute  int `yaml:"per_minute" mapstructure:"per_minute"`
	PerDay     int `yaml:"per_day" mapstructure:"per_day"`
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelayMs int `yaml:"retry_delay_ms" mapstructure:"retry_delay_ms"`
}

// MemoryConfig holds the on-disk memory store defaults.
type MemoryConfig struct {
	Path            string `yaml:"path" mapstructure:"path"`
	DebounceMs      int    `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	MaxEntries      int    `yaml:"max_entries" mapstructure:"max_entries"`
	MaxAgeDays      int    `yaml:"max_age_days" mapstructure:"max_age_days"`
}

// OrchestratorConfig holds scheduler-level tunables.
type OrchestratorConfig struct {
	MaxAgents      int `yaml:"max_agents" mapstructure:"max_agents"`
	StopDeadlineMs int `yaml:"stop_deadline_ms" mapstructure:"stop_deadline_ms"`
	AgentGraceMs   int `yaml:"agent_grace_ms" mapstructure:"agent_grace_ms"`
}

// PathsConfig holds directory paths used by ambient collaborators (the
// task inbox watcher, log files, the reporting database).
type PathsConfig struct {
	Inbox string `yaml:"inbox" mapstructure:"inbox"`
	Logs  string `yaml:"logs" mapstructure:"logs"`
	DB    string `yaml:"db" mapstructure:"db"`
}

// Config is the root configuration structure.
type Config struct {
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit" mapstructure:"rate_limit"`
	Memory       MemoryConfig       `yaml:"memory" mapstructure:"memory"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Paths        PathsConfig        `yaml:"paths" mapstructure:"paths"`
	MCP          struct {
		Servers []MCPServer `yaml:"servers" mapstructure:"servers"`
	} `yaml:"mcp" mapstructure:"mcp"`
}

// DefaultConfig returns configuration with the defaults named in the
// system overview (10 concurrent agents, 5s memory debounce, 1000-entry
// soft cap, 7-day eviction).
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 4096,
		},
		RateLimit: RateLimitConfig{
			PerMinute:    60,
			PerDay:       1000,
			MaxRetries:   3,
			RetryDelayMs: 1000,
		},
		Memory: MemoryConfig{
			Path:       ".overseer/memory.json",
			DebounceMs: 5000,
			MaxEntries: 1000,
			MaxAgeDays: 7,
		},
		Orchestrator: OrchestratorConfig{
			MaxAgents:      10,
			StopDeadlineMs: 120000,
			AgentGraceMs:   300000,
		},
		Paths: PathsConfig{
			Inbox: ".overseer/inbox",
			Logs:  ".overseer/logs",
			DB:    ".overseer/overseer.db",
		},
	}
}
