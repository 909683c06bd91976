package miroflow

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds the orchestration budgets and feature toggles for one run.
// It is read-only for the duration of a run.
type Config struct {
	MainAgent       MainAgentConfig           `toml:"main_agent"`
	SubAgents       map[string]SubAgentConfig `toml:"sub_agents"`
	ScrapeMaxLength int                       `toml:"scrape_max_length"`
	RestrictedHosts []string                  `toml:"restricted_hosts"`
	EventBuffer     int                       `toml:"event_buffer"`
	LogDir          string                    `toml:"log_dir"`
}

type MainAgentConfig struct {
	PromptClass         string              `toml:"prompt_class"`
	MaxTurns            int                 `toml:"max_turns"`
	MaxToolCallsPerTurn int                 `toml:"max_tool_calls_per_turn"`
	KeepToolResult      int                 `toml:"keep_tool_result"`
	ChineseContext      bool                `toml:"chinese_context"`
	AddMessageID        bool                `toml:"add_message_id"`
	InputProcess        InputProcessConfig  `toml:"input_process"`
	OutputProcess       OutputProcessConfig `toml:"output_process"`
}

type SubAgentConfig struct {
	PromptClass         string `toml:"prompt_class"`
	MaxTurns            int    `toml:"max_turns"`
	MaxToolCallsPerTurn int    `toml:"max_tool_calls_per_turn"`
	KeepToolResult      int    `toml:"keep_tool_result"`
}

type InputProcessConfig struct {
	HintGeneration bool `toml:"hint_generation"`
}

type OutputProcessConfig struct {
	FinalAnswerExtraction bool `toml:"final_answer_extraction"`
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		MainAgent: MainAgentConfig{
			PromptClass:         "main",
			MaxTurns:            20,
			MaxToolCallsPerTurn: 1,
			KeepToolResult:      -1,
		},
		SubAgents: map[string]SubAgentConfig{
			"agent-worker": {
				PromptClass:         "worker",
				MaxTurns:            10,
				MaxToolCallsPerTurn: 1,
				KeepToolResult:      -1,
			},
		},
		ScrapeMaxLength: 20000,
		EventBuffer:     defaultEventBuffer,
	}
}

// LoadConfig reads config: defaults -> TOML file -> env vars (env wins).
func LoadConfig(path string) Config {
	cfg := DefaultConfig()

	if path == "" {
		path = "miroflow.toml"
	}
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("SCRAPE_MAX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ScrapeMaxLength = n
		}
	}
	if v := os.Getenv("MIROFLOW_MAX_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MainAgent.MaxTurns = n
		}
	}
	if v := os.Getenv("MIROFLOW_CHINESE_CONTEXT"); v == "true" || v == "1" {
		cfg.MainAgent.ChineseContext = true
	}
	if v := os.Getenv("MIROFLOW_ADD_MESSAGE_ID"); v == "true" || v == "1" {
		cfg.MainAgent.AddMessageID = true
	}
	if v := os.Getenv("MIROFLOW_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}

	// Fallbacks
	if cfg.ScrapeMaxLength <= 0 {
		cfg.ScrapeMaxLength = 20000
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if cfg.MainAgent.PromptClass == "" {
		cfg.MainAgent.PromptClass = "main"
	}

	return cfg
}
