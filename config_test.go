package miroflow

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MainAgent.PromptClass != "main" || cfg.MainAgent.MaxTurns != 20 {
		t.Errorf("main agent defaults = %+v", cfg.MainAgent)
	}
	if cfg.MainAgent.KeepToolResult != -1 {
		t.Errorf("KeepToolResult = %d, want -1 (keep all)", cfg.MainAgent.KeepToolResult)
	}
	if cfg.ScrapeMaxLength != 20000 {
		t.Errorf("ScrapeMaxLength = %d, want 20000", cfg.ScrapeMaxLength)
	}
	sub, ok := cfg.SubAgents["agent-worker"]
	if !ok || sub.PromptClass != "worker" || sub.MaxTurns != 10 {
		t.Errorf("sub agent defaults = %+v (present %v)", sub, ok)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "miroflow.toml")
	data := `
scrape_max_length = 5000
restricted_hosts = ["example.com"]

[main_agent]
prompt_class = "reasoning"
max_turns = 7
chinese_context = true

[sub_agents.agent-browser]
prompt_class = "worker"
max_turns = 4
max_tool_calls_per_turn = 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadConfig(path)
	if cfg.MainAgent.PromptClass != "reasoning" || cfg.MainAgent.MaxTurns != 7 {
		t.Errorf("main agent = %+v", cfg.MainAgent)
	}
	if !cfg.MainAgent.ChineseContext {
		t.Error("chinese_context not read")
	}
	if cfg.ScrapeMaxLength != 5000 {
		t.Errorf("ScrapeMaxLength = %d, want 5000", cfg.ScrapeMaxLength)
	}
	if len(cfg.RestrictedHosts) != 1 || cfg.RestrictedHosts[0] != "example.com" {
		t.Errorf("RestrictedHosts = %v", cfg.RestrictedHosts)
	}
	sub, ok := cfg.SubAgents["agent-browser"]
	if !ok || sub.MaxToolCallsPerTurn != 2 {
		t.Errorf("sub agent = %+v (present %v)", sub, ok)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SCRAPE_MAX_LENGTH", "1234")
	t.Setenv("MIROFLOW_MAX_TURNS", "3")
	t.Setenv("MIROFLOW_ADD_MESSAGE_ID", "true")
	t.Setenv("MIROFLOW_LOG_DIR", "/tmp/logs")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.ScrapeMaxLength != 1234 {
		t.Errorf("ScrapeMaxLength = %d, want env override", cfg.ScrapeMaxLength)
	}
	if cfg.MainAgent.MaxTurns != 3 {
		t.Errorf("MaxTurns = %d, want env override", cfg.MainAgent.MaxTurns)
	}
	if !cfg.MainAgent.AddMessageID {
		t.Error("AddMessageID env override ignored")
	}
	if cfg.LogDir != "/tmp/logs" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.MainAgent.PromptClass != "main" || cfg.ScrapeMaxLength != 20000 {
		t.Errorf("missing file should yield defaults, got %+v", cfg)
	}
}
