package miroflow

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Task statuses recorded in the persisted log.
const (
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// AgentHistorySnapshot is one agent session's persisted conversation.
type AgentHistorySnapshot struct {
	SystemPrompt   string    `json:"system_prompt"`
	MessageHistory []Message `json:"message_history"`
}

// StepLog is one progress entry in the persisted task log.
type StepLog struct {
	StepName  string `json:"step_name"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// TaskLogRecord is the on-disk layout of one persisted task run. Kept
// separate from TaskTracer so the mutex and write path never leak into the
// JSON.
type TaskLogRecord struct {
	TaskID             string                          `json:"task_id"`
	Status             string                          `json:"status"`
	StartTime          time.Time                       `json:"start_time"`
	EndTime            *time.Time                      `json:"end_time,omitempty"`
	FinalBoxedAnswer   string                          `json:"final_boxed_answer,omitempty"`
	GroundTruth        string                          `json:"ground_truth,omitempty"`
	JudgeResult        string                          `json:"judge_result,omitempty"`
	MainAgentHistory   AgentHistorySnapshot            `json:"main_agent_message_history"`
	SubAgentSessions   map[string]AgentHistorySnapshot `json:"sub_agent_message_history_sessions,omitempty"`
	StepLogs           []StepLog                       `json:"step_logs"`
	PerformanceSummary map[string]any                  `json:"performance_summary,omitempty"`
	Error              string                          `json:"error,omitempty"`
}

// TaskTracer persists a task run as a single JSON file, rewritten atomically
// on every Save so an interrupted run still leaves a parseable last-known
// snapshot. A nil *TaskTracer is valid and records nothing.
type TaskTracer struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
	rec    TaskLogRecord
}

// NewTaskTracer creates a tracer writing to dir/<taskID>.json.
// A nil logger discards write warnings.
func NewTaskTracer(dir, taskID string, logger *slog.Logger) *TaskTracer {
	if logger == nil {
		logger = nopLogger
	}
	return &TaskTracer{
		path:   filepath.Join(dir, taskID+".json"),
		logger: logger,
		rec: TaskLogRecord{
			TaskID:    taskID,
			Status:    TaskStatusRunning,
			StartTime: time.Now().UTC(),
		},
	}
}

// Path returns the log file location.
func (t *TaskTracer) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// LogStep appends a progress entry. status defaults to "info".
func (t *TaskTracer) LogStep(stepName, message, status string) {
	if t == nil {
		return
	}
	if status == "" {
		status = "info"
	}
	t.mu.Lock()
	t.rec.StepLogs = append(t.rec.StepLogs, StepLog{
		StepName:  stepName,
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	t.mu.Unlock()
}

// SetMainHistory records the main agent's current conversation snapshot.
func (t *TaskTracer) SetMainHistory(systemPrompt string, history []Message) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.rec.MainAgentHistory = AgentHistorySnapshot{
		SystemPrompt:   systemPrompt,
		MessageHistory: append([]Message(nil), history...),
	}
	t.mu.Unlock()
}

// StartSubSession registers a fresh sub-agent session and returns its id.
func (t *TaskTracer) StartSubSession(agentName string) string {
	if t == nil {
		return agentName + "_" + shortID()
	}
	id := agentName + "_" + shortID()
	t.mu.Lock()
	if t.rec.SubAgentSessions == nil {
		t.rec.SubAgentSessions = make(map[string]AgentHistorySnapshot)
	}
	t.rec.SubAgentSessions[id] = AgentHistorySnapshot{}
	t.mu.Unlock()
	return id
}

// SetSubSessionHistory records a sub-agent session's conversation snapshot.
func (t *TaskTracer) SetSubSessionHistory(sessionID, systemPrompt string, history []Message) {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.rec.SubAgentSessions == nil {
		t.rec.SubAgentSessions = make(map[string]AgentHistorySnapshot)
	}
	t.rec.SubAgentSessions[sessionID] = AgentHistorySnapshot{
		SystemPrompt:   systemPrompt,
		MessageHistory: append([]Message(nil), history...),
	}
	t.mu.Unlock()
}

// SetFinalAnswer records the boxed answer.
func (t *TaskTracer) SetFinalAnswer(boxed string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.rec.FinalBoxedAnswer = boxed
	t.mu.Unlock()
}

// SetGroundTruth records the expected answer for later judging.
func (t *TaskTracer) SetGroundTruth(gt string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.rec.GroundTruth = gt
	t.mu.Unlock()
}

// SetJudgeResult records an external judge verdict.
func (t *TaskTracer) SetJudgeResult(result string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.rec.JudgeResult = result
	t.mu.Unlock()
}

// SetPerformance records the final usage/performance summary.
func (t *TaskTracer) SetPerformance(summary map[string]any) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.rec.PerformanceSummary = summary
	t.mu.Unlock()
}

// SetError records a run-level error message.
func (t *TaskTracer) SetError(msg string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.rec.Error = msg
	t.mu.Unlock()
}

// Finish stamps the terminal status and end time, then saves.
func (t *TaskTracer) Finish(status string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	now := time.Now().UTC()
	t.rec.Status = status
	t.rec.EndTime = &now
	t.mu.Unlock()
	t.Save()
}

// LoadTaskLog reads a persisted task log from disk.
func LoadTaskLog(path string) (*TaskLogRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec TaskLogRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save writes the current snapshot atomically (temp file + rename). Write
// failures are logged, never returned: losing a snapshot must not fail the
// run.
func (t *TaskTracer) Save() {
	if t == nil {
		return
	}
	t.mu.Lock()
	data, err := json.MarshalIndent(&t.rec, "", "  ")
	t.mu.Unlock()
	if err != nil {
		t.logger.Warn("task log marshal failed", "path", t.path, "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		t.logger.Warn("task log dir creation failed", "path", t.path, "error", err)
		return
	}
	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		t.logger.Warn("task log write failed", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, t.path); err != nil {
		t.logger.Warn("task log rename failed", "path", t.path, "error", err)
	}
}
