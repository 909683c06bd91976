package miroflow

import (
	"context"
	"testing"
	"time"
)

func TestEmitterSentinelThenClose(t *testing.T) {
	e := NewEmitter(4)
	ctx := context.Background()
	e.Emit(ctx, EventMessage, map[string]any{"delta": "hi"})
	e.Close(ctx)

	ev, ok := <-e.Events()
	if !ok || ev == nil || ev.Type != EventMessage {
		t.Fatalf("first receive = %v, %v; want the message event", ev, ok)
	}
	ev, ok = <-e.Events()
	if !ok || ev != nil {
		t.Fatalf("second receive = %v, %v; want nil sentinel", ev, ok)
	}
	if _, ok = <-e.Events(); ok {
		t.Error("channel still open after sentinel")
	}
}

func TestEmitterCloseIdempotent(t *testing.T) {
	e := NewEmitter(4)
	ctx := context.Background()
	e.Close(ctx)
	e.Close(ctx) // second close must not panic or resend
	var nils int
	for ev := range e.Events() {
		if ev == nil {
			nils++
		}
	}
	if nils != 1 {
		t.Errorf("sentinel count = %d, want 1", nils)
	}
}

func TestEmitterBackpressureCancel(t *testing.T) {
	e := NewEmitter(1)
	ctx, cancel := context.WithCancel(context.Background())
	e.Emit(ctx, EventMessage, nil) // fills the buffer

	cancel()
	done := make(chan struct{})
	go func() {
		e.Emit(ctx, EventMessage, nil) // would block; cancellation releases it
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked past context cancellation")
	}
}

func TestEmitterNilReceiver(t *testing.T) {
	var e *Emitter
	ctx := context.Background()
	e.Emit(ctx, EventMessage, nil)
	e.Close(ctx)
	e.startWorkflow(ctx, "id", "task")
	e.message(ctx, "m", "delta")
	if ch := e.Events(); ch != nil {
		t.Error("nil emitter returned a live channel")
	}
}

func TestEmitterAgentEventsCarryID(t *testing.T) {
	e := NewEmitter(4)
	ctx := context.Background()
	id := e.startAgent(ctx, "main_agent")
	if id == "" {
		t.Fatal("startAgent returned empty id")
	}
	e.endAgent(ctx, "main_agent", id)
	e.Close(ctx)

	var got []Event
	for ev := range e.Events() {
		if ev != nil {
			got = append(got, *ev)
		}
	}
	if len(got) != 2 {
		t.Fatalf("event count = %d, want 2", len(got))
	}
	if got[0].Type != EventStartOfAgent || got[1].Type != EventEndOfAgent {
		t.Errorf("types = %s, %s", got[0].Type, got[1].Type)
	}
	if got[0].Data["agent_id"] != id || got[1].Data["agent_id"] != id {
		t.Error("agent_id mismatch between start and end")
	}
	if got[0].Data["agent_name"] != "main_agent" {
		t.Errorf("agent_name = %v", got[0].Data["agent_name"])
	}
}

func TestEmitterShowTextPayload(t *testing.T) {
	e := NewEmitter(4)
	ctx := context.Background()
	e.showText(ctx, "round-1", "partial thought")
	e.Close(ctx)

	ev := <-e.Events()
	if ev.Type != EventToolCall {
		t.Fatalf("type = %s, want tool_call", ev.Type)
	}
	if ev.Data["tool_call_id"] != "round-1" || ev.Data["tool_name"] != showTextTool {
		t.Errorf("data = %v", ev.Data)
	}
	if ev.Data["text"] != "partial thought" {
		t.Errorf("text = %v", ev.Data["text"])
	}
}

func TestEmitterUsagePayload(t *testing.T) {
	e := NewEmitter(4)
	ctx := context.Background()
	e.usageInfo(ctx, "main_agent", UsageSceneToolCall, Usage{InputTokens: 7, OutputTokens: 3}, map[string]any{"tool_name": "lookup"})
	e.Close(ctx)

	ev := <-e.Events()
	if ev.Type != EventUsageInfo {
		t.Fatalf("type = %s, want usage_info", ev.Type)
	}
	if ev.Data["scene"] != UsageSceneToolCall || ev.Data["tool_name"] != "lookup" {
		t.Errorf("data = %v", ev.Data)
	}
	usage, ok := ev.Data["usage"].(map[string]any)
	if !ok || usage["input_tokens"] != 7 || usage["output_tokens"] != 3 {
		t.Errorf("usage = %v", ev.Data["usage"])
	}
}
