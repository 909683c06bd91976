// Command miroflow-trace inspects persisted task logs.
//
// Usage:
//
//	miroflow-trace [-steps] [-history] <task-log.json>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	miroflow "github.com/miromindai/miroflow"
)

func main() {
	steps := flag.Bool("steps", false, "print the step log")
	history := flag.Bool("history", false, "print per-session message histories")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: miroflow-trace [-steps] [-history] <task-log.json>")
		os.Exit(2)
	}

	rec, err := miroflow.LoadTaskLog(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "miroflow-trace:", err)
		os.Exit(1)
	}

	fmt.Printf("task:     %s\n", rec.TaskID)
	fmt.Printf("status:   %s\n", rec.Status)
	fmt.Printf("started:  %s\n", rec.StartTime.Format("2006-01-02 15:04:05 MST"))
	if rec.EndTime != nil {
		fmt.Printf("ended:    %s  (%s)\n", rec.EndTime.Format("2006-01-02 15:04:05 MST"), rec.EndTime.Sub(rec.StartTime).Round(time.Second))
	}
	if rec.FinalBoxedAnswer != "" {
		fmt.Printf("answer:   %s\n", rec.FinalBoxedAnswer)
	}
	if rec.GroundTruth != "" {
		fmt.Printf("expected: %s\n", rec.GroundTruth)
	}
	if rec.JudgeResult != "" {
		fmt.Printf("judge:    %s\n", rec.JudgeResult)
	}
	if rec.Error != "" {
		fmt.Printf("error:    %s\n", rec.Error)
	}
	fmt.Printf("sessions: main + %d sub-agent\n", len(rec.SubAgentSessions))

	if *steps {
		fmt.Println("\nstep log:")
		for _, s := range rec.StepLogs {
			fmt.Printf("  %s  [%-7s] %-20s %s\n", s.Timestamp, s.Status, s.StepName, s.Message)
		}
	}

	if *history {
		printHistory("main", rec.MainAgentHistory)
		for id, snap := range rec.SubAgentSessions {
			printHistory(id, snap)
		}
	}
}

func printHistory(name string, snap miroflow.AgentHistorySnapshot) {
	fmt.Printf("\n=== %s (%d messages) ===\n", name, len(snap.MessageHistory))
	for i, m := range snap.MessageHistory {
		content := m.Content
		if len(content) > 400 {
			content = content[:400] + "…"
		}
		fmt.Printf("[%02d] %-9s %s\n", i, m.Role, strings.ReplaceAll(content, "\n", "\n     "))
	}
}
