package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestStreamHubEvictsOldest(t *testing.T) {
	hub := NewStreamHub(48)
	for i := range 60 {
		hub.Publish(LogEvent{Message: fmt.Sprintf("line %d", i)})
	}

	events, last := hub.Tail(0)
	if len(events) != 48 {
		t.Fatalf("expected 48 buffered events, got %d", len(events))
	}
	if last != 60 {
		t.Fatalf("expected last sequence 60, got %d", last)
	}
	if events[0].Message != "line 12" {
		t.Fatalf("expected oldest retained line 12, got %q", events[0].Message)
	}
	if events[47].Message != "line 59" {
		t.Fatalf("expected newest line 59, got %q", events[47].Message)
	}
}

func TestStreamHubTailLimit(t *testing.T) {
	hub := NewStreamHub(10)
	for i := range 5 {
		hub.Publish(LogEvent{Message: fmt.Sprintf("m%d", i)})
	}
	events, _ := hub.Tail(2)
	if len(events) != 2 || events[0].Message != "m3" || events[1].Message != "m4" {
		t.Fatalf("unexpected tail: %+v", events)
	}
}

func TestStreamHubFetchSince(t *testing.T) {
	hub := NewStreamHub(10)
	for i := range 4 {
		hub.Publish(LogEvent{Message: fmt.Sprintf("m%d", i)})
	}
	events, next, err := hub.Fetch(context.Background(), 2, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 || events[0].Sequence != 3 || next != 4 {
		t.Fatalf("unexpected fetch result: %+v next=%d", events, next)
	}

	events, _, err = hub.Fetch(context.Background(), 4, 0, false)
	if err != nil || len(events) != 0 {
		t.Fatalf("expected no new events, got %+v err=%v", events, err)
	}
}

func TestStreamHubFetchWaitHonorsContext(t *testing.T) {
	hub := NewStreamHub(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := hub.Fetch(ctx, 0, 0, true)
	if err == nil {
		t.Fatal("expected context error from waiting fetch")
	}
}

func TestStreamHandlerPublishesBelowConsoleLevel(t *testing.T) {
	hub := NewStreamHub(10)
	var console bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelError)
	logger := slog.New(newStreamHandler(newPrettyHandler(&console, levelVar, false), hub)).
		With(slog.String(FieldComponent, "stager"))

	logger.Info("staged record", slog.String(FieldProcessName, "A_1"), slog.String("title", "T"))
	logger.Debug("debug noise")

	events, _ := hub.Tail(0)
	if len(events) != 1 {
		t.Fatalf("expected 1 event in ring, got %d", len(events))
	}
	evt := events[0]
	if evt.Component != "stager" || evt.ProcessName != "A_1" || evt.Fields["title"] != "T" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if console.Len() != 0 {
		t.Fatalf("expected console to filter info, got %q", console.String())
	}

	logger.Error("write failed")
	if !strings.Contains(console.String(), "write failed") {
		t.Fatalf("expected error on console, got %q", console.String())
	}
	events, _ = hub.Tail(0)
	if !events[len(events)-1].IsError() {
		t.Fatalf("expected error event, got level %q", events[len(events)-1].Level)
	}
}

func TestNewWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	hub := NewStreamHub(4)
	logPath := dir + "/oepma.log"
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{dir + "/console.log"}, FilePath: logPath, Hub: hub})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", slog.String(FieldPhase, "stage"))

	events, _ := hub.Tail(0)
	if len(events) != 1 || events[0].Phase != "stage" {
		t.Fatalf("unexpected hub events: %+v", events)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
