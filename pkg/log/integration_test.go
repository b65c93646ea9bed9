package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/YuminosukeSato/scigo-studio/pkg/errors"
)

func TestTestLoggerCapturesLevels(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationSplit)
	testLogger.Warn("warning message")
	testLogger.Error("error message", fmt.Errorf("test error"), StageKey, "ModelTraining")

	if buffer.Len() == 0 {
		t.Fatal("Expected log output, got empty string")
	}
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("number", 42.0) {
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField("error", "test error") {
		t.Error("Expected leading error to be recorded under 'error'")
	}
	if !testLogger.ContainsField(StageKey, "ModelTraining") {
		t.Error("Expected stage field after the error")
	}
}

func TestTestLoggerLevelFilter(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)
	testLogger.Info("hidden")
	testLogger.Warn("shown")

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Errorf("unexpected entries %v", entries)
	}
	if testLogger.Enabled(context.Background(), LevelInfo) {
		t.Error("Info should be disabled at Warn level")
	}
}

func TestTestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	contextLogger := testLogger.With(SessionIDKey, "s-1", ComponentKey, "pipeline")
	contextLogger.Info("stage completed", StageKey, "Exploration")

	if !testLogger.ContainsField(SessionIDKey, "s-1") {
		t.Error("session context not found")
	}
	if !testLogger.ContainsField(StageKey, "Exploration") {
		t.Error("stage field not found")
	}
}

func TestTestLoggerConcurrent(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			testLogger.With("worker", i).Info("tick")
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 8 {
		t.Errorf("expected 8 entries, got %d", len(entries))
	}
}

func TestZerologProviderJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelInfo, false)
	logger := p.GetLoggerWithName("pipeline").With(SessionIDKey, "abc")

	logger.Debug("dropped")
	logger.Info("split created", SamplesKey, 80, StratifiedKey, true)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["message"] != "split created" || entry["level"] != "info" {
		t.Errorf("unexpected entry %v", entry)
	}
	if entry[ComponentKey] != "pipeline" || entry[SessionIDKey] != "abc" {
		t.Errorf("context fields missing: %v", entry)
	}
	if entry[SamplesKey] != 80.0 || entry[StratifiedKey] != true {
		t.Errorf("record fields missing: %v", entry)
	}

	p.SetLevel(LevelDebug)
	buf.Reset()
	logger.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel should affect loggers already handed out")
	}
}

func TestZerologProviderErrorDetail(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelDebug, false)

	err := errors.NewInsufficientDataError("test", 3, 5)
	p.GetLogger().Error("split failed", err, StageKey, "TrainTestSplit")

	var entry map[string]interface{}
	if jerr := json.Unmarshal(buf.Bytes(), &entry); jerr != nil {
		t.Fatal(jerr)
	}
	if !strings.Contains(entry["error"].(string), "insufficient data") {
		t.Errorf("error not recorded: %v", entry)
	}
	detail, ok := entry["detail"].(map[string]interface{})
	if !ok || detail["partition"] != "test" {
		t.Errorf("structured detail missing: %v", entry)
	}
}

func TestSetupFormats(t *testing.T) {
	defer SetGlobalLoggerProvider(NewZerologProvider(LevelInfo))

	for _, format := range []string{"console", "json", "cloud"} {
		var buf bytes.Buffer
		if _, err := Setup(&buf, "info", format); err != nil {
			t.Fatalf("Setup(%s): %v", format, err)
		}
		GetLoggerWithName("cli").Info("hello")
		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("%s: output missing message: %q", format, buf.String())
		}
	}

	if _, err := Setup(&bytes.Buffer{}, "loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := Setup(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWarningsRouteToGlobalProvider(t *testing.T) {
	provider, testLogger := NewTestLoggerProvider(LevelDebug)
	SetGlobalLoggerProvider(provider)
	defer func() {
		errors.SetZerologWarnFunc(nil)
		SetGlobalLoggerProvider(NewZerologProvider(LevelInfo))
	}()

	errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
	if !testLogger.ContainsMessage("'recall' is ill-defined") {
		t.Error("warning was not logged through the provider")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{"debug": LevelDebug, "INFO": LevelInfo, "warning": LevelWarn, "error": LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}
