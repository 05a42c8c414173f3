package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "round generated",
		String("event", "E1"),
		Int("round", 2),
		Float64("eloDiff", 0.05),
		Bool("relaxed", false),
		Duration("took", time.Millisecond),
		Error(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{"round generated", "event=E1", "round=2", "eloDiff=0.05", "relaxed=false", "error=boom", "source="} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf), WithJSON(true)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().With(String("component", "scheduler")).Warn(context.Background(), "relaxing")
	out := buf.String()
	if !strings.Contains(out, `"component":"scheduler"`) || !strings.Contains(out, `"msg":"relaxing"`) {
		t.Errorf("unexpected json output %q", out)
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("worker").Info(context.Background(), "started", String("id", "w-1"))
	if !strings.Contains(buf.String(), "worker.id=w-1") {
		t.Errorf("expected grouped field, got %q", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	if err := SetLevelString("bogus"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if err := SetLevelString("WARNING"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if levelVar.Level() != slog.LevelWarn {
		t.Fatalf("expected warn level, got %v", levelVar.Level())
	}

	Get().Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	_ = SetLevelString("info")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "dropped", String("k", "v"))
	if l.Named("x").With(Int("n", 1)) == nil {
		t.Fatal("nop children must not be nil")
	}
}
