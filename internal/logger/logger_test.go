package logger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_ValidLevel(t *testing.T) {
	log := New("debug")
	if log.GetLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug level, got %s", log.GetLevel())
	}
}

func TestNew_InvalidLevelDefaultsToInfo(t *testing.T) {
	log := New("not-a-level")
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected info level fallback, got %s", log.GetLevel())
	}
}

func TestNewFromConfig_FileOutput(t *testing.T) {
	log := NewFromConfig(Config{
		Level:    "warn",
		Output:   "file",
		FilePath: t.TempDir() + "/queue.log",
	})
	if log.GetLevel() != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %s", log.GetLevel())
	}
}

func TestCorrelationID_RoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationIDFromContext(ctx); got != "abc-123" {
		t.Errorf("expected abc-123, got %s", got)
	}
}

func TestCorrelationIDFromContext_Unset(t *testing.T) {
	if got := CorrelationIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty string, got %s", got)
	}
}

func TestNewCorrelationID_Unique(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a, b)
	}
}

func TestFromContext_AttachesCorrelationID(t *testing.T) {
	base := New("info")
	ctx := WithLogger(context.Background(), base)
	ctx = WithCorrelationID(ctx, "req-42")

	// The returned logger must be usable; the correlation ID is attached as
	// a field, which we can only verify indirectly by it not panicking.
	log := FromContext(ctx)
	log.Info().Msg("smoke")
}

func TestFromContext_NoLoggerFallsBack(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("expected fallback info logger, got %s", log.GetLevel())
	}
}
