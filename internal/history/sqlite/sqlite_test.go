package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/loykin/shellact/internal/history"
)

func TestSQLiteSink_Integration(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := tempDir + "/test.db"

	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()

	finished := history.Event{
		Type:       history.EventFinished,
		OccurredAt: time.Now().UTC(),
		ActionID:   "act-1",
		ExitCode:   0,
	}
	if err := sink.Send(ctx, finished); err != nil {
		t.Fatalf("Failed to send finished event: %v", err)
	}

	failed := history.Event{
		Type:       history.EventFailed,
		OccurredAt: time.Now().UTC(),
		ActionID:   "act-2",
		ExitCode:   2,
		Error:      "command not found",
	}
	if err := sink.Send(ctx, failed); err != nil {
		t.Fatalf("Failed to send failed event: %v", err)
	}

	// Verify both rows landed.
	var n int
	if err := sink.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM action_history`).Scan(&n); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	var errText *string
	if err := sink.db.QueryRowContext(ctx,
		`SELECT error FROM action_history WHERE action_id = 'act-2'`).Scan(&errText); err != nil {
		t.Fatalf("select: %v", err)
	}
	if errText == nil || *errText != "command not found" {
		t.Fatalf("unexpected error column: %v", errText)
	}
}

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	e := history.Event{
		Type:       history.EventFinished,
		OccurredAt: time.Now().UTC(),
		ActionID:   "mem-1",
	}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("Failed to send event: %v", err)
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
