package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/loykin/shellact/internal/action"
	"github.com/loykin/shellact/internal/history"
	"github.com/loykin/shellact/internal/logger"
	"github.com/loykin/shellact/internal/metrics"
)

// Runner executes one action to completion and overwrites its status record
// with the terminal result. The running record must already exist when
// Execute is called; the launcher writes it before handing off.
type Runner struct {
	Box  *action.Mailbox
	Sink history.Sink  // optional audit sink for terminal events
	Log  logger.Config // optional output capture, null device otherwise
}

// Execute runs argv synchronously, captures exit code and stderr, and writes
// `finished` on exit zero or `failed` with the stderr text otherwise. There
// is deliberately no way to report a failure to write the terminal record
// back to the invoker; if that write is lost the record stays `running`.
func (r *Runner) Execute(ctx context.Context, id string, argv []string) error {
	if len(argv) == 0 {
		rec := action.Failed("no command given")
		err := r.Box.Write(id, rec)
		r.emit(ctx, id, rec, -1)
		return err
	}

	metrics.IncStart()
	start := time.Now()

	// #nosec 204 -- running caller-supplied commands is the whole point
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	configureSysProcAttr(cmd)

	// stderr is always captured in memory for the failed record; file capture
	// is layered on top when configured.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if r.Log.Enabled() {
		outW, errW, lerr := r.Log.Writers(id)
		if lerr == nil {
			if outW != nil {
				defer func() { _ = outW.Close() }()
				cmd.Stdout = outW
			}
			if errW != nil {
				defer func() { _ = errW.Close() }()
				cmd.Stderr = io.MultiWriter(&stderr, errW)
			}
		} else {
			slog.Warn("action output capture unavailable", "id", id, "err", lerr)
		}
	}

	runErr := cmd.Run()
	metrics.ObserveDuration(time.Since(start))

	rec := action.Record{Status: action.StatusFinished}
	exitCode := 0
	if runErr != nil {
		exitCode = exitCodeOf(runErr)
		rec = action.Failed(failureText(stderr.String(), runErr))
	}

	if err := r.Box.Write(id, rec); err != nil {
		// The record is now stuck in running state; nothing downstream can
		// see the outcome, so surface the write error to our own caller.
		r.emit(ctx, id, rec, exitCode)
		return err
	}
	r.emit(ctx, id, rec, exitCode)
	return nil
}

// emit records the terminal outcome in metrics and the audit sink.
func (r *Runner) emit(ctx context.Context, id string, rec action.Record, exitCode int) {
	typ := history.EventFinished
	if rec.Status == action.StatusFailed {
		typ = history.EventFailed
		metrics.IncFailure()
	} else {
		metrics.IncFinish()
	}
	if r.Sink == nil {
		return
	}
	e := history.Event{
		Type:       typ,
		OccurredAt: time.Now().UTC(),
		ActionID:   id,
		ExitCode:   exitCode,
		Error:      rec.Error,
	}
	if err := r.Sink.Send(ctx, e); err != nil {
		slog.Warn("history sink send failed", "id", id, "err", err)
	}
}

// exitCodeOf extracts the command exit code; -1 when the command never ran.
func exitCodeOf(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

// failureText prefers the captured stderr; start failures have no stderr so
// the exec error stands in.
func failureText(stderr string, err error) string {
	if s := strings.TrimRight(stderr, "\n"); s != "" {
		return s
	}
	return err.Error()
}

// Async launches Execute on its own goroutine. Used when the runner is
// embedded in a long-lived daemon, which then plays the parent the action
// must survive without.
type Async struct {
	Runner *Runner
}

func (a Async) Launch(id string, argv []string) error {
	go func() {
		_ = a.Runner.Execute(context.Background(), id, argv)
	}()
	return nil
}
