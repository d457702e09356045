package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/shellact/internal/action"
	"github.com/loykin/shellact/internal/config"
	"github.com/loykin/shellact/internal/history/factory"
	"github.com/loykin/shellact/internal/logger"
	"github.com/loykin/shellact/internal/metrics"
	"github.com/loykin/shellact/internal/runner"
	"github.com/loykin/shellact/internal/server"
)

type command struct{}

// Check reads the action request from in, polls the status record, and
// writes the resulting status JSON to out. Terminal records are consumed.
func (c command) Check(cfg *config.Config, in io.Reader, out io.Writer) error {
	req, err := action.DecodeRequest(in)
	if err != nil {
		return err
	}
	box := action.NewMailbox(cfg.RuntimeDir())
	return json.NewEncoder(out).Encode(box.Poll(req.ID))
}

// Run is both halves of the launcher. The user-facing half reads the request
// from in, writes the running record, and re-execs this binary detached. The
// hidden --detached half executes the command and writes the terminal record.
func (c command) Run(cfg *config.Config, globalFlags *GlobalFlags, runFlags *RunFlags, argv []string, in io.Reader, out io.Writer) error {
	if runFlags.Detached {
		return c.runDetached(cfg, runFlags.ID, argv)
	}

	req, err := action.DecodeRequest(in)
	if err != nil {
		return err
	}
	if len(argv) == 0 {
		return errors.New("run requires a command after --")
	}

	box := action.NewMailbox(cfg.RuntimeDir())
	if err := box.EnsureDir(); err != nil {
		return err
	}
	// The running record must exist before control goes back to the invoker.
	if err := box.MarkRunning(req.ID); err != nil {
		return err
	}

	args := buildDetachedArgs(detachSpec{
		ID:         req.ID,
		RunDir:     cfg.RuntimeDir(),
		ConfigPath: globalFlags.ConfigPath,
		Argv:       argv,
	})
	pid, err := spawnDetached(args)
	if err != nil {
		_ = box.Write(req.ID, action.Failed(err.Error()))
		return err
	}
	_, _ = fmt.Fprintf(out, "action process detached (pid %d)\n", pid)
	return nil
}

// runDetached is the re-exec child: new session, null streams, root cwd.
// Its only output channel is the status record.
func (c command) runDetached(cfg *config.Config, id string, argv []string) error {
	if id == "" {
		return errors.New("--detached requires --id")
	}
	if !action.IsSafeID(id) {
		return fmt.Errorf("invalid action id %q", id)
	}
	decoupleFromParent()

	r := c.newRunner(cfg)
	if r.Sink != nil {
		defer func() { _ = r.Sink.Close() }()
	}
	return r.Execute(context.Background(), id, argv)
}

// newRunner builds a runner from the resolved config. Sink setup failures
// only cost the audit trail, never the action.
func (c command) newRunner(cfg *config.Config) *runner.Runner {
	r := &runner.Runner{
		Box: action.NewMailbox(cfg.RuntimeDir()),
		Log: cfg.LoggerConfig(),
	}
	if dsn := cfg.HistoryDSN(); dsn != "" {
		sink, err := factory.NewSinkFromDSN(dsn)
		if err != nil {
			slog.Warn("history sink unavailable", "dsn", dsn, "err", err)
		} else {
			r.Sink = sink
		}
	}
	return r
}

// Serve runs the actions HTTP API daemon until SIGINT/SIGTERM.
func (c command) Serve(cfg *config.Config, serveFlags *ServeFlags) error {
	if serveFlags.Daemonize {
		return daemonize(serveFlags.LogFile)
	}

	slog.SetDefault(slog.New(logger.NewColorTextHandler(os.Stderr, nil)))

	box := action.NewMailbox(cfg.RuntimeDir())
	if err := box.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create run dir %s: %w", cfg.RuntimeDir(), err)
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		if err := metrics.RegisterDefault(); err != nil {
			slog.Warn("failed to register metrics", "err", err)
		}
		if cfg.Metrics.Listen != "" {
			go func() {
				if err := metrics.Serve(cfg.Metrics.Listen); err != nil {
					slog.Error("metrics server error", "err", err)
				}
			}()
		}
	}

	r := c.newRunner(cfg)
	r.Box = box
	if r.Sink != nil {
		defer func() { _ = r.Sink.Close() }()
	}

	listen := ":8080"
	basePath := "/api"
	if cfg.Server != nil {
		if cfg.Server.Listen != "" {
			listen = cfg.Server.Listen
		}
		if cfg.Server.BasePath != "" {
			basePath = cfg.Server.BasePath
		}
	}

	srv, err := server.NewServer(listen, basePath, box, runner.Async{Runner: r})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	slog.Info("starting actions api server", "listen", listen, "base_path", basePath, "run_dir", cfg.RuntimeDir())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down")
	return srv.Close()
}
