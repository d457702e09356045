package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loykin/shellact/internal/action"
	"github.com/loykin/shellact/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.RunDir = t.TempDir()
	return cfg
}

func TestCheckReportsAndConsumes(t *testing.T) {
	cfg := testConfig(t)
	box := action.NewMailbox(cfg.RuntimeDir())
	if err := box.Write("a1", action.Record{Status: action.StatusFinished}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	if err := (command{}).Check(cfg, strings.NewReader(`{"id":"a1"}`), &out); err != nil {
		t.Fatalf("check: %v", err)
	}

	var rec action.Record
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if rec.Status != action.StatusFinished {
		t.Fatalf("unexpected record %+v", rec)
	}

	// File consumed; second check reports not found.
	out.Reset()
	if err := (command{}).Check(cfg, strings.NewReader(`{"id":"a1"}`), &out); err != nil {
		t.Fatalf("second check: %v", err)
	}
	if err := json.Unmarshal(out.Bytes(), &rec); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if rec.Status != action.StatusFailed || rec.Error != action.MsgNotFound {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestCheckRunningStaysVisible(t *testing.T) {
	cfg := testConfig(t)
	box := action.NewMailbox(cfg.RuntimeDir())
	if err := box.MarkRunning("a2"); err != nil {
		t.Fatalf("mark running: %v", err)
	}

	var out bytes.Buffer
	if err := (command{}).Check(cfg, strings.NewReader(`{"id":"a2"}`), &out); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out.String(), `"running"`) {
		t.Fatalf("unexpected output %q", out.String())
	}
	if _, err := os.Stat(box.Path("a2")); err != nil {
		t.Fatalf("running record must survive the poll: %v", err)
	}
}

func TestCheckRejectsBadRequest(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	if err := (command{}).Check(cfg, strings.NewReader(`garbage`), &out); err == nil {
		t.Fatal("expected error for malformed request")
	}
	if err := (command{}).Check(cfg, strings.NewReader(`{"id":"../x"}`), &out); err == nil {
		t.Fatal("expected error for unsafe id")
	}
}

func TestRunRequiresCommand(t *testing.T) {
	cfg := testConfig(t)
	err := (command{}).Run(cfg, &GlobalFlags{}, &RunFlags{}, nil, strings.NewReader(`{"id":"a3"}`), &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error when no command is given")
	}
}

func TestRunWritesRunningBeforeHandoff(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	err := (command{}).Run(cfg, &GlobalFlags{}, &RunFlags{},
		[]string{"/bin/sh", "-c", "exit 0"}, strings.NewReader(`{"id":"a4"}`), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "detached") {
		t.Fatalf("missing handoff message, got %q", out.String())
	}

	// The running record was written before control returned. By now the
	// detached child (the re-exec'd test binary) has failed to parse our
	// test flags, so the record may be running or failed, but never absent.
	box := action.NewMailbox(cfg.RuntimeDir())
	if _, err := os.Stat(box.Path("a4")); err != nil {
		t.Fatalf("status record missing after handoff: %v", err)
	}
}

func TestBuildDetachedArgs(t *testing.T) {
	args := buildDetachedArgs(detachSpec{
		ID:     "a5",
		RunDir: "/tmp/rd",
		Argv:   []string{"/bin/echo", "hi"},
	})
	want := []string{"run", "--detached", "--id", "a5", "--run-dir", "/tmp/rd", "--", "/bin/echo", "hi"}
	if len(args) != len(want) {
		t.Fatalf("args = %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildDetachedArgsWithConfig(t *testing.T) {
	args := buildDetachedArgs(detachSpec{
		ID:         "a6",
		RunDir:     "/tmp/rd",
		ConfigPath: "/etc/shellact.toml",
		Argv:       []string{"true"},
	})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--config /etc/shellact.toml") {
		t.Fatalf("config flag missing: %v", args)
	}
	if !strings.HasSuffix(joined, "-- true") {
		t.Fatalf("argv must come after --: %v", args)
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("uid = 55\nrun_dir = \"/from/file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// File only.
	cfg, err := resolveConfig(&GlobalFlags{ConfigPath: path}, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.UID != 55 || cfg.RunDir != "/from/file" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	// Flags override the file.
	cfg, err = resolveConfig(&GlobalFlags{ConfigPath: path, UID: 77, RunDir: "/from/flag"}, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.UID != 77 || cfg.RunDir != "/from/flag" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	// Defaults without a file.
	cfg, err = resolveConfig(&GlobalFlags{}, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.UID != config.DefaultUID {
		t.Fatalf("unexpected uid %d", cfg.UID)
	}
}

func TestStripDaemonFlags(t *testing.T) {
	in := []string{"serve", "--config", "c.toml", "--daemonize", "--logfile", "/tmp/x.log"}
	out := stripDaemonFlags(in)
	joined := strings.Join(out, " ")
	if strings.Contains(joined, "daemonize") || strings.Contains(joined, "logfile") {
		t.Fatalf("flags not stripped: %v", out)
	}
	if joined != "serve --config c.toml" {
		t.Fatalf("unexpected args %v", out)
	}
}
