package shellact

import (
	"net/http"
	"time"

	"github.com/loykin/shellact/internal/action"
	cfg "github.com/loykin/shellact/internal/config"
	"github.com/loykin/shellact/internal/history"
	"github.com/loykin/shellact/internal/history/factory"
	"github.com/loykin/shellact/internal/metrics"
	"github.com/loykin/shellact/internal/runner"
	iapi "github.com/loykin/shellact/internal/server"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Status = action.Status

const (
	StatusRunning  = action.StatusRunning
	StatusFinished = action.StatusFinished
	StatusFailed   = action.StatusFailed
)

type Record = action.Record

type Request = action.Request

type Mailbox = action.Mailbox

// NewMailbox returns a mailbox rooted at dir. Use DefaultRunDir to derive
// the conventional per-user directory.
func NewMailbox(dir string) *Mailbox { return action.NewMailbox(dir) }

// DefaultRunDir returns the per-user runtime directory for status records.
func DefaultRunDir(uid int) string { return action.DefaultDir(uid) }

type HistoryConfig = cfg.HistoryConfig

type HistorySink = history.Sink

type HistoryEvent = history.Event

const (
	EventFinished = history.EventFinished
	EventFailed   = history.EventFailed
)

// NewHistorySink builds a sink from a DSN. Supported schemes are sqlite,
// postgres and clickhouse; a bare path or :memory: selects sqlite.
func NewHistorySink(dsn string) (HistorySink, error) {
	return factory.NewSinkFromDSN(dsn)
}

// Runner facade

type Runner = runner.Runner

type Async = runner.Async

type Launcher = iapi.Launcher

func LoadConfig(path string) (*cfg.Config, error) {
	return cfg.Load(path)
}

// NewRouter returns embeddable HTTP handlers for the actions API.
func NewRouter(box *Mailbox, launcher Launcher, basePath string) *iapi.Router {
	return iapi.NewRouter(box, launcher, basePath)
}

// NewHTTPServer starts an HTTP server exposing the actions API on addr.
func NewHTTPServer(addr, basePath string, box *Mailbox, launcher Launcher) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, box, launcher)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
