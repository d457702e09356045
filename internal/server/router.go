package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/shellact/internal/action"
)

// Launcher schedules an action for execution after its running record has
// been written. The serve daemon launches in-process; the CLI re-execs
// itself into a detached runner.
type Launcher interface {
	Launch(id string, argv []string) error
}

// Router provides embeddable HTTP handlers for scheduling and polling
// actions.
// Endpoints:
//
//	POST {basePath}/run    body: {"id":"...","command":["...", ...]}
//	GET  {basePath}/check  query: id=...
//
// The check endpoint has the poll contract of the CLI: a terminal status is
// reported once and its record deleted.
type Router struct {
	box      *action.Mailbox
	launcher Launcher
	basePath string
}

// NewRouter constructs a new Router with configurable basePath.
// Example basePath: "/api" results in /api/run and /api/check.
func NewRouter(box *action.Mailbox, launcher Launcher, basePath string) *Router {
	bp := sanitizeBase(basePath)
	return &Router{box: box, launcher: launcher, basePath: bp}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.POST("/run", r.handleRun)
	group.GET("/check", r.handleCheck)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Shut it down by calling Close on the returned server.
func NewServer(addr, basePath string, box *action.Mailbox, launcher Launcher) (*http.Server, error) {
	r := NewRouter(box, launcher, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type runRequest struct {
	ID      string   `json:"id"`
	Command []string `json:"command"`
}

func (r *Router) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if req.ID == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "id required"})
		return
	}
	if !action.IsSafeID(req.ID) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	if len(req.Command) == 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "command required"})
		return
	}
	if err := r.box.MarkRunning(req.ID); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if err := r.launcher.Launch(req.ID, req.Command); err != nil {
		// The running record would otherwise dangle forever.
		_ = r.box.Write(req.ID, action.Failed(err.Error()))
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleCheck(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "id required"})
		return
	}
	if !action.IsSafeID(id) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid id: allowed [A-Za-z0-9._-] and no '..' or path separators"})
		return
	}
	writeJSON(c, http.StatusOK, r.box.Poll(id))
}
