package action

// Status is the lifecycle state recorded for an action.
type Status string

const (
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// Record is the JSON document persisted for an action, one file per id,
// overwritten in place. The wire format is frozen: a status and an optional
// error string, no header or versioning.
type Record struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Failed builds a failed record carrying a human-readable error.
func Failed(msg string) Record { return Record{Status: StatusFailed, Error: msg} }

// Terminal reports whether the record is past the running state. Statuses we
// do not recognize count as terminal so the poller still consumes them.
func (r Record) Terminal() bool { return r.Status != StatusRunning }
