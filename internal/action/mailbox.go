package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Error strings reported to the caller when the status record cannot be read.
// They are part of the poll contract and must not change.
const (
	MsgNotFound    = "status file not found"
	MsgUndecodable = "unable to decode status file"
)

// ErrUndecodable marks a status file whose content is not a valid record.
var ErrUndecodable = errors.New(MsgUndecodable)

// DefaultDir returns the per-user runtime directory for the given uid.
func DefaultDir(uid int) string {
	return fmt.Sprintf("/var/run/user/%d", uid)
}

// Mailbox is a single-slot store for action status records: one JSON file per
// action id under a runtime directory. There is no locking by contract; the
// launcher is the only writer and the poller deletes after a terminal read.
type Mailbox struct {
	dir string
}

func NewMailbox(dir string) *Mailbox { return &Mailbox{dir: dir} }

func (m *Mailbox) Dir() string { return m.dir }

// Path returns the status file path for id. The id must already be validated
// with IsSafeID before it reaches here.
func (m *Mailbox) Path(id string) string { return filepath.Join(m.dir, id) }

// EnsureDir creates the runtime directory when it does not exist yet.
func (m *Mailbox) EnsureDir() error {
	return os.MkdirAll(m.dir, 0o750)
}

// Write overwrites the record for id in place.
func (m *Mailbox) Write(id string, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	path := m.Path(id)
	// #nosec 306 -- record must stay readable by the polling side
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write status file %s: %w", path, err)
	}
	return nil
}

// MarkRunning creates the running record before the launcher hands off.
func (m *Mailbox) MarkRunning(id string) error {
	return m.Write(id, Record{Status: StatusRunning})
}

// Read returns the stored record without consuming it. A file that does not
// decode to a record with a status is reported via ErrUndecodable.
func (m *Mailbox) Read(id string) (Record, error) {
	b, err := os.ReadFile(m.Path(id))
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if rec.Status == "" {
		return Record{}, fmt.Errorf("%w: missing status", ErrUndecodable)
	}
	return rec, nil
}

// Poll reads the record for id and consumes it once it is no longer running.
// A missing file reports MsgNotFound and an undecodable file MsgUndecodable,
// both as failed records. The reported status decides deletion, so a corrupt
// file is consumed as well. Removal failures are swallowed; a poll never
// fails outright.
func (m *Mailbox) Poll(id string) Record {
	rec, err := m.Read(id)
	if err != nil {
		if errors.Is(err, ErrUndecodable) {
			rec = Failed(MsgUndecodable)
		} else {
			rec = Failed(MsgNotFound)
		}
	}
	if rec.Terminal() {
		_ = os.Remove(m.Path(id))
	}
	return rec
}
