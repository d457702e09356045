package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Request identifies the action an operation applies to. Ids are generated by
// the caller; uniqueness is not enforced here.
type Request struct {
	ID string `json:"id"`
}

// DecodeRequest reads a {"id": "..."} JSON document from r and validates the
// id before it is used as a file name.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return Request{}, fmt.Errorf("invalid action request: %w", err)
	}
	if req.ID == "" {
		return Request{}, errors.New("action request requires id")
	}
	if !IsSafeID(req.ID) {
		return Request{}, fmt.Errorf("invalid action id %q: allowed [A-Za-z0-9._-] and no '..'", req.ID)
	}
	return req, nil
}

// IsSafeID validates action ids to avoid path traversal when used in file names.
// Allowed characters: A-Z a-z 0-9 . _ - and no consecutive dots forming "..".
func IsSafeID(s string) bool {
	if s == "" {
		return false
	}
	if strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			continue
		}
		return false
	}
	// disallow path separators just in case (platform independent)
	if strings.ContainsAny(s, "/\\") {
		return false
	}
	return true
}
