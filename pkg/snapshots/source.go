// Package snapshots fetches commit timelines and per-commit file records from
// the TimeWarp API or from local fixture files. Decoding is lenient: a
// malformed number becomes zero and a record without a path is skipped, so one
// bad row never fails a whole snapshot.
package snapshots

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sumatoshi-tech/timewarp/pkg/scene"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when the commit or file is unknown upstream.
	ErrNotFound = errors.New("not found")
	// ErrUpstream is returned for any other non-2xx response.
	ErrUpstream = errors.New("upstream error")
	// ErrDecode is returned when a response body is not the expected document.
	ErrDecode = errors.New("decode response")
	// ErrEmptyCommitID is returned when a snapshot or diff is requested without a commit.
	ErrEmptyCommitID = errors.New("commit id is required")
	// ErrEmptyPath is returned when a diff is requested without a path.
	ErrEmptyPath = errors.New("file path is required")
)

// Diff is the content of one file before and after a commit. Before is empty
// for a root commit or a newly added file.
type Diff struct {
	Before string `json:"before" yaml:"before"`
	After  string `json:"after"  yaml:"after"`
}

// Source supplies commits, snapshots and diffs.
type Source interface {
	// Timeline returns the commits ordered by timestamp.
	Timeline(ctx context.Context) ([]scene.CommitRecord, error)
	// Snapshot returns the file records of one commit.
	Snapshot(ctx context.Context, commitID string) (*scene.Snapshot, error)
	// Diff returns the before/after content of a file at a commit.
	Diff(ctx context.Context, commitID, path string) (Diff, error)
}

// StatusError describes a non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

// Error implements error.
func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
	}

	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Unwrap maps the status onto ErrNotFound or ErrUpstream.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	return ErrUpstream
}
