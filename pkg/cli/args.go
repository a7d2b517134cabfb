package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/jh125486/batchreview/pkg/client"
	"github.com/jh125486/batchreview/pkg/review"
	"github.com/jh125486/batchreview/pkg/storage"
)

// ErrNoSource is returned when neither a server nor a snapshot was given.
var ErrNoSource = errors.New("one of --server-url or --snapshot is required")

// SnapshotFile is a validated path to a YAML batch snapshot.
type SnapshotFile string

// Validate implements Kong's Validatable interface. An empty path is allowed
// and means no snapshot.
func (f SnapshotFile) Validate() error {
	path := string(f)
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return &FileError{Err: err}
	}
	if info.IsDir() {
		return fmt.Errorf("snapshot %q is a directory", path)
	}

	fh, err := os.Open(path)
	if err != nil {
		return &FileError{Err: err}
	}
	return fh.Close()
}

// String returns the string representation of SnapshotFile
func (f SnapshotFile) String() string {
	return string(f)
}

// FileError represents an error related to snapshot file access
type FileError struct {
	Err error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%v\n%s", e.Err, e.permissionHelp())
}

func (e *FileError) Unwrap() error {
	return e.Err
}

func (e *FileError) permissionHelp() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS help: System Settings → Privacy & Security → Files and Folders\nOr try: chmod 644 /path/to/snapshot.yaml"
	case "windows":
		return "Windows help: Right-click file → Properties → Security → Edit permissions"
	case "linux":
		return "Linux help: chmod 644 /path/to/snapshot.yaml\nOr check file ownership with: ls -la"
	default:
		return "Check file permissions and ownership"
	}
}

// SessionArgs selects the batch to review and where it is loaded from.
//
//nolint:lll // Long struct tags
type SessionArgs struct {
	ServerURL  string       `env:"BATCHREVIEW_SERVER_URL" help:"URL of the review server"                  name:"server-url" xor:"source"`
	Snapshot   SnapshotFile `env:"BATCHREVIEW_SNAPSHOT"   help:"Review a local YAML snapshot instead"      name:"snapshot"   xor:"source"`
	Batch      string       `env:"BATCHREVIEW_BATCH"      help:"Batch ID"                                  name:"batch"      required:""`
	Talent     string       `help:"Talent to select, defaults to the first on the roster"                  name:"talent"`
	Assignment string       `help:"Assignment to select, defaults to the first of the batch"               name:"assignment"`
}

// Validate checks that a source was given.
func (a *SessionArgs) Validate() error {
	if a.ServerURL == "" && a.Snapshot == "" {
		return ErrNoSource
	}
	return a.Snapshot.Validate()
}

// Session is an opened review backend.
type Session struct {
	Backend review.Backend
	// Remote is set when the backend is a review server.
	Remote *client.Client
	close  func() error
}

// Close releases the backend.
func (s *Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the server, or loads the snapshot when no server was given.
func (a *SessionArgs) Open(ctx context.Context, svc *Service, version Version) (*Session, error) {
	if a.ServerURL != "" {
		c := client.New(a.ServerURL, string(version), svc.Client)
		c.BatchID = a.Batch
		return &Session{Backend: c, Remote: c}, nil
	}
	if a.Snapshot == "" {
		return nil, ErrNoSource
	}
	fs, err := storage.NewFileStorage(ctx, a.Snapshot.String())
	if err != nil {
		return nil, err
	}
	return &Session{Backend: fs, close: fs.Close}, nil
}

// Start opens a review session on the batch and applies the requested selection.
func (a *SessionArgs) Start(ctx context.Context, backend review.Backend) (*review.Controller, error) {
	c := review.NewController(backend, a.Batch)
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	if a.Talent != "" {
		if _, err := c.SelectTalent(ctx, a.Talent); err != nil {
			return nil, err
		}
	}
	if a.Assignment != "" {
		if _, err := c.SelectAssignment(ctx, a.Assignment); err != nil {
			return nil, err
		}
	}
	return c, nil
}
