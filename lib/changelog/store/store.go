// Package store persists changelog snapshots as a pretty-printed JSON
// document, ex.
//
//	{
//	  "19.5.501": {
//	    "sop": ["Fix bugs"]
//	  }
//	}
//
// Writes go to a temporary file in the same directory that is renamed over
// the target so a crash never leaves a half-written document behind.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"changelog-bot/lib/changelog"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("changelog-bot/lib/changelog/store")

var (
	ErrNotFound  = errors.New("snapshot not found")
	ErrMalformed = errors.New("snapshot malformed")
	ErrIO        = errors.New("snapshot io")
)

const DefaultPath = "log/changelog.json"

type FileStore struct {
	Path string
	// LockPoll is how often Lock retries to acquire the lock file, defaults
	// to 100ms.
	LockPoll time.Duration
}

func NewFileStore(path string) FileStore {
	if path == "" {
		path = DefaultPath
	}
	return FileStore{Path: path}
}

func (s FileStore) Load(ctx context.Context) (*changelog.Snapshot, error) {
	_, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.String("path", s.Path))

	contents, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read snapshot")
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, s.Path, err)
	}

	snap := changelog.New()
	if len(bytes.TrimSpace(contents)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformed, s.Path)
	}
	err = json.Unmarshal(contents, snap)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse snapshot")
		return nil, fmt.Errorf("%w: parse %s: %w", ErrMalformed, s.Path, err)
	}
	span.SetAttributes(attribute.Int("builds", snap.Len()))
	return snap, nil
}

// LoadOrEmpty is Load, but a missing document yields an empty snapshot, this
// is what every first run sees.
func (s FileStore) LoadOrEmpty(ctx context.Context) (snap *changelog.Snapshot, found bool, err error) {
	snap, err = s.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return changelog.New(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

func (s FileStore) Store(ctx context.Context, snap *changelog.Snapshot) error {
	_, span := tracer.Start(ctx, "Store")
	defer span.End()
	span.SetAttributes(
		attribute.String("path", s.Path),
		attribute.Int("builds", snap.Len()),
	)

	contents, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrIO, err)
	}
	contents = append(contents, '\n')

	err = writeAtomic(s.Path, contents)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write snapshot")
		return fmt.Errorf("%w: write %s: %w", ErrIO, s.Path, err)
	}
	return nil
}

func writeAtomic(path string, contents []byte) error {
	dir := filepath.Dir(path)
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := f.Write(contents); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// Lock takes an exclusive lock on "<path>.lock", waiting until ctx is done.
// The returned function releases it.
func (s FileStore) Lock(ctx context.Context) (unlock func() error, err error) {
	err = os.MkdirAll(filepath.Dir(s.Path), 0o755)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	poll := s.LockPoll
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	lock := flock.New(s.Path + ".lock")
	locked, err := lock.TryLockContext(ctx, poll)
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %w", ErrIO, lock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: lock %s: held by another process", ErrIO, lock.Path())
	}
	return lock.Unlock, nil
}
