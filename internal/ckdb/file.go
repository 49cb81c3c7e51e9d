package ckdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSink writes newline-delimited JSON events to a file that rotates by
// calendar date, the production Sink (spec.md §6: "the same line is
// appended to <logdir><ckdb_name>.<rotating-date>"). It is grounded on
// chimera-pool-core/internal/database's append-and-rotate persistence
// shape, replacing its relational writes with the stratifier's flat
// event-log format.
type FileSink struct {
	logDir   string
	ckdbName string
	lock     *TimedMutex

	fileMu      sync.Mutex // guards currentDate/file against concurrent rotation
	currentDate string
	file        *os.File
}

// NewFileSink constructs a FileSink writing under logDir with the given
// base name (ckpool's ckdb_name, e.g. "ckpool").
func NewFileSink(logDir, ckdbName string) *FileSink {
	return &FileSink{
		logDir:   logDir,
		ckdbName: ckdbName,
		lock:     NewTimedMutex(),
	}
}

// Write serializes event's payload and appends one line to today's file,
// rotating if the date has changed since the last write. It waits up to
// LockTimeout to acquire the write lock, returning ErrTimeout on failure
// so the caller can decide whether to queue the event instead.
func (s *FileSink) Write(ctx context.Context, event Event) error {
	lockCtx, cancel := context.WithTimeout(ctx, LockTimeout)
	defer cancel()
	if err := s.lock.Lock(lockCtx); err != nil {
		return ErrTimeout
	}
	defer s.lock.Unlock()

	body, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("ckdb: marshal %s event: %w", event.IDName, err)
	}
	line := fmt.Sprintf("%s.%d.json=%s\n", event.IDName, event.ID, body)

	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if err := s.rotateIfNeeded(); err != nil {
		return err
	}
	_, err = s.file.WriteString(line)
	return err
}

func (s *FileSink) rotateIfNeeded() error {
	date := time.Now().UTC().Format("20060102")
	if date == s.currentDate && s.file != nil {
		return nil
	}
	if s.file != nil {
		s.file.Close()
	}
	if err := os.MkdirAll(s.logDir, 0o755); err != nil {
		return fmt.Errorf("ckdb: create log dir: %w", err)
	}
	path := filepath.Join(s.logDir, fmt.Sprintf("%s.%s", s.ckdbName, date))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ckdb: open %s: %w", path, err)
	}
	s.file = f
	s.currentDate = date
	return nil
}

// Close closes the current rotation's file handle, if any.
func (s *FileSink) Close() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}
