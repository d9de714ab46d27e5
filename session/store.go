// ABOUTME: Append-only JSONL session store under a .bytecraft data directory.
// ABOUTME: Every append is fsynced before the metadata index is updated.

package session

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// StoreError wraps a persistence failure with the operation and session.
type StoreError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *StoreError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("store: %s session=%s: %v", e.Op, e.SessionID, e.Err)
	}
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// ErrSessionNotFound is returned when a session id resolves to nothing.
var ErrSessionNotFound = errors.New("session not found")

const (
	sessionsDir     = "sessions"
	indexFile       = "index.json"
	lastSessionFile = "lastsession"

	// maxLineBytes bounds a single JSONL record when scanning logs.
	maxLineBytes = 4 * 1024 * 1024
)

// Store persists sessions as JSONL logs plus a JSON metadata index.
//
// Layout under root:
//
//	sessions/<id>.jsonl
//	sessions/index.json
//	lastsession
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// imu serializes index read-modify-write cycles.
	imu sync.Mutex
}

// NewStore opens (creating if needed) a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, sessionsDir), 0o755); err != nil {
		return nil, &StoreError{Op: "init", Err: err}
	}
	return &Store{root: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

func (s *Store) sessionPath(id string) string {
	return filepath.Join(s.root, sessionsDir, id+".jsonl")
}

func (s *Store) indexPath() string {
	return filepath.Join(s.root, sessionsDir, indexFile)
}

func (s *Store) lock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// CreateSession allocates a new session with an empty log.
func (s *Store) CreateSession(title string) (*Meta, error) {
	meta := &Meta{
		ID:        NewSessionID(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	f, err := os.OpenFile(s.sessionPath(meta.ID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &StoreError{Op: "create", SessionID: meta.ID, Err: err}
	}
	f.Close()

	if err := s.upsertMeta(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// AppendTurn serializes the turn, appends it to the session log, fsyncs,
// and then bumps the index entry. The write is durable before the index
// is touched, so a crash between the two leaves only index drift.
func (s *Store) AppendTurn(turn *Turn) error {
	if turn.SessionID == "" {
		return &StoreError{Op: "append", Err: errors.New("turn missing session id")}
	}

	l := s.lock(turn.SessionID)
	l.Lock()
	defer l.Unlock()

	data, err := json.Marshal(turn)
	if err != nil {
		return &StoreError{Op: "append", SessionID: turn.SessionID, Err: err}
	}

	f, err := os.OpenFile(s.sessionPath(turn.SessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &StoreError{Op: "append", SessionID: turn.SessionID, Err: err}
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return &StoreError{Op: "append", SessionID: turn.SessionID, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &StoreError{Op: "append", SessionID: turn.SessionID, Err: err}
	}

	if err := s.touch(turn.SessionID, 1); err != nil {
		log.Printf("component=session.store action=index_update_failed session=%s err=%v", turn.SessionID, err)
	}
	return nil
}

// LoadTurns reads every parseable turn from a session log in order.
// Unparsable lines (a torn trailing write, typically) are skipped with a log.
func (s *Store) LoadTurns(id string) ([]*Turn, error) {
	f, err := os.Open(s.sessionPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StoreError{Op: "load", SessionID: id, Err: ErrSessionNotFound}
		}
		return nil, &StoreError{Op: "load", SessionID: id, Err: err}
	}
	defer f.Close()

	var turns []*Turn
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var turn Turn
		if err := json.Unmarshal([]byte(line), &turn); err != nil {
			log.Printf("component=session.store action=skip_corrupt_line session=%s line=%d err=%v", id, lineNo, err)
			continue
		}
		turns = append(turns, &turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, &StoreError{Op: "load", SessionID: id, Err: err}
	}
	return turns, nil
}

// DeleteSession removes a session's log and index entry. Deleting a
// session that does not exist is a no-op.
func (s *Store) DeleteSession(id string) error {
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(s.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		return &StoreError{Op: "delete", SessionID: id, Err: err}
	}
	if err := s.removeMeta(id); err != nil {
		return err
	}
	if last, err := s.GetLastSession(); err == nil && last == id {
		os.Remove(filepath.Join(s.root, lastSessionFile))
	}
	return nil
}

// UpdateTitle sets a session's display title.
func (s *Store) UpdateTitle(id, title string) error {
	s.imu.Lock()
	defer s.imu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return err
	}
	for _, m := range idx.Sessions {
		if m.ID == id {
			m.Title = title
			m.UpdatedAt = time.Now().UTC()
			return s.saveIndex(idx)
		}
	}
	return &StoreError{Op: "update_title", SessionID: id, Err: ErrSessionNotFound}
}

// SetLastSession records the most recently active session id.
func (s *Store) SetLastSession(id string) error {
	path := filepath.Join(s.root, lastSessionFile)
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return &StoreError{Op: "set_last", SessionID: id, Err: err}
	}
	return nil
}

// GetLastSession returns the recorded last session id, or "" if none.
func (s *Store) GetLastSession() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, lastSessionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &StoreError{Op: "get_last", Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// Exists reports whether a session log is present on disk.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.sessionPath(id))
	return err == nil
}
