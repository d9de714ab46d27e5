// ABOUTME: JSON metadata index over session logs: titles, timestamps, turn counts.
// ABOUTME: The index is a cache; RebuildIndex reconstructs it from the logs.

package session

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Meta is one session's index entry.
type Meta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	TurnCount int       `json:"turnCount"`
}

type index struct {
	Sessions []*Meta `json:"sessions"`
}

func (s *Store) loadIndex() (*index, error) {
	data, err := os.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &index{}, nil
		}
		return nil, &StoreError{Op: "load_index", Err: err}
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		// A mangled index is rebuildable state, not data loss.
		log.Printf("component=session.store action=index_corrupt err=%v", err)
		return &index{}, nil
	}
	return &idx, nil
}

// saveIndex writes atomically via temp file + rename.
func (s *Store) saveIndex(idx *index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return &StoreError{Op: "save_index", Err: err}
	}
	tmp := s.indexPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &StoreError{Op: "save_index", Err: err}
	}
	if err := os.Rename(tmp, s.indexPath()); err != nil {
		return &StoreError{Op: "save_index", Err: err}
	}
	return nil
}

func (s *Store) upsertMeta(meta *Meta) error {
	s.imu.Lock()
	defer s.imu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return err
	}
	for i, m := range idx.Sessions {
		if m.ID == meta.ID {
			idx.Sessions[i] = meta
			return s.saveIndex(idx)
		}
	}
	idx.Sessions = append(idx.Sessions, meta)
	return s.saveIndex(idx)
}

func (s *Store) removeMeta(id string) error {
	s.imu.Lock()
	defer s.imu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return err
	}
	kept := idx.Sessions[:0]
	for _, m := range idx.Sessions {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	idx.Sessions = kept
	return s.saveIndex(idx)
}

// touch bumps a session's updated-at and turn count, creating the entry if
// the index has drifted behind the logs.
func (s *Store) touch(id string, turnDelta int) error {
	s.imu.Lock()
	defer s.imu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return err
	}
	for _, m := range idx.Sessions {
		if m.ID == id {
			m.UpdatedAt = time.Now().UTC()
			m.TurnCount += turnDelta
			return s.saveIndex(idx)
		}
	}
	idx.Sessions = append(idx.Sessions, &Meta{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		TurnCount: turnDelta,
	})
	return s.saveIndex(idx)
}

// ListSessions returns index entries ordered by updated-at descending.
func (s *Store) ListSessions() ([]*Meta, error) {
	s.imu.Lock()
	idx, err := s.loadIndex()
	s.imu.Unlock()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(idx.Sessions, func(i, j int) bool {
		return idx.Sessions[i].UpdatedAt.After(idx.Sessions[j].UpdatedAt)
	})
	return idx.Sessions, nil
}

// GetMeta returns the index entry for one session.
func (s *Store) GetMeta(id string) (*Meta, error) {
	s.imu.Lock()
	idx, err := s.loadIndex()
	s.imu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, m := range idx.Sessions {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, &StoreError{Op: "get_meta", SessionID: id, Err: ErrSessionNotFound}
}

// RebuildIndex reconstructs the index by scanning every session log.
// Timestamps come from the first and last parseable turns; file mtime is the
// fallback for empty logs.
func (s *Store) RebuildIndex() error {
	dir := filepath.Join(s.root, sessionsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &StoreError{Op: "rebuild_index", Err: err}
	}

	rebuilt := &index{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		id := strings.TrimSuffix(name, ".jsonl")
		turns, err := s.LoadTurns(id)
		if err != nil {
			log.Printf("component=session.store action=rebuild_skip session=%s err=%v", id, err)
			continue
		}

		meta := &Meta{ID: id, TurnCount: len(turns)}
		if len(turns) > 0 {
			meta.CreatedAt = turns[0].Timestamp
			meta.UpdatedAt = turns[len(turns)-1].Timestamp
			meta.Title = deriveTitle(turns)
		} else if info, err := e.Info(); err == nil {
			meta.CreatedAt = info.ModTime().UTC()
			meta.UpdatedAt = info.ModTime().UTC()
		}
		rebuilt.Sessions = append(rebuilt.Sessions, meta)
	}

	s.imu.Lock()
	defer s.imu.Unlock()
	return s.saveIndex(rebuilt)
}

// deriveTitle picks the first external user message, truncated to 50 chars.
func deriveTitle(turns []*Turn) string {
	for _, t := range turns {
		if t.Type == TurnUser && !t.IsSidechain {
			return TitleFromText(t.Message.Content)
		}
	}
	return ""
}

// TitleFromText derives a session title from a message: first line, max 50 runes.
func TitleFromText(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	runes := []rune(line)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return line
}
