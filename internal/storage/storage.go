// Package storage implements the on-disk session layout described in
// spec.md §6: <base>/sessions/<sid>/{session.json, messages/<key>.json,
// turns/<agent>-<NNN>.json}. The teacher's own internal/context/storage
// package is an unrelated chromem/sqlite vector-embedding engine and
// contributes nothing here; this package's session/message/checkpoint
// operation shape instead follows the wider pack's
// (ff76f536_roelfdiedericks-goclaw) session Store interface
// (CreateSession/GetSession, AppendMessage, per-session lookups), and
// its atomic temp-file-plus-rename writes generalize
// dohr-michael-ozzie's internal/storage/dirstore.WriteMeta idiom (see
// DESIGN.md). Plain JSON files instead of SQLite since the core's
// storage need is small, append-mostly, and must stay human-inspectable
// for offline debugging (spec.md §3 "persists after the run for offline
// inspection").
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"investigator/internal/errutil"
	"investigator/pkg/types"
)

// Store is the on-disk session store.
type Store struct {
	baseDir string
	mu      sync.Mutex // serializes writes to a given session's turn counters
	turnSeq map[string]map[string]int
}

// New returns a Store rooted at baseDir/sessions.
func New(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		turnSeq: make(map[string]map[string]int),
	}
}

func (s *Store) sessionDir(sid string) string {
	return filepath.Join(s.baseDir, "sessions", sid)
}

func (s *Store) messagesDir(sid string) string {
	return filepath.Join(s.sessionDir(sid), "messages")
}

func (s *Store) turnsDir(sid string) string {
	return filepath.Join(s.sessionDir(sid), "turns")
}

// CreateSession initializes the on-disk layout for a new session and
// writes its initial metadata.
func (s *Store) CreateSession(sess *types.Session) error {
	if err := os.MkdirAll(s.messagesDir(sess.ID), 0o755); err != nil {
		return errutil.Wrap(errutil.KindStorage, err, "create messages dir")
	}
	if err := os.MkdirAll(s.turnsDir(sess.ID), 0o755); err != nil {
		return errutil.Wrap(errutil.KindStorage, err, "create turns dir")
	}
	return s.SaveSession(sess)
}

// SaveSession overwrites session.json with the current session
// metadata. Idempotent: safe to call repeatedly as the session evolves.
func (s *Store) SaveSession(sess *types.Session) error {
	path := filepath.Join(s.sessionDir(sess.ID), "session.json")
	return writeJSONAtomic(path, sess)
}

// persistedMessage is the on-disk shape of messages/<key>.json: the
// original, pre-compression content plus enough context to rehydrate a
// Message whose Compressed flag is false (spec.md §4.1).
type persistedMessage struct {
	Key       string                 `json:"key"`
	Role      types.MessageRole      `json:"role"`
	Content   string                 `json:"content"`
	Tokens    int                    `json:"tokens"`
	Timestamp string                 `json:"timestamp"`
	Metadata  types.MessageMetadata  `json:"metadata"`
}

// SaveMessageContent writes the original (pre-compression) content of
// msg to disk and returns the path it was written to. Must be called
// before the message's content is overwritten by compression.
func (s *Store) SaveMessageContent(sid string, msg *types.Message) (string, error) {
	if err := os.MkdirAll(s.messagesDir(sid), 0o755); err != nil {
		return "", errutil.Wrap(errutil.KindStorage, err, "create messages dir")
	}
	path := filepath.Join(s.messagesDir(sid), msg.Key+".json")
	pm := persistedMessage{
		Key:       msg.Key,
		Role:      msg.Role,
		Content:   msg.Content,
		Tokens:    msg.Tokens,
		Timestamp: msg.Timestamp.Format(time.RFC3339Nano),
		Metadata:  msg.Metadata,
	}
	if err := writeJSONAtomic(path, &pm); err != nil {
		return "", err
	}
	return path, nil
}

// LoadMessageContent reads back the original content of a previously
// saved message, returning a Message with Compressed left false.
func (s *Store) LoadMessageContent(sid, key string) (*types.Message, error) {
	path := filepath.Join(s.messagesDir(sid), key+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errutil.Newf(errutil.KindNotFound, "no stored original for message %s", key)
		}
		return nil, errutil.Wrap(errutil.KindStorage, err, "read message content")
	}
	var pm persistedMessage
	if err := json.Unmarshal(data, &pm); err != nil {
		return nil, errutil.Wrap(errutil.KindStorage, err, "decode message content")
	}
	ts, _ := time.Parse(time.RFC3339Nano, pm.Timestamp)
	return &types.Message{
		Key:       pm.Key,
		Role:      pm.Role,
		Content:   pm.Content,
		Tokens:    pm.Tokens,
		Timestamp: ts,
		Metadata:  pm.Metadata,
	}, nil
}

// SaveTurn persists a debug record for one LLM turn under
// turns/<agent>-<NNN>.json, zero-padded to 3 digits so turns sort
// lexically in iteration order within an agent.
func (s *Store) SaveTurn(sid string, turn *types.LLMTurn) error {
	s.mu.Lock()
	if _, ok := s.turnSeq[sid]; !ok {
		s.turnSeq[sid] = make(map[string]int)
	}
	s.turnSeq[sid][turn.Agent]++
	seq := s.turnSeq[sid][turn.Agent]
	s.mu.Unlock()

	if err := os.MkdirAll(s.turnsDir(sid), 0o755); err != nil {
		return errutil.Wrap(errutil.KindStorage, err, "create turns dir")
	}
	name := fmt.Sprintf("%s-%03d.json", turn.Agent, seq)
	path := filepath.Join(s.turnsDir(sid), name)
	return writeJSONAtomic(path, turn)
}

// writeJSONAtomic marshals v and writes it to path via a temp file plus
// rename, so a crash mid-write never leaves a corrupt session file
// behind (spec.md §4.1: "storage errors never corrupt in-memory state").
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errutil.Wrap(errutil.KindStorage, err, "marshal")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errutil.Wrap(errutil.KindStorage, err, "mkdir")
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errutil.Wrap(errutil.KindStorage, err, "create temp file")
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errutil.Wrap(errutil.KindStorage, err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errutil.Wrap(errutil.KindStorage, err, "close temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "rename temp file into place")
	}
	return nil
}
