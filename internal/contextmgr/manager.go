// Package contextmgr implements the ContextManager component of
// spec.md §4.2: session lifecycle, token-budget accounting, compression,
// recall, and the synthesis filter. Grounded on the teacher's
// internal/context package (manager.go's ContextLengthConfig shape and
// internal/agent/message.go's compression bookkeeping), generalized from
// the teacher's free-form summarization to the spec's exact
// placeholder/ROI/eviction algorithm.
package contextmgr

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"investigator/internal/errutil"
	"investigator/internal/events"
	"investigator/internal/storage"
	"investigator/internal/tokens"
	"investigator/pkg/types"
)

// Config is the tunable policy behind compression and eviction,
// defaulting to the constants spec.md §4.2 fixes.
type Config struct {
	Budget types.BudgetConfig

	MinTokensToCompress     int
	TriggerRatio            float64
	TargetRatio             float64
	ProtectedRecentMessages int
}

// DefaultConfig returns the policy spec.md §4.2 specifies.
func DefaultConfig() Config {
	return Config{
		Budget:                  types.DefaultBudgetConfig(),
		MinTokensToCompress:     200,
		TriggerRatio:            0.80,
		TargetRatio:             0.60,
		ProtectedRecentMessages: 4,
	}
}

// Pair is the (role, content) projection GetMessagesForLLM returns.
type Pair struct {
	Role    types.MessageRole
	Content string
}

// Manager owns the one live Session for a run and is the sole mutator
// of its messages and totals (pkg/types.Session's doc comment).
type Manager struct {
	store     *storage.Store
	estimator *tokens.Estimator
	bus       *events.Bus
	cfg       Config
	logger    zerolog.Logger

	session            *types.Session
	systemPromptTokens int
}

// NewManager wires a Manager from its collaborators.
func NewManager(store *storage.Store, estimator *tokens.Estimator, bus *events.Bus, cfg Config) *Manager {
	return &Manager{
		store:     store,
		estimator: estimator,
		bus:       bus,
		cfg:       cfg,
		logger:    log.With().Str("component", "contextmgr").Logger(),
	}
}

// InitSession creates a fresh session for query in workDir, with zero
// totals and a budget computed with systemPromptTokens = 0.
func (m *Manager) InitSession(query, workDir string) (*types.Session, error) {
	sess := &types.Session{
		ID:         uuid.NewString(),
		Query:      query,
		StartedAt:  time.Now(),
		WorkingDir: workDir,
		Storage:    types.NewSessionStorageRef(),
		Budget:     m.cfg.Budget,
		Logger:     log.With().Str("workingDir", workDir).Logger(),
	}
	if err := m.store.CreateSession(sess); err != nil {
		return nil, err
	}
	m.session = sess
	m.systemPromptTokens = 0
	return sess, nil
}

// Session returns the live session, or nil if none is active.
func (m *Manager) Session() *types.Session { return m.session }

// Budget returns the session's current derived budget state.
func (m *Manager) Budget() types.BudgetState {
	total := 0
	if m.session != nil {
		total = m.session.TotalTokens
	}
	return types.ComputeBudget(m.cfg.Budget, m.systemPromptTokens, total)
}

// SetSystemPromptTokens updates the budget breakdown's system-prompt
// share, recomputed as of the Investigator's/Synthesizer's next turn.
func (m *Manager) SetSystemPromptTokens(n int) {
	m.systemPromptTokens = n
}

// AddMessage allocates a fresh message, estimates its tokens, persists
// its original content if compressible, appends it to the session,
// updates totals, and runs compression synchronously if the budget's
// trigger ratio is now exceeded.
func (m *Manager) AddMessage(role types.MessageRole, content string, metadata types.MessageMetadata) (*types.Message, error) {
	if m.session == nil {
		return nil, errutil.New(errutil.KindNoSession, "no active session")
	}

	msg := &types.Message{
		Key:       newMessageKey(),
		Role:      role,
		Content:   content,
		Tokens:    m.estimator.EstimateMessage(content),
		Timestamp: time.Now(),
		Metadata:  metadata,
	}

	if isCompressible(msg, m.cfg.MinTokensToCompress) {
		path, err := m.store.SaveMessageContent(m.session.ID, msg)
		if err != nil {
			return nil, err
		}
		m.session.Storage.Messages[msg.Key] = path
	}

	m.session.Messages = append(m.session.Messages, msg)
	m.session.TotalTokens += msg.Tokens

	budget := m.Budget()
	if budget.Total > 0 && float64(budget.Used)/float64(budget.Total) >= m.cfg.TriggerRatio {
		m.compress()
	}

	if err := m.store.SaveSession(m.session); err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessagesForLLM projects the live, post-compression conversation
// into ordered (role, content) pairs.
func (m *Manager) GetMessagesForLLM() []Pair {
	if m.session == nil {
		return nil
	}
	pairs := make([]Pair, 0, len(m.session.Messages))
	for _, msg := range m.session.Messages {
		pairs = append(pairs, Pair{Role: msg.Role, Content: msg.Content})
	}
	return pairs
}

// Save persists the current session metadata.
func (m *Manager) Save() error {
	if m.session == nil {
		return errutil.New(errutil.KindNoSession, "no active session")
	}
	return m.store.SaveSession(m.session)
}

// SaveLLMTurn persists a debug record for one model interaction.
func (m *Manager) SaveLLMTurn(turn *types.LLMTurn) error {
	if m.session == nil {
		return errutil.New(errutil.KindNoSession, "no active session")
	}
	return m.store.SaveTurn(m.session.ID, turn)
}

// isCompressible reports whether msg is eligible for compression: not
// already compressed, not explicitly opted out, and either tool output
// or past the minimum token threshold.
func isCompressible(msg *types.Message, minTokens int) bool {
	if msg.Compressed {
		return false
	}
	if msg.Metadata.Compressible != nil && !*msg.Metadata.Compressible {
		return false
	}
	return msg.Metadata.ToolName != "" || msg.Tokens >= minTokens
}

// newMessageKey mints a msg_<8-char-opaque> key the same way the
// teacher mints its installation id: 4 random bytes, hex-encoded.
func newMessageKey() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "msg_" + uuid.NewString()[:8]
	}
	return "msg_" + hex.EncodeToString(buf)
}
