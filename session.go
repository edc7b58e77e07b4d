package ragtime

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/poiesic/ragtime/core"
	"github.com/poiesic/ragtime/history"
)

const sessionStripes = 64

// sessionLocks serializes exchanges within a session. Sessions hash onto
// a fixed set of mutexes so unrelated sessions rarely contend.
type sessionLocks struct {
	stripes [sessionStripes]sync.Mutex
}

func (l *sessionLocks) lock(sessionID string) func() {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	mu := &l.stripes[h.Sum32()%sessionStripes]
	mu.Lock()
	return mu.Unlock
}

// Chat answers question within a stored conversation. The window is read
// before asking and the question and answer are appended only after a
// successful answer, so failed requests leave the session untouched.
// Exchanges within one session are serialized.
func (p *Pipeline) Chat(ctx context.Context, store history.Store, sessionID, question string) (*core.Answer, error) {
	return p.ChatWithOptions(ctx, store, sessionID, question, AskOptions{})
}

// ChatWithOptions is Chat with per-call options.
func (p *Pipeline) ChatWithOptions(ctx context.Context, store history.Store, sessionID, question string, opts AskOptions) (*core.Answer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if sessionID == "" {
		return nil, core.InvalidInput("session", history.ErrSessionIDRequired)
	}

	unlock := p.sessions.lock(sessionID)
	defer unlock()

	turns, err := store.Snapshot(ctx, sessionID)
	if err != nil {
		p.logger.Error("failed to load session", "session", sessionID, "err", err)
		return nil, core.Upstream("session", err)
	}

	answer, err := p.AskWithOptions(ctx, question, turns, opts)
	if err != nil {
		return nil, err
	}

	err = store.Append(ctx, sessionID,
		core.Turn{Role: core.RoleUser, Content: question},
		core.Turn{Role: core.RoleAssistant, Content: answer.Answer},
	)
	if err != nil {
		// The answer is still valid; the exchange is just not remembered.
		p.logger.Warn("failed to record exchange", "session", sessionID, "err", err)
	}
	return answer, nil
}

// Session binds a pipeline to one conversation in a store.
type Session struct {
	id       string
	pipeline *Pipeline
	store    history.Store
}

// NewSession returns a session with a fresh id.
func (p *Pipeline) NewSession(store history.Store) *Session {
	return p.ResumeSession(store, history.NewSessionID())
}

// ResumeSession returns a handle on an existing conversation.
func (p *Pipeline) ResumeSession(store history.Store, id string) *Session {
	return &Session{id: id, pipeline: p, store: store}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Ask answers question in the context of this session.
func (s *Session) Ask(ctx context.Context, question string) (*core.Answer, error) {
	return s.pipeline.Chat(ctx, s.store, s.id, question)
}

// AskWithOptions answers question in the context of this session.
func (s *Session) AskWithOptions(ctx context.Context, question string, opts AskOptions) (*core.Answer, error) {
	return s.pipeline.ChatWithOptions(ctx, s.store, s.id, question, opts)
}

// History returns the remembered turns, oldest first.
func (s *Session) History(ctx context.Context) ([]core.Turn, error) {
	return s.store.Snapshot(ctx, s.id)
}

// Reset forgets the conversation.
func (s *Session) Reset(ctx context.Context) error {
	return s.store.Reset(ctx, s.id)
}
