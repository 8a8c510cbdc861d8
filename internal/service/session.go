package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/domain"
	"github.com/Shalev-CompBio/mpv-clinical-demo/internal/scoring"
)

// Session is one interactive question-and-answer consultation. Answers are
// three-valued: yes feeds the observed set, no feeds the excluded set, and
// unknown only suppresses re-asking without influencing any score.
type Session struct {
	mu        sync.RWMutex
	id        string
	answers   map[domain.PhenotypeID]domain.Answer
	unmatched []string
	history   []AnswerEvent
	createdAt time.Time
	updatedAt time.Time

	subscribers map[int]chan SessionEvent
	nextSubID   int
}

// AnswerEvent is one recorded step of the session history.
type AnswerEvent struct {
	Input       string             `json:"input"`
	PhenotypeID domain.PhenotypeID `json:"phenotype_id,omitempty"`
	Answer      domain.Answer      `json:"answer"`
	Matched     bool               `json:"matched"`
	At          time.Time          `json:"at"`
}

// SessionEvent is pushed to stream subscribers after every state change.
type SessionEvent struct {
	SessionID    string                      `json:"session_id"`
	Event        AnswerEvent                 `json:"event"`
	Result       *domain.QueryResult         `json:"result,omitempty"`
	NextQuestion *domain.PhenotypePrediction `json:"next_question,omitempty"`
}

// SessionState is the serializable view of a session.
type SessionState struct {
	ID        string        `json:"id"`
	Observed  []string      `json:"observed"`
	Excluded  []string      `json:"excluded"`
	Unknown   []string      `json:"unknown"`
	Unmatched []string      `json:"unmatched,omitempty"`
	History   []AnswerEvent `json:"history"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		id:          uuid.NewString(),
		answers:     make(map[domain.PhenotypeID]domain.Answer),
		createdAt:   now,
		updatedAt:   now,
		subscribers: make(map[int]chan SessionEvent),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// apply stores a resolved or unmatched answer.
func (s *Session) apply(event AnswerEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Matched {
		s.answers[event.PhenotypeID] = event.Answer
	} else {
		s.unmatched = append(s.unmatched, event.Input)
	}
	s.history = append(s.history, event)
	s.updatedAt = event.At
}

// reset clears every answer while keeping the session alive.
func (s *Session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = make(map[domain.PhenotypeID]domain.Answer)
	s.unmatched = nil
	s.history = nil
	s.updatedAt = time.Now()
}

// publish notifies every stream subscriber. The sends happen under the read
// lock: Subscribe's cancel closes channels under the write lock, so a send
// can never race a concurrent close.
func (s *Session) publish(msg SessionEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			// Slow subscriber; drop rather than block the answer path.
		}
	}
}

// inputs splits the recorded answers into observed and excluded identifier
// lists. Unknown answers appear in neither.
func (s *Session) inputs() (observed, excluded []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, answer := range s.answers {
		switch answer {
		case domain.AnswerYes:
			observed = append(observed, string(id))
		case domain.AnswerNo:
			excluded = append(excluded, string(id))
		}
	}
	return observed, excluded
}

// asked reports whether a phenotype already has any answer, including
// unknown.
func (s *Session) asked(id domain.PhenotypeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.answers[id]
	return ok
}

// State returns a snapshot of the session.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := SessionState{
		ID:        s.id,
		Observed:  []string{},
		Excluded:  []string{},
		Unknown:   []string{},
		Unmatched: append([]string(nil), s.unmatched...),
		History:   append([]AnswerEvent(nil), s.history...),
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	for id, answer := range s.answers {
		switch answer {
		case domain.AnswerYes:
			state.Observed = append(state.Observed, string(id))
		case domain.AnswerNo:
			state.Excluded = append(state.Excluded, string(id))
		case domain.AnswerUnknown:
			state.Unknown = append(state.Unknown, string(id))
		}
	}
	sort.Strings(state.Observed)
	sort.Strings(state.Excluded)
	sort.Strings(state.Unknown)
	return state
}

// Subscribe registers a stream subscriber. The returned cancel function must
// be called when the subscriber goes away.
func (s *Session) Subscribe() (<-chan SessionEvent, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan SessionEvent, 16)
	s.subscribers[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

// SessionManager owns the live sessions and drives the engine on their
// behalf.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	engine   *Engine
	logger   *logrus.Logger
}

// NewSessionManager creates an empty manager over the given engine.
func NewSessionManager(engine *Engine, logger *logrus.Logger) *SessionManager {
	if logger == nil {
		logger = logrus.New()
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		engine:   engine,
		logger:   logger,
	}
}

// maxSessions bounds the in-memory session registry.
const maxSessions = 1024

// Create starts a new session. The registry is bounded; callers must retire
// sessions with Delete.
func (m *SessionManager) Create() (*Session, error) {
	m.mu.Lock()
	if len(m.sessions) >= maxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("session limit reached (%d)", maxSessions)
	}
	session := newSession()
	m.sessions[session.id] = session
	m.mu.Unlock()

	m.logger.WithField("session_id", session.id).Info("Session created")
	return session, nil
}

// Reset clears every answer of a session while keeping it alive.
func (m *SessionManager) Reset(id string) bool {
	session, ok := m.Get(id)
	if !ok {
		return false
	}
	session.reset()
	return true
}

// Get returns a session by id.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Delete removes a session.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	delete(m.sessions, id)
	return true
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Answer records one phenotype answer on a session, pushes the updated
// result and next question to stream subscribers, and returns the result.
// Unresolvable inputs are recorded as unmatched and the session continues;
// they never abort the consultation.
func (m *SessionManager) Answer(ctx context.Context, sessionID, input string, answer domain.Answer) (*domain.QueryResult, error) {
	session, ok := m.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}

	event := AnswerEvent{Input: input, Answer: answer, At: time.Now()}
	if id, resolved := m.engine.provider.ResolvePhenotype(input); resolved {
		event.PhenotypeID = id
		event.Matched = true
	}
	session.apply(event)

	result, err := m.Result(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := m.Next(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.publish(SessionEvent{
		SessionID:    sessionID,
		Event:        event,
		Result:       result,
		NextQuestion: next,
	})
	return result, nil
}

// Result computes the current query result of a session.
func (m *SessionManager) Result(ctx context.Context, sessionID string) (*domain.QueryResult, error) {
	session, ok := m.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}
	observed, excluded := session.inputs()
	return m.engine.Query(ctx, QueryParams{Observed: observed, Excluded: excluded})
}

// Next returns the most discriminative unanswered question for a session.
// Phenotypes answered unknown are never suggested again. A nil prediction
// means no further question is available.
func (m *SessionManager) Next(ctx context.Context, sessionID string) (*domain.PhenotypePrediction, error) {
	session, ok := m.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %q not found", sessionID)
	}

	observed, excluded := session.inputs()
	observedSet, excludedSet, _ := m.engine.ResolveInputs(observed, excluded)
	ranking := m.engine.scorer.RankModules(observedSet, excludedSet)

	// Mask unknown-answered phenotypes by treating them as already asked.
	asked := scoringSetUnion(observedSet, excludedSet)
	session.mu.RLock()
	for id, answer := range session.answers {
		if answer == domain.AnswerUnknown {
			asked[id] = struct{}{}
		}
	}
	session.mu.RUnlock()

	return m.engine.predictor.SuggestNextQuestion(ranking, asked, nil)
}

// scoringSetUnion merges two phenotype sets into a fresh one.
func scoringSetUnion(a, b scoring.PhenotypeSet) scoring.PhenotypeSet {
	out := make(scoring.PhenotypeSet, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}
