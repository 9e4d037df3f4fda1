package services

import (
	"errors"
	"sync"
	"time"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

// ErrSessionNotFound is returned for operations on an unknown session
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is the in-memory registry of honeypot conversations.
//
// The store-wide lock only guards the id -> entry map. Each entry has its own
// lock that serialises every read and write of that session, so traffic on
// different sessions never contends. Callers only ever see deep copies.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	logger   *logger.Logger
	now      func() time.Time
}

type sessionEntry struct {
	mu      sync.Mutex
	session models.Session
}

// NewSessionStore creates an empty session store
func NewSessionStore(log *logger.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		logger:   log.WithComponent("session-store"),
		now:      time.Now,
	}
}

// entry returns the entry for id, creating it on first sight
func (s *SessionStore) entry(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		now := s.now().UTC()
		e = &sessionEntry{session: models.Session{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		}}
		s.sessions[id] = e
		s.logger.Debug().Str("session_id", id).Msg("session created")
	}
	return e
}

func (s *SessionStore) lookup(id string) (*sessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

// update runs fn on the live session under its lock
func (s *SessionStore) update(id string, fn func(*models.Session)) {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.session)
	e.session.UpdatedAt = s.now().UTC()
}

// GetOrCreate returns a snapshot of the session, creating it if needed
func (s *SessionStore) GetOrCreate(id string) models.Session {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// Snapshot returns a deep copy of an existing session
func (s *SessionStore) Snapshot(id string) (models.Session, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return models.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), true
}

// ReplaceHistory sets the conversation to exactly turns. The platform's
// replay is the source of truth for the message count.
func (s *SessionStore) ReplaceHistory(id string, turns []models.Turn) {
	history := make([]models.Turn, len(turns))
	copy(history, turns)

	s.update(id, func(sess *models.Session) {
		sess.History = history
		sess.TotalMessages = len(history)
	})
}

// MergeIntel folds intel into the session and reports whether anything new
// was added. Merging the same intel twice is a no-op.
func (s *SessionStore) MergeIntel(id string, intel models.ExtractedIntel) bool {
	var changed bool
	s.update(id, func(sess *models.Session) {
		changed = sess.Extracted.Merge(intel)
	})
	return changed
}

// MergeKeywords adds suspicious keywords to the session
func (s *SessionStore) MergeKeywords(id string, keywords []string) bool {
	var changed bool
	s.update(id, func(sess *models.Session) {
		sess.SuspiciousKeywords, changed = models.UnionStrings(sess.SuspiciousKeywords, keywords)
	})
	return changed
}

// MarkScamDetected latches the scam flag; it is never cleared
func (s *SessionStore) MarkScamDetected(id string) {
	s.update(id, func(sess *models.Session) {
		sess.ScamDetected = true
	})
}

// SetPersona records the persona the decoy is playing
func (s *SessionStore) SetPersona(id, persona string) {
	s.update(id, func(sess *models.Session) {
		sess.Persona = persona
	})
}

// HasReportableIntel reports whether the session holds anything worth reporting
func (s *SessionStore) HasReportableIntel(id string) bool {
	snap, ok := s.Snapshot(id)
	return ok && snap.HasReportableIntel()
}

// ClaimCallback reserves the single report for a session. It succeeds at most
// once per session, and only when ready (if given) accepts the current state;
// the check and the claim happen under the same lock. The returned snapshot
// is what should be reported.
func (s *SessionStore) ClaimCallback(id string, ready func(models.Session) bool) (models.Session, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return models.Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.CallbackSent || e.session.CallbackClaimed {
		return models.Session{}, false
	}
	if ready != nil && !ready(e.session) {
		return models.Session{}, false
	}
	e.session.CallbackClaimed = true
	e.session.UpdatedAt = s.now().UTC()
	return e.session.Clone(), true
}

// ReleaseCallback gives back a claim whose report was never handed to the
// dispatcher. Delivered sessions keep their claim.
func (s *SessionStore) ReleaseCallback(id string) bool {
	e, ok := s.lookup(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.CallbackSent || !e.session.CallbackClaimed {
		return false
	}
	e.session.CallbackClaimed = false
	e.session.UpdatedAt = s.now().UTC()
	return true
}

// MarkCallbackSent records a successful delivery
func (s *SessionStore) MarkCallbackSent(id string) error {
	e, ok := s.lookup(id)
	if !ok {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.CallbackSent = true
	e.session.UpdatedAt = s.now().UTC()
	return nil
}

// Len returns the number of sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
