package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/infrastructure/redis"
	"github.com/jobcatcher/console/internal/protocol"
)

const (
	sessionLifetime   = 1 * time.Hour
	maxHistoryEntries = 10

	storeKeyPrefix = "console:session:"
)

// SessionClaims bind a signed cookie to a conversation.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// State is the persistable snapshot of one conversation.
type State struct {
	SessionID      string                     `json:"session_id"`
	History        []protocol.HistoryEntry    `json:"history,omitempty"`
	ResumeUploaded bool                       `json:"resume_uploaded,omitempty"`
	Attachment     *protocol.Document         `json:"attachment,omitempty"`
	ToolResults    map[string]json.RawMessage `json:"tool_results,omitempty"`
}

type Store interface {
	Set(ctx context.Context, sessionID string, state *State) error
	Get(ctx context.Context, sessionID string) (*State, error)
	Delete(ctx context.Context, sessionID string) error
}

type RedisStore struct {
	redisService *redis.Service
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	state   *State
	expires time.Time
}

// RemoteCleaner tears down conversation state held by the backend.
type RemoteCleaner interface {
	DeleteSession(ctx context.Context, sessionID string) error
}

// Service hands out conversations. Live instances are shared: while a
// websocket holds a session, an upload for the same id must land on the
// very same instance, so Acquire returns the live one when it exists
// and only then falls back to the store.
type Service struct {
	store  Store
	remote RemoteCleaner

	liveMu sync.Mutex
	live   map[string]*liveEntry
}

type liveEntry struct {
	sess *Session
	refs int
}

// NewService selects the session store. Redis is preferred when the
// connection is healthy, otherwise state lives in process memory. The
// remote cleaner may be nil; Clear then skips backend teardown.
func NewService(redisService *redis.Service, remote RemoteCleaner) *Service {

	var store Store
	if redisService != nil {

		// Test Redis connection
		ctx := context.Background()
		if err := redisService.Ping(ctx); err != nil {
			store = newMemoryStore()
		} else {
			store = &RedisStore{redisService: redisService}
		}
	} else {
		store = newMemoryStore()
	}

	return &Service{
		store:  store,
		remote: remote,
		live:   make(map[string]*liveEntry),
	}
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
	}
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, sessionID string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return rs.redisService.Set(ctx, storeKeyPrefix+sessionID, string(data), sessionLifetime)
}

func (rs *RedisStore) Get(ctx context.Context, sessionID string) (*State, error) {
	data, err := rs.redisService.Get(ctx, storeKeyPrefix+sessionID)
	if err != nil || data == "" {
		return nil, err
	}

	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (rs *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return rs.redisService.Delete(ctx, storeKeyPrefix+sessionID)
}

// Memory Store implementation
func (ms *MemoryStore) Set(ctx context.Context, sessionID string, state *State) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[sessionID] = memoryEntry{state: state, expires: time.Now().Add(sessionLifetime)}
	return nil
}

func (ms *MemoryStore) Get(ctx context.Context, sessionID string) (*State, error) {
	ms.mu.RLock()
	entry, exists := ms.sessions[sessionID]
	ms.mu.RUnlock()
	if !exists {
		return nil, nil
	}
	if time.Now().After(entry.expires) {
		ms.mu.Lock()
		delete(ms.sessions, sessionID)
		ms.mu.Unlock()
		return nil, nil
	}
	return entry.state, nil
}

func (ms *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, sessionID)
	return nil
}

// Acquire returns the conversation the id points at: the live instance
// when one is held elsewhere, a store restore otherwise, or a fresh
// conversation when the id is empty or unknown. Callers pair every
// Acquire with a Release.
func (s *Service) Acquire(ctx context.Context, sessionID string) *Session {
	if sessionID != "" {
		s.liveMu.Lock()
		if entry, ok := s.live[sessionID]; ok {
			entry.refs++
			s.liveMu.Unlock()
			log.Debug().Str("session_id", sessionID).Msg("Joined live session")
			return entry.sess
		}
		s.liveMu.Unlock()

		state, err := s.store.Get(ctx, sessionID)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Session lookup failed, starting fresh")
		}
		if state != nil {
			log.Info().Str("session_id", sessionID).Msg("Resumed existing session")
			return s.register(restoreSession(state))
		}
	}

	sess := newSession()
	log.Info().Str("session_id", sess.ID()).Msg("Started new session")
	return s.register(sess)
}

// Release persists the session and drops the live reference taken by
// Acquire.
func (s *Service) Release(ctx context.Context, sess *Session) {
	s.Save(ctx, sess)

	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	id := sess.ID()
	entry, ok := s.live[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.live, id)
	}
}

func (s *Service) register(sess *Session) *Session {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	s.live[sess.ID()] = &liveEntry{sess: sess, refs: 1}
	return sess
}

func (s *Service) rekey(old, current string) {
	if old == current {
		return
	}
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if entry, ok := s.live[old]; ok {
		delete(s.live, old)
		s.live[current] = entry
	}
}

// AdoptID switches the conversation to a backend-assigned id, keeping
// the live registry consistent.
func (s *Service) AdoptID(sess *Session, id string) {
	if id == "" {
		return
	}
	old := sess.ID()
	sess.SetID(id)
	s.rekey(old, id)
}

// Save persists the session snapshot so a reconnect within the cookie
// lifetime can resume it.
func (s *Service) Save(ctx context.Context, sess *Session) {
	state := sess.snapshot()
	if err := s.store.Set(ctx, state.SessionID, state); err != nil {
		log.Warn().Err(err).Str("session_id", state.SessionID).Msg("Failed to persist session state")
	}
}

// Clear resets the conversation. Local state is wiped unconditionally
// and the session gets a fresh id; store and backend teardown are best
// effort and never surface to the caller.
func (s *Service) Clear(ctx context.Context, sess *Session) {
	old := sess.Reset()
	s.rekey(old, sess.ID())

	if err := s.store.Delete(ctx, old); err != nil {
		log.Warn().Err(err).Str("session_id", old).Msg("Failed to drop stored session state")
	}

	if s.remote != nil {
		if err := s.remote.DeleteSession(ctx, old); err != nil {
			log.Warn().Err(err).Str("session_id", old).Msg("Backend session teardown failed")
		}
	}

	log.Info().Str("old_session_id", old).Str("session_id", sess.ID()).Msg("Session cleared")
}

// IssueCookie signs a session cookie for the given conversation id.
// Websocket handshakes attach it to the upgrade response headers.
func (s *Service) IssueCookie(sessionID string) (*http.Cookie, error) {
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        sessionID,
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetJWTSecret())
	if err != nil {
		return nil, err
	}

	return &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sessionLifetime),
	}, nil
}

// CookieSessionID extracts the conversation id from a valid session
// cookie. Absent, expired or tampered cookies yield the empty string;
// the caller starts a fresh conversation in that case.
func (s *Service) CookieSessionID(r *http.Request) string {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if err != nil {
		return ""
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetJWTSecret(), nil
	})
	if err != nil {
		log.Debug().Err(err).Msg("Rejected session cookie")
		return ""
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims.SessionID
	}

	return ""
}
