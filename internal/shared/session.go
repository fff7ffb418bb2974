package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionHeader lets non-browser RPC clients present a session without cookies.
const SessionHeader = "X-Session-ID"

// SessionManager reads sessions issued by the auth provider from Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
}

// Session holds the identity attached to a request.
type Session struct {
	ID     string
	userID string
	values map[string]string
}

type sessionPayload struct {
	Values map[string]string `json:"values"`
	UserID string            `json:"user_id"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl}
}

// Load resolves the request session. Requests without a known session get an
// anonymous session with an empty user.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	id := sm.sessionID(r)
	if id == "" {
		return &Session{}, nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &Session{ID: id}, nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}
	if sm.ttl > 0 {
		_ = sm.client.Expire(ctx, sm.redisKey(id), sm.ttl).Err()
	}
	return &Session{ID: id, userID: stored.UserID, values: stored.Values}, nil
}

// Issue stores a new session for userID and returns it. The auth provider owns
// this in production; seeding and tests use it directly.
func (sm *SessionManager) Issue(ctx context.Context, userID string) (*Session, error) {
	sess := &Session{ID: uuid.NewString(), userID: userID, values: map[string]string{}}
	data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: userID})
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

// NewSession builds an in-memory session for userID without touching Redis.
func NewSession(id, userID string) *Session {
	return &Session{ID: id, userID: userID, values: map[string]string{}}
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// User returns the current user ID.
func (s *Session) User() string {
	if s == nil {
		return ""
	}
	return s.userID
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s == nil || s.values == nil {
		return ""
	}
	return s.values[key]
}

func (sm *SessionManager) sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(sm.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(r.Header.Get(SessionHeader))
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}
