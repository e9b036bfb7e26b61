package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	domain "github.com/ventia/api/internal/domain"
)

const (
	sessionKeyPrefix = "session:"
	scriptKeyPrefix  = "guion_session:"

	// DefaultSessionTTL matches the conversational attention span: state
	// older than this is considered stale and rebuilt fresh.
	DefaultSessionTTL = 30 * time.Minute
)

// ErrSessionIDRequired indicates a call without a session identifier.
var ErrSessionIDRequired = errors.New("session service: session id is required")

// RedisSessionDeps bundles constructor inputs for the redis session store.
type RedisSessionDeps struct {
	Client *redis.Client
	TTL    time.Duration
	Clock  func() time.Time
}

type redisSessionService struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
}

// NewRedisSessionService constructs the redis-backed session store.
func NewRedisSessionService(deps RedisSessionDeps) (SessionService, error) {
	if deps.Client == nil {
		return nil, errors.New("session service: redis client is required")
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &redisSessionService{client: deps.Client, ttl: ttl, clock: clock}, nil
}

// Get returns the session or nil when absent. A payload that no longer
// parses counts as a miss so a corrupt entry never wedges the conversation.
func (s *redisSessionService) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session service: get %s: %w", sessionID, err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, nil
	}
	return &session, nil
}

func (s *redisSessionService) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return ErrSessionIDRequired
	}
	session.UpdatedAt = s.clock().UTC()

	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session service: encode %s: %w", session.ID, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session service: save %s: %w", session.ID, err)
	}
	return nil
}

func (s *redisSessionService) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("session service: delete %s: %w", sessionID, err)
	}
	return nil
}

func (s *redisSessionService) ExtendTTL(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if err := s.client.Expire(ctx, sessionKeyPrefix+sessionID, s.ttl).Err(); err != nil {
		return fmt.Errorf("session service: extend %s: %w", sessionID, err)
	}
	return nil
}

func (s *redisSessionService) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("session service: count: %w", err)
		}
		count += len(keys)
		if next == 0 {
			return count, nil
		}
		cursor = next
	}
}

func (s *redisSessionService) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session service: ping: %w", err)
	}
	return nil
}

func (s *redisSessionService) GetScript(ctx context.Context, sessionID string) (*domain.ScriptSession, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	raw, err := s.client.Get(ctx, scriptKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session service: get script %s: %w", sessionID, err)
	}

	var script domain.ScriptSession
	if err := json.Unmarshal(raw, &script); err != nil {
		return nil, nil
	}
	return &script, nil
}

func (s *redisSessionService) SaveScript(ctx context.Context, script *domain.ScriptSession) error {
	if script == nil || script.SessionID == "" {
		return ErrSessionIDRequired
	}

	raw, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("session service: encode script %s: %w", script.SessionID, err)
	}
	if err := s.client.Set(ctx, scriptKeyPrefix+script.SessionID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session service: save script %s: %w", script.SessionID, err)
	}
	return nil
}

func (s *redisSessionService) DeleteScript(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	if err := s.client.Del(ctx, scriptKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("session service: delete script %s: %w", sessionID, err)
	}
	return nil
}

// memorySessionService is the development fallback used when redis is not
// configured. Not intended for production.
type memorySessionService struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    func() time.Time
	sessions map[string]memoryEntry
	scripts  map[string]memoryEntry
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemorySessionService constructs the in-process session store.
func NewMemorySessionService(ttl time.Duration, clock func() time.Time) SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &memorySessionService{
		ttl:      ttl,
		clock:    clock,
		sessions: map[string]memoryEntry{},
		scripts:  map[string]memoryEntry{},
	}
}

func (s *memorySessionService) get(store map[string]memoryEntry, key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := store[key]
	if !ok {
		return nil
	}
	if s.clock().After(entry.expiresAt) {
		delete(store, key)
		return nil
	}
	return entry.payload
}

func (s *memorySessionService) set(store map[string]memoryEntry, key string, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store[key] = memoryEntry{payload: payload, expiresAt: s.clock().Add(s.ttl)}
}

func (s *memorySessionService) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	raw := s.get(s.sessions, sessionID)
	if raw == nil {
		return nil, nil
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, nil
	}
	return &session, nil
}

func (s *memorySessionService) Save(_ context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return ErrSessionIDRequired
	}
	session.UpdatedAt = s.clock().UTC()
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session service: encode %s: %w", session.ID, err)
	}
	s.set(s.sessions, session.ID, raw)
	return nil
}

func (s *memorySessionService) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *memorySessionService) ExtendTTL(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.sessions[sessionID]; ok {
		entry.expiresAt = s.clock().Add(s.ttl)
		s.sessions[sessionID] = entry
	}
	return nil
}

func (s *memorySessionService) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	count := 0
	for key, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, key)
			continue
		}
		count++
	}
	return count, nil
}

func (s *memorySessionService) Ping(context.Context) error { return nil }

func (s *memorySessionService) GetScript(_ context.Context, sessionID string) (*domain.ScriptSession, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	raw := s.get(s.scripts, sessionID)
	if raw == nil {
		return nil, nil
	}
	var script domain.ScriptSession
	if err := json.Unmarshal(raw, &script); err != nil {
		return nil, nil
	}
	return &script, nil
}

func (s *memorySessionService) SaveScript(_ context.Context, script *domain.ScriptSession) error {
	if script == nil || script.SessionID == "" {
		return ErrSessionIDRequired
	}
	raw, err := json.Marshal(script)
	if err != nil {
		return fmt.Errorf("session service: encode script %s: %w", script.SessionID, err)
	}
	s.set(s.scripts, script.SessionID, raw)
	return nil
}

func (s *memorySessionService) DeleteScript(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scripts, sessionID)
	return nil
}
