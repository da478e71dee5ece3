package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionContext 服务端保存的浏览器会话
type SessionContext struct {
	ID              string    `json:"id"`
	User            Identity  `json:"user"`
	IsAuthenticated bool      `json:"is_authenticated"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Identity returns the session user tagged with session provenance, or nil
// when the session carries no login.
func (s *SessionContext) Identity() *Identity {
	if s == nil || !s.IsAuthenticated {
		return nil
	}
	id := s.User
	id.Provenance = ProvenanceSession
	return &id
}

type SessionStore interface {
	Save(ctx context.Context, s *SessionContext) error
	// Get returns ErrSessionNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*SessionContext, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore 进程内会话存储，重启即失效
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionContext
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*SessionContext), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, s *SessionContext) error {
	cp := *s
	m.mu.Lock()
	m.sessions[s.ID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*SessionContext, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper 周期清理过期会话，直到 ctx 结束
func (m *MemoryStore) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

const redisSessionPrefix = "travel:session:"

// RedisStore keeps sessions as JSON values that expire with the session.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (r *RedisStore) Save(ctx context.Context, s *SessionContext) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, redisSessionPrefix+s.ID, b, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*SessionContext, error) {
	b, err := r.rdb.Get(ctx, redisSessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var s SessionContext
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, redisSessionPrefix+id).Err()
}

// SessionManager owns the session lifecycle: Create on login, Load per
// request, Destroy on logout.
type SessionManager struct {
	store SessionStore
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionManager(store SessionStore, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{store: store, ttl: ttl, now: time.Now}
}

// Create 为登录成功的用户写入新会话，会话 id 为随机 uuid
func (m *SessionManager) Create(ctx context.Context, user Identity) (*SessionContext, error) {
	now := m.now()
	user.Provenance = ProvenanceSession
	s := &SessionContext{
		ID:              uuid.NewString(),
		User:            user,
		IsAuthenticated: true,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

func (m *SessionManager) Load(ctx context.Context, id string) (*SessionContext, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(ctx, id)
}

func (m *SessionManager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

func (m *SessionManager) TTL() time.Duration { return m.ttl }
