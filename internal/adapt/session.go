package adapt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultHistoryLimit 是每个会话保留的消息数。
const DefaultHistoryLimit = 10

// SessionStore 保存每个会话有上限的对话历史。
type SessionStore interface {
	Load(ctx context.Context, sessionID string) ([]Message, error)
	Append(ctx context.Context, sessionID string, messages ...Message) error
	Clear(ctx context.Context, sessionID string) error
}

// RedisSessionStore 为每个会话在 Redis 中维护一个列表。
type RedisSessionStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, limit int, ttl time.Duration) *RedisSessionStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &RedisSessionStore{client: client, limit: limit, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("adapt_session:%s", id)
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) ([]Message, error) {
	raw, err := s.client.LRange(ctx, sessionKey(sessionID), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisSessionStore) Append(ctx context.Context, sessionID string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]any, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode session message: %w", err)
		}
		values = append(values, data)
	}

	key := sessionKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-s.limit), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}

// MemorySessionStore 是进程内的 SessionStore，最多保存
// maxSessions 个会话，超出时淘汰最久未使用的会话。
type MemorySessionStore struct {
	mu          sync.Mutex
	sessions    map[string]*memorySession
	limit       int
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
}

type memorySession struct {
	messages []Message
	touched  time.Time
}

func NewMemorySessionStore(limit, maxSessions int, ttl time.Duration) *MemorySessionStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	return &MemorySessionStore{
		sessions:    make(map[string]*memorySession),
		limit:       limit,
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

func (s *MemorySessionStore) Load(_ context.Context, sessionID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(sessionID)
	if !ok {
		return nil, nil
	}
	return append([]Message(nil), sess.messages...), nil
}

func (s *MemorySessionStore) Append(_ context.Context, sessionID string, messages ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.live(sessionID)
	if !ok {
		s.evictExpired()
		if len(s.sessions) >= s.maxSessions {
			s.evictOldest()
		}
		sess = &memorySession{}
		s.sessions[sessionID] = sess
	}
	sess.messages = append(sess.messages, messages...)
	if extra := len(sess.messages) - s.limit; extra > 0 {
		sess.messages = append([]Message(nil), sess.messages[extra:]...)
	}
	sess.touched = s.now()
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Len 返回当前保存的会话数，包括已过期的。
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) live(id string) (*memorySession, bool) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return nil, false
	}
	return sess, true
}

func (s *MemorySessionStore) expired(sess *memorySession) bool {
	return s.ttl > 0 && s.now().Sub(sess.touched) >= s.ttl
}

func (s *MemorySessionStore) evictExpired() {
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemorySessionStore) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if oldestID == "" || sess.touched.Before(oldest) {
			oldestID, oldest = id, sess.touched
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}
