package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Trim keeps the last n messages.
func Trim(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// HistoryStore keeps recent turns per chat session for clients that do not
// send their own history.
type HistoryStore interface {
	Load(ctx context.Context, session string) ([]Message, error)
	Append(ctx context.Context, session string, msgs ...Message) error
}

// RedisHistory stores each session as a capped Redis list under
// "<prefix><session>" that expires after ttl of inactivity.
type RedisHistory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	max    int
}

// NewRedisHistory creates a Redis-backed history. Prefix may be empty.
func NewRedisHistory(client *redis.Client, prefix string, ttl time.Duration, max int) *RedisHistory {
	if prefix == "" {
		prefix = "chat:history:"
	}
	if max <= 0 {
		max = 10
	}
	return &RedisHistory{client: client, prefix: prefix, ttl: ttl, max: max}
}

func (r *RedisHistory) key(session string) string {
	return r.prefix + session
}

func (r *RedisHistory) Load(ctx context.Context, session string) ([]Message, error) {
	raw, err := r.client.LRange(ctx, r.key(session), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RedisHistory) Append(ctx context.Context, session string, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	vals := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		b, err := json.Marshal(m)
		if err != nil {
			return err
		}
		vals = append(vals, b)
	}
	k := r.key(session)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, k, vals...)
	pipe.LTrim(ctx, k, int64(-r.max), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// MemoryHistory is the in-process HistoryStore used when Redis is absent.
type MemoryHistory struct {
	mu       sync.Mutex
	sessions map[string][]Message
	max      int
}

func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = 10
	}
	return &MemoryHistory{sessions: map[string][]Message{}, max: max}
}

func (m *MemoryHistory) Load(ctx context.Context, session string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sessions[session]...), nil
}

func (m *MemoryHistory) Append(ctx context.Context, session string, msgs ...Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session] = Trim(append(m.sessions[session], msgs...), m.max)
	return nil
}
