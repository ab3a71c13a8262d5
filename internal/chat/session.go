package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Step is the position of a chat session in the amount capture flow.
type Step string

const (
	StepIdle           Step = "idle"
	StepAwaitingAmount Step = "awaiting_amount"
)

// AmountKind names what a captured amount is for.
type AmountKind string

const (
	AmountDeposit  AmountKind = "deposit"
	AmountWithdraw AmountKind = "withdraw"
)

// Session is the per-user conversation state. The zero value is idle.
type Session struct {
	Step Step       `json:"step"`
	Kind AmountKind `json:"kind,omitempty"`
}

func (s Session) Idle() bool {
	return s.Step == "" || s.Step == StepIdle
}

// Awaiting returns the kind of amount the session is waiting for, if any.
func (s Session) Awaiting() (AmountKind, bool) {
	if s.Step != StepAwaitingAmount {
		return "", false
	}

	return s.Kind, true
}

// AwaitAmount moves an idle session into amount capture. A session already waiting is
// re-targeted at kind.
func AwaitAmount(kind AmountKind) Session {
	return Session{Step: StepAwaitingAmount, Kind: kind}
}

// SessionStore persists sessions. Load returns an idle session when none is stored or the
// stored one timed out. Saving an idle session deletes it.
type SessionStore interface {
	Load(ctx context.Context, userID uint64) (Session, error)
	Save(ctx context.Context, userID uint64, s Session) error
}

const sessionKeyPrefix = "casino:chat:session:"

// RedisSessions keeps sessions in Redis with a TTL that restarts on every save.
type RedisSessions struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessions(rdb redis.Cmdable, ttl time.Duration) *RedisSessions {
	return &RedisSessions{rdb: rdb, ttl: ttl}
}

func sessionKey(userID uint64) string {
	return sessionKeyPrefix + strconv.FormatUint(userID, 10)
}

func (r *RedisSessions) Load(ctx context.Context, userID uint64) (Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{Step: StepIdle}, nil
		}

		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var s Session

	err = json.Unmarshal(raw, &s)
	if err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}

	return s, nil
}

func (r *RedisSessions) Save(ctx context.Context, userID uint64, s Session) error {
	if s.Idle() {
		err := r.rdb.Del(ctx, sessionKey(userID)).Err()
		if err != nil {
			return fmt.Errorf("clear session: %w", err)
		}

		return nil
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	err = r.rdb.Set(ctx, sessionKey(userID), raw, r.ttl).Err()
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// MemorySessions is a process-local SessionStore for runs without Redis.
type MemorySessions struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[uint64]memSession
}

type memSession struct {
	s       Session
	expires time.Time
}

func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{ttl: ttl, now: time.Now, sessions: make(map[uint64]memSession)}
}

func (m *MemorySessions) Load(_ context.Context, userID uint64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.sessions[userID]
	if !ok {
		return Session{Step: StepIdle}, nil
	}

	if m.ttl > 0 && !m.now().Before(ms.expires) {
		delete(m.sessions, userID)
		return Session{Step: StepIdle}, nil
	}

	return ms.s, nil
}

func (m *MemorySessions) Save(_ context.Context, userID uint64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Idle() {
		delete(m.sessions, userID)
		return nil
	}

	m.sessions[userID] = memSession{s: s, expires: m.now().Add(m.ttl)}

	return nil
}
