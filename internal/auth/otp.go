package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidCode is returned for a wrong or expired one-time code.
var ErrInvalidCode = errors.New("invalid or expired code")

// CodeStore keeps one pending code per recipient.
type CodeStore interface {
	Save(ctx context.Context, to, code string, ttl time.Duration) error
	// Take returns and deletes the pending code, or "" when none is pending.
	Take(ctx context.Context, to string) (string, error)
}

// DeliverFunc sends a code to its recipient.
type DeliverFunc func(ctx context.Context, to, code string) error

// OTP issues and verifies six-digit sign-in codes.
type OTP struct {
	codes   CodeStore
	deliver DeliverFunc
	ttl     time.Duration
}

// NewOTP creates an OTP issuer.
func NewOTP(codes CodeStore, deliver DeliverFunc, ttl time.Duration) *OTP {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTP{codes: codes, deliver: deliver, ttl: ttl}
}

// Send generates, stores and delivers a code for to.
func (o *OTP) Send(ctx context.Context, to string) error {
	code, err := newCode()
	if err != nil {
		return err
	}
	if err := o.codes.Save(ctx, to, code, o.ttl); err != nil {
		return err
	}
	if o.deliver == nil {
		return nil
	}
	return o.deliver(ctx, to, code)
}

// Verify consumes the pending code for to. A code can be used once.
func (o *OTP) Verify(ctx context.Context, to, code string) error {
	want, err := o.codes.Take(ctx, to)
	if err != nil {
		return err
	}
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(code)) != 1 {
		return ErrInvalidCode
	}
	return nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RedisCodeStore keeps codes in Redis with a TTL.
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCodeStore creates a Redis code store.
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{client: client, prefix: "retreat:otp:"}
}

func (s *RedisCodeStore) Save(ctx context.Context, to, code string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+to, code, ttl).Err()
}

func (s *RedisCodeStore) Take(ctx context.Context, to string) (string, error) {
	code, err := s.client.GetDel(ctx, s.prefix+to).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return code, err
}

// MemoryCodeStore keeps codes in process memory for dev and tests.
type MemoryCodeStore struct {
	mu    sync.Mutex
	now   func() time.Time
	codes map[string]pending
}

type pending struct {
	code    string
	expires time.Time
}

// NewMemoryCodeStore creates an in-memory code store.
func NewMemoryCodeStore(now func() time.Time) *MemoryCodeStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryCodeStore{now: now, codes: map[string]pending{}}
}

func (s *MemoryCodeStore) Save(_ context.Context, to, code string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[to] = pending{code: code, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) Take(_ context.Context, to string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.codes[to]
	delete(s.codes, to)
	if !ok || s.now().After(p.expires) {
		return "", nil
	}
	return p.code, nil
}
