package identifier

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// VolunteerKey is the counter key used for volunteer ids.
const VolunteerKey = "volunteer"

// Counter hands out strictly increasing numbers per key. floor is the highest number
// already in use; the first value returned for a key is floor+1.
type Counter interface {
	Next(ctx context.Context, key string, floor int) (int, error)
}

// LatestFunc returns the most recent stored id for key, or "" when none exists.
type LatestFunc func(ctx context.Context, key string) (string, error)

// Sequence allocates ids through a Counter seeded from the latest stored id.
type Sequence struct {
	counter Counter
	latest  LatestFunc
}

// NewSequence creates a sequence.
func NewSequence(counter Counter, latest LatestFunc) *Sequence {
	return &Sequence{counter: counter, latest: latest}
}

// Participant allocates the next id for a category code.
func (s *Sequence) Participant(ctx context.Context, code string) (string, error) {
	n, err := s.next(ctx, code)
	if err != nil {
		return "", err
	}
	return Format(code, n), nil
}

// Volunteer allocates the next volunteer id.
func (s *Sequence) Volunteer(ctx context.Context) (string, error) {
	n, err := s.next(ctx, VolunteerKey)
	if err != nil {
		return "", err
	}
	return FormatVolunteer(n), nil
}

func (s *Sequence) next(ctx context.Context, key string) (int, error) {
	floor := 0
	if s.latest != nil {
		prev, err := s.latest(ctx, key)
		if err != nil {
			return 0, fmt.Errorf("latest id for %s: %w", key, err)
		}
		floor = Suffix(prev)
	}
	n, err := s.counter.Next(ctx, key, floor)
	if err != nil {
		return 0, fmt.Errorf("allocate id for %s: %w", key, err)
	}
	return n, nil
}

// PostgresCounter keeps counters in the id_sequences table.
type PostgresCounter struct {
	db *sql.DB
}

// NewPostgresCounter creates a Postgres-backed counter.
func NewPostgresCounter(db *sql.DB) *PostgresCounter {
	return &PostgresCounter{db: db}
}

// Next atomically increments the counter for key, never going below floor+1.
func (c *PostgresCounter) Next(ctx context.Context, key string, floor int) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO id_sequences (key, value)
		VALUES ($1, $2 + 1)
		ON CONFLICT (key) DO UPDATE SET value = GREATEST(id_sequences.value, $2) + 1
		RETURNING value
	`, key, floor).Scan(&n)
	return n, err
}

// RedisCounter keeps counters in Redis under a key prefix.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "retreat:seq:"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

var bumpScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local floor = tonumber(ARGV[1])
if cur < floor then
  redis.call("SET", KEYS[1], floor)
end
return redis.call("INCR", KEYS[1])
`)

// Next raises the counter to floor if needed and increments it.
func (c *RedisCounter) Next(ctx context.Context, key string, floor int) (int, error) {
	n, err := bumpScript.Run(ctx, c.client, []string{c.prefix + key}, floor).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}
