package identifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		prev, code, want string
	}{
		{"DGK-007", "DGK", "DGK-008"},
		{"", "DGT", "DGT-001"},
		{"DGT-abc", "DGT", "DGT-001"},
		{"DGT-999", "DGT", "DGT-1000"},
		{"UND-041", "UND", "UND-042"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Next(tt.prev, tt.code), tt.prev)
	}
}

func TestNextVolunteer(t *testing.T) {
	assert.Equal(t, "Volunteer 1", NextVolunteer(""))
	assert.Equal(t, "Volunteer 13", NextVolunteer("Volunteer 12"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "dgk-008", Normalize("  DGK - 008\n"))
}

type memCounter struct {
	mu   sync.Mutex
	vals map[string]int
}

func (m *memCounter) Next(_ context.Context, key string, floor int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vals == nil {
		m.vals = map[string]int{}
	}
	if m.vals[key] < floor {
		m.vals[key] = floor
	}
	m.vals[key]++
	return m.vals[key], nil
}

func TestSequenceSeedsFromLatest(t *testing.T) {
	latest := func(_ context.Context, key string) (string, error) {
		if key == "DGK" {
			return "DGK-007", nil
		}
		return "", nil
	}
	seq := NewSequence(&memCounter{}, latest)
	ctx := context.Background()

	id, err := seq.Participant(ctx, "DGK")
	require.NoError(t, err)
	assert.Equal(t, "DGK-008", id)

	id, err = seq.Participant(ctx, "DGK")
	require.NoError(t, err)
	assert.Equal(t, "DGK-009", id)

	id, err = seq.Volunteer(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Volunteer 1", id)
}

func TestSequenceConcurrentAllocationsAreUnique(t *testing.T) {
	seq := NewSequence(&memCounter{}, nil)
	var wg sync.WaitGroup
	ids := make(chan string, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := seq.Participant(context.Background(), "DGT")
			if err == nil {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)
	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], id)
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}

func TestSequenceLatestError(t *testing.T) {
	boom := errors.New("boom")
	seq := NewSequence(&memCounter{}, func(context.Context, string) (string, error) { return "", boom })
	_, err := seq.Participant(context.Background(), "DGK")
	assert.ErrorIs(t, err, boom)
}
