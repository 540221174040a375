package orders

import (
	"context"
	"fmt"
	"time"
)

// CodeGenerator issues unique human-readable order codes.
type CodeGenerator interface {
	Next(ctx context.Context) (string, error)
}

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CounterKey(name string) string
}

type redisCodeGenerator struct {
	store counterStore
	now   func() time.Time
}

// NewCodeGenerator builds a generator backed by a daily redis counter. Codes
// look like VN-20260315-000042; the counter key expires two days after its day
// ends so retries around midnight still resolve.
func NewCodeGenerator(store counterStore, now func() time.Time) (CodeGenerator, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store required")
	}
	if now == nil {
		now = time.Now
	}
	return &redisCodeGenerator{store: store, now: now}, nil
}

func (g *redisCodeGenerator) Next(ctx context.Context) (string, error) {
	day := g.now().UTC().Format("20060102")
	key := g.store.CounterKey(fmt.Sprintf("order_code:%s", day))
	seq, err := g.store.IncrWithTTL(ctx, key, 48*time.Hour)
	if err != nil {
		return "", fmt.Errorf("next order code: %w", err)
	}
	return fmt.Sprintf("VN-%s-%06d", day, seq), nil
}
