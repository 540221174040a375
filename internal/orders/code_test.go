package orders

import (
	"context"
	"fmt"
	"testing"
	"time"
)

type stubCounterStore struct {
	counts map[string]int64
}

func (s *stubCounterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[key]++
	return s.counts[key], nil
}

func (s *stubCounterStore) CounterKey(name string) string {
	return fmt.Sprintf("vendora:counter:%s", name)
}

func TestCodeGeneratorFormatsDailySequence(t *testing.T) {
	now := func() time.Time {
		return time.Date(2026, time.March, 15, 23, 59, 0, 0, time.UTC)
	}
	gen, err := NewCodeGenerator(&stubCounterStore{}, now)
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}

	first, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if first != "VN-20260315-000001" {
		t.Fatalf("unexpected code %s", first)
	}
	second, err := gen.Next(context.Background())
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if second != "VN-20260315-000002" {
		t.Fatalf("unexpected code %s", second)
	}
}
