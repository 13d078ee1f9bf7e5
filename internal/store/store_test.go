package store

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/arpeggia/recordkeeper/internal/shared"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("opens the configured sqlite backend", func(t *testing.T) {
		cfg := &shared.Config{
			Backend: shared.BackendConfig{Name: shared.BackendSQLite},
			SQLite:  shared.SQLiteConfig{Path: ":memory:", MaxOpenConns: 1},
		}

		s, err := Open(ctx, cfg, logger)
		if err != nil {
			t.Fatalf("failed to open sqlite backend: %v", err)
		}
		defer s.Close()

		if !s.Capabilities().Durable {
			t.Error("expected sqlite backend to report durability")
		}
		if err := s.Ping(ctx); err != nil {
			t.Errorf("expected ping to succeed, got %v", err)
		}
	})

	t.Run("missing backend name fails fast", func(t *testing.T) {
		_, err := Open(ctx, &shared.Config{}, logger)
		if !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("unknown backend name fails fast", func(t *testing.T) {
		cfg := &shared.Config{Backend: shared.BackendConfig{Name: "etcd"}}

		_, err := Open(ctx, cfg, logger)
		if !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("selected backend with incomplete settings fails fast", func(t *testing.T) {
		cfg := &shared.Config{Backend: shared.BackendConfig{Name: shared.BackendRedis}}

		_, err := Open(ctx, cfg, logger)
		if !errors.Is(err, shared.ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})
}
