package postgres

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
)

// setupTestStore connects to the PostgreSQL instance named by
// RECORDKEEPER_TEST_POSTGRES_HOST, skipping when unset.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	host := os.Getenv("RECORDKEEPER_TEST_POSTGRES_HOST")
	if host == "" {
		t.Skip("RECORDKEEPER_TEST_POSTGRES_HOST not set")
	}

	port := 5432
	if p := os.Getenv("RECORDKEEPER_TEST_POSTGRES_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			port = parsed
		}
	}

	cfg := shared.PostgresConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("RECORDKEEPER_TEST_POSTGRES_USER"),
		Password: os.Getenv("RECORDKEEPER_TEST_POSTGRES_PASSWORD"),
		DBName:   os.Getenv("RECORDKEEPER_TEST_POSTGRES_DBNAME"),
		SSLMode:  "disable",
	}
	s, err := Open(context.Background(), cfg, shared.NewLogger(io.Discard))
	if err != nil {
		t.Fatalf("failed to open postgres store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func testTrack(title string) *models.Track {
	return &models.Track{
		Title:    title,
		Artists:  []string{"Test Artist"},
		Duration: 3 * time.Minute,
	}
}

func TestTrackRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trip", func(t *testing.T) {
		s := setupTestStore(t)

		stored, err := s.Tracks().Upsert(ctx, testTrack("Song A"))
		if err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}
		defer s.Tracks().Delete(ctx, stored.ID)

		retrieved, err := s.Tracks().Get(ctx, stored.ID)
		if err != nil {
			t.Fatalf("failed to get track: %v", err)
		}
		if retrieved.Title != "Song A" || retrieved.Duration != 3*time.Minute {
			t.Errorf("expected track to round-trip, got %+v", retrieved)
		}
	})

	t.Run("query by artist membership", func(t *testing.T) {
		s := setupTestStore(t)

		track := testTrack("Song A")
		track.Artists = []string{"Unique Artist " + shared.GenerateID()}
		stored, err := s.Tracks().Upsert(ctx, track)
		if err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}
		defer s.Tracks().Delete(ctx, stored.ID)

		results, err := s.Tracks().Query(ctx, models.Filter{Artist: track.Artists[0]}, models.Page{})
		if err != nil {
			t.Fatalf("failed to query tracks: %v", err)
		}
		if len(results) != 1 || results[0].ID != stored.ID {
			t.Errorf("expected one matching track, got %d results", len(results))
		}
	})

	t.Run("delete absent returns ErrNotFound", func(t *testing.T) {
		s := setupTestStore(t)

		err := s.Tracks().Delete(ctx, "no-such-track-"+shared.GenerateID())
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("revision conflict and cascade", func(t *testing.T) {
		s := setupTestStore(t)

		trackA, err := s.Tracks().Upsert(ctx, testTrack("Song A"))
		if err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}
		defer s.Tracks().Delete(ctx, trackA.ID)

		stored, err := s.Playlists().Upsert(ctx, &models.Playlist{
			Name:     "Mix",
			OwnerID:  "user-" + shared.GenerateID(),
			TrackIDs: []string{trackA.ID},
		})
		if err != nil {
			t.Fatalf("failed to upsert playlist: %v", err)
		}
		defer s.Playlists().Delete(ctx, stored.ID)

		if stored.Revision != 1 {
			t.Errorf("expected revision 1, got %d", stored.Revision)
		}

		stale := *stored
		if _, err := s.Playlists().Upsert(ctx, stored); err != nil {
			t.Fatalf("failed to update playlist: %v", err)
		}
		if _, err := s.Playlists().Upsert(ctx, &stale); !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict for stale revision, got %v", err)
		}

		trackB, err := s.Tracks().Upsert(ctx, testTrack("Song B"))
		if err != nil {
			t.Fatalf("failed to upsert track: %v", err)
		}
		if err := s.Tracks().Delete(ctx, trackB.ID); err != nil {
			t.Fatalf("failed to delete track: %v", err)
		}

		retrieved, err := s.Playlists().Get(ctx, stored.ID)
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if len(retrieved.TrackIDs) != 1 {
			t.Errorf("expected surviving track reference, got %v", retrieved.TrackIDs)
		}
	})

	t.Run("unknown track reference returns ErrIntegrity", func(t *testing.T) {
		s := setupTestStore(t)

		_, err := s.Playlists().Upsert(ctx, &models.Playlist{
			Name:     "Mix",
			OwnerID:  "user-1",
			TrackIDs: []string{"no-such-track-" + shared.GenerateID()},
		})
		if !errors.Is(err, shared.ErrIntegrity) {
			t.Errorf("expected ErrIntegrity, got %v", err)
		}
	})
}

func TestStoreCapabilities(t *testing.T) {
	s := &Store{}

	caps := s.Capabilities()
	if !caps.RangeQueries || !caps.Durable || !caps.Transactional {
		t.Errorf("expected full relational capabilities, got %+v", caps)
	}
}
