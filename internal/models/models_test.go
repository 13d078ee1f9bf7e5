package models

import (
	"testing"
	"time"
)

func TestTrackValidate(t *testing.T) {
	t.Run("valid track passes", func(t *testing.T) {
		track := &Track{Title: "Song A", Artists: []string{"Artist"}, Duration: 3 * time.Minute}
		if err := track.Validate(); err != nil {
			t.Errorf("expected valid track, got %v", err)
		}
	})

	t.Run("missing title fails", func(t *testing.T) {
		track := &Track{Artists: []string{"Artist"}}
		if err := track.Validate(); err == nil {
			t.Error("expected error for missing title")
		}
	})

	t.Run("no artists fails", func(t *testing.T) {
		track := &Track{Title: "Song A"}
		if err := track.Validate(); err == nil {
			t.Error("expected error for missing artists")
		}
	})

	t.Run("negative duration fails", func(t *testing.T) {
		track := &Track{Title: "Song A", Artists: []string{"Artist"}, Duration: -time.Second}
		if err := track.Validate(); err == nil {
			t.Error("expected error for negative duration")
		}
	})
}

func TestPlaylistValidate(t *testing.T) {
	t.Run("valid playlist passes", func(t *testing.T) {
		playlist := &Playlist{Name: "Mix", OwnerID: "user-1", TrackIDs: []string{"t1", "t2"}}
		if err := playlist.Validate(); err != nil {
			t.Errorf("expected valid playlist, got %v", err)
		}
	})

	t.Run("missing name fails", func(t *testing.T) {
		playlist := &Playlist{OwnerID: "user-1"}
		if err := playlist.Validate(); err == nil {
			t.Error("expected error for missing name")
		}
	})

	t.Run("missing owner fails", func(t *testing.T) {
		playlist := &Playlist{Name: "Mix"}
		if err := playlist.Validate(); err == nil {
			t.Error("expected error for missing owner")
		}
	})

	t.Run("empty track id fails", func(t *testing.T) {
		playlist := &Playlist{Name: "Mix", OwnerID: "user-1", TrackIDs: []string{""}}
		if err := playlist.Validate(); err == nil {
			t.Error("expected error for empty track id")
		}
	})

	t.Run("duplicate track id fails", func(t *testing.T) {
		playlist := &Playlist{Name: "Mix", OwnerID: "user-1", TrackIDs: []string{"t1", "t1"}}
		if err := playlist.Validate(); err == nil {
			t.Error("expected error for duplicate track id")
		}
	})
}

func TestUserAccountValidate(t *testing.T) {
	t.Run("valid user passes", func(t *testing.T) {
		user := &UserAccount{DisplayName: "Test User", Followers: 3}
		if err := user.Validate(); err != nil {
			t.Errorf("expected valid user, got %v", err)
		}
	})

	t.Run("missing display name fails", func(t *testing.T) {
		user := &UserAccount{}
		if err := user.Validate(); err == nil {
			t.Error("expected error for missing display name")
		}
	})

	t.Run("negative followers fails", func(t *testing.T) {
		user := &UserAccount{DisplayName: "Test User", Followers: -1}
		if err := user.Validate(); err == nil {
			t.Error("expected error for negative followers")
		}
	})
}

func TestFilter(t *testing.T) {
	t.Run("zero filter is empty", func(t *testing.T) {
		if !(Filter{}).Empty() {
			t.Error("expected zero filter to be empty")
		}
	})

	t.Run("id filter is not empty", func(t *testing.T) {
		f := Filter{IDs: []string{"t1"}}
		if f.Empty() {
			t.Error("expected filter with IDs to be non-empty")
		}
		if !f.IDsOnly() {
			t.Error("expected pure ID filter to be IDsOnly")
		}
	})

	t.Run("mixed filter is not IDsOnly", func(t *testing.T) {
		f := Filter{IDs: []string{"t1"}, Title: "Song A"}
		if f.IDsOnly() {
			t.Error("expected mixed filter to not be IDsOnly")
		}
	})

	t.Run("empty filter is not IDsOnly", func(t *testing.T) {
		if (Filter{}).IDsOnly() {
			t.Error("expected empty filter to not be IDsOnly")
		}
	})
}

func TestPageBounded(t *testing.T) {
	t.Run("zero limit gets default", func(t *testing.T) {
		p := Page{}.Bounded()
		if p.Limit != DefaultPageLimit {
			t.Errorf("expected limit %d, got %d", DefaultPageLimit, p.Limit)
		}
	})

	t.Run("negative offset clamps to zero", func(t *testing.T) {
		p := Page{Limit: 10, Offset: -5}.Bounded()
		if p.Offset != 0 {
			t.Errorf("expected offset 0, got %d", p.Offset)
		}
	})

	t.Run("explicit values pass through", func(t *testing.T) {
		p := Page{Limit: 25, Offset: 50}.Bounded()
		if p.Limit != 25 || p.Offset != 50 {
			t.Errorf("expected page unchanged, got %+v", p)
		}
	})
}
