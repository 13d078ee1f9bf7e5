package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity is implemented by every persistent type in the domain model.
type Entity interface {
	Key() string     // Key returns the unique identifier for this entity
	Validate() error // Validate checks the entity's data before it is written
}

// Track is an immutable snapshot of a track fetched from the upstream
// provider. Upserting a track with an existing ID refreshes the cached copy;
// tracks carry no revision counter because callers never mutate them in
// place.
type Track struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Artists   []string        `json:"artists"`
	Album     string          `json:"album,omitempty"`
	Duration  time.Duration   `json:"duration"`
	ISRC      string          `json:"isrc,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"` // opaque provider blob
	FetchedAt time.Time       `json:"fetchedAt"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (t *Track) Key() string { return t.ID }

func (t *Track) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("track title is required")
	}
	if len(t.Artists) == 0 {
		return fmt.Errorf("track requires at least one artist")
	}
	if t.Duration < 0 {
		return fmt.Errorf("track duration cannot be negative")
	}
	return nil
}

// Playlist is an ordered collection of track references owned by a user
// account. Every ID in TrackIDs must resolve to a Track stored in the same
// backend; adapters enforce this on upsert.
//
// Revision implements optimistic concurrency: callers pass back the revision
// they read, and an upsert against a newer stored revision fails with
// ErrConflict.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId"`
	TrackIDs    []string  `json:"trackIds"`
	Public      bool      `json:"public"`
	SnapshotID  string    `json:"snapshotId,omitempty"` // provider snapshot marker
	Revision    int64     `json:"revision"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *Playlist) Key() string { return p.ID }

func (p *Playlist) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("playlist name is required")
	}
	if p.OwnerID == "" {
		return fmt.Errorf("playlist owner is required")
	}
	seen := make(map[string]struct{}, len(p.TrackIDs))
	for _, id := range p.TrackIDs {
		if id == "" {
			return fmt.Errorf("playlist contains an empty track id")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("playlist references track %s more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// UserAccount caches profile attributes for the assistant's Spotify user.
// CredentialRef is an opaque handle into the (external) token store; raw
// secrets are never part of the domain model.
type UserAccount struct {
	ID                    string    `json:"id"`
	DisplayName           string    `json:"displayName"`
	Email                 string    `json:"email"`
	Plan                  string    `json:"plan,omitempty"`
	ProfileURL            string    `json:"profileUrl,omitempty"`
	ImageURL              string    `json:"imageUrl,omitempty"`
	Followers             int       `json:"followers"`
	ExplicitFilterEnabled bool      `json:"explicitFilterEnabled"`
	ExplicitFilterLocked  bool      `json:"explicitFilterLocked"`
	CredentialRef         string    `json:"-"`
	Revision              int64     `json:"revision"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

func (u *UserAccount) Key() string { return u.ID }

func (u *UserAccount) Validate() error {
	if u.DisplayName == "" {
		return fmt.Errorf("user display name is required")
	}
	if u.Followers < 0 {
		return fmt.Errorf("user follower count cannot be negative")
	}
	return nil
}

// Artist is a followed artist record synchronized from the provider.
type Artist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Genres    []string  `json:"genres,omitempty"`
	Followers int       `json:"followers"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Artist) Key() string { return a.ID }

func (a *Artist) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("artist name is required")
	}
	if a.Followers < 0 {
		return fmt.Errorf("artist follower count cannot be negative")
	}
	return nil
}
