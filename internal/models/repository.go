package models

import "context"

// Repository defines the uniform CRUD and query contract every backend
// adapter implements per entity type. All operations honor context
// cancellation and surface failures as typed errors from the shared package
// (ErrNotFound, ErrConflict, ErrIntegrity, ErrBackendUnavailable,
// ErrCapability); no operation swallows a failure.
type Repository[T Entity] interface {
	// Get retrieves an entity by ID. Returns ErrNotFound for an absent ID.
	Get(ctx context.Context, id string) (T, error)

	// Upsert inserts or replaces an entity, assigning an ID when absent, and
	// returns the stored copy. For revisioned entities a stale revision fails
	// with ErrConflict.
	Upsert(ctx context.Context, entity T) (T, error)

	// Delete removes an entity by ID. Deleting an absent ID returns
	// ErrNotFound, never a silent success.
	Delete(ctx context.Context, id string) error

	// Query returns the finite page of entities matching the filter, ordered
	// by creation time then ID. Every call restarts from the requested
	// offset.
	Query(ctx context.Context, filter Filter, page Page) ([]T, error)
}

// Filter narrows a Query. Zero-valued fields are ignored; fields that do not
// apply to the queried entity type are also ignored. A backend without range
// query support accepts only IDs and rejects everything else with
// ErrCapability.
type Filter struct {
	IDs     []string // match any of these entity IDs
	Title   string   // tracks
	Artist  string   // tracks, matched against the ordered artist list
	Album   string   // tracks
	ISRC    string   // tracks
	Name    string   // playlists, artists
	OwnerID string   // playlists
	Email   string   // user accounts
	Genre   string   // artists
}

// Empty reports whether the filter matches everything.
func (f Filter) Empty() bool {
	return len(f.IDs) == 0 && f.Title == "" && f.Artist == "" && f.Album == "" &&
		f.ISRC == "" && f.Name == "" && f.OwnerID == "" && f.Email == "" && f.Genre == ""
}

// IDsOnly reports whether the filter uses nothing beyond entity IDs. This is
// the largest filter a pure key-value backend can serve.
func (f Filter) IDsOnly() bool {
	return len(f.IDs) > 0 && f.Title == "" && f.Artist == "" && f.Album == "" &&
		f.ISRC == "" && f.Name == "" && f.OwnerID == "" && f.Email == "" && f.Genre == ""
}

// DefaultPageLimit applies when a Query passes a zero page limit.
const DefaultPageLimit = 100

// Page bounds a Query result.
type Page struct {
	Limit  int
	Offset int
}

// Bounded returns the page with a zero limit replaced by DefaultPageLimit.
func (p Page) Bounded() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Capabilities describes what the active backend can do. Callers must check
// RangeQueries before issuing filtered queries against a cache-style backend
// and must not treat a non-durable backend as a source of truth.
type Capabilities struct {
	// RangeQueries is false for pure key-value backends, whose Query degrades
	// to ID-only lookups.
	RangeQueries bool
	// Durable is true when a successful write survives process restart.
	Durable bool
	// Transactional is true when multi-statement mutations commit atomically.
	Transactional bool
}

// Store is the single facade the backend selector hands to the assistant
// core: one repository per entity type, all backed by the same storage
// technology. Implementations are safe for concurrent use.
type Store interface {
	Tracks() Repository[*Track]
	Playlists() Repository[*Playlist]
	Users() Repository[*UserAccount]
	Artists() Repository[*Artist]

	Capabilities() Capabilities
	Ping(ctx context.Context) error
	Close() error
}
