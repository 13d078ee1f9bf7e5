package mongo

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/arpeggia/recordkeeper/internal/models"
)

// Document shapes. Entity IDs are the _id; provider metadata blobs are
// stored as parsed BSON so they stay queryable in the shell.

type trackDoc struct {
	ID         string    `bson:"_id"`
	Title      string    `bson:"title"`
	Artists    []string  `bson:"artists"`
	Album      string    `bson:"album,omitempty"`
	DurationMS int64     `bson:"duration_ms"`
	ISRC       string    `bson:"isrc,omitempty"`
	Metadata   bson.Raw  `bson:"metadata,omitempty"`
	FetchedAt  time.Time `bson:"fetched_at"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func toTrackDoc(t *models.Track) (*trackDoc, error) {
	doc := &trackDoc{
		ID:         t.ID,
		Title:      t.Title,
		Artists:    t.Artists,
		Album:      t.Album,
		DurationMS: t.Duration.Milliseconds(),
		ISRC:       t.ISRC,
		FetchedAt:  t.FetchedAt,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if len(t.Metadata) > 0 {
		var parsed any
		if err := json.Unmarshal(t.Metadata, &parsed); err != nil {
			return nil, err
		}
		raw, err := bson.Marshal(bson.M{"blob": parsed})
		if err != nil {
			return nil, err
		}
		doc.Metadata = raw
	}
	return doc, nil
}

func (d *trackDoc) toModel() (*models.Track, error) {
	track := &models.Track{
		ID:        d.ID,
		Title:     d.Title,
		Artists:   d.Artists,
		Album:     d.Album,
		Duration:  time.Duration(d.DurationMS) * time.Millisecond,
		ISRC:      d.ISRC,
		FetchedAt: d.FetchedAt,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if len(d.Metadata) > 0 {
		var wrapper struct {
			Blob any `bson:"blob"`
		}
		if err := bson.Unmarshal(d.Metadata, &wrapper); err != nil {
			return nil, err
		}
		data, err := json.Marshal(wrapper.Blob)
		if err != nil {
			return nil, err
		}
		track.Metadata = json.RawMessage(data)
	}
	return track, nil
}

type playlistDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	OwnerID     string    `bson:"owner_id"`
	TrackIDs    []string  `bson:"track_ids"`
	Public      bool      `bson:"public"`
	SnapshotID  string    `bson:"snapshot_id,omitempty"`
	Revision    int64     `bson:"revision"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toPlaylistDoc(p *models.Playlist) *playlistDoc {
	trackIDs := p.TrackIDs
	if trackIDs == nil {
		trackIDs = []string{}
	}
	return &playlistDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		OwnerID:     p.OwnerID,
		TrackIDs:    trackIDs,
		Public:      p.Public,
		SnapshotID:  p.SnapshotID,
		Revision:    p.Revision,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (d *playlistDoc) toModel() *models.Playlist {
	trackIDs := d.TrackIDs
	if len(trackIDs) == 0 {
		trackIDs = nil
	}
	return &models.Playlist{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		OwnerID:     d.OwnerID,
		TrackIDs:    trackIDs,
		Public:      d.Public,
		SnapshotID:  d.SnapshotID,
		Revision:    d.Revision,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type userDoc struct {
	ID                    string    `bson:"_id"`
	DisplayName           string    `bson:"display_name"`
	Email                 string    `bson:"email,omitempty"`
	Plan                  string    `bson:"plan,omitempty"`
	ProfileURL            string    `bson:"profile_url,omitempty"`
	ImageURL              string    `bson:"image_url,omitempty"`
	Followers             int       `bson:"followers"`
	ExplicitFilterEnabled bool      `bson:"explicit_filter_enabled"`
	ExplicitFilterLocked  bool      `bson:"explicit_filter_locked"`
	CredentialRef         string    `bson:"credential_ref,omitempty"`
	Revision              int64     `bson:"revision"`
	CreatedAt             time.Time `bson:"created_at"`
	UpdatedAt             time.Time `bson:"updated_at"`
}

func toUserDoc(u *models.UserAccount) *userDoc {
	return &userDoc{
		ID:                    u.ID,
		DisplayName:           u.DisplayName,
		Email:                 u.Email,
		Plan:                  u.Plan,
		ProfileURL:            u.ProfileURL,
		ImageURL:              u.ImageURL,
		Followers:             u.Followers,
		ExplicitFilterEnabled: u.ExplicitFilterEnabled,
		ExplicitFilterLocked:  u.ExplicitFilterLocked,
		CredentialRef:         u.CredentialRef,
		Revision:              u.Revision,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func (d *userDoc) toModel() *models.UserAccount {
	return &models.UserAccount{
		ID:                    d.ID,
		DisplayName:           d.DisplayName,
		Email:                 d.Email,
		Plan:                  d.Plan,
		ProfileURL:            d.ProfileURL,
		ImageURL:              d.ImageURL,
		Followers:             d.Followers,
		ExplicitFilterEnabled: d.ExplicitFilterEnabled,
		ExplicitFilterLocked:  d.ExplicitFilterLocked,
		CredentialRef:         d.CredentialRef,
		Revision:              d.Revision,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

type artistDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Genres    []string  `bson:"genres,omitempty"`
	Followers int       `bson:"followers"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toArtistDoc(a *models.Artist) *artistDoc {
	return &artistDoc{
		ID:        a.ID,
		Name:      a.Name,
		Genres:    a.Genres,
		Followers: a.Followers,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (d *artistDoc) toModel() *models.Artist {
	return &models.Artist{
		ID:        d.ID,
		Name:      d.Name,
		Genres:    d.Genres,
		Followers: d.Followers,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
