package store

import "time"

// User is the authenticated principal. The id is the directory person
// id; the random seed fixes the per-user display shuffle order.
type User struct {
	ID                 int64     `json:"id"`
	AnonymousByDefault bool      `json:"anonymous_by_default"`
	Faculty            bool      `json:"faculty"`
	Admin              bool      `json:"admin"`
	RandomSeed         string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt          time.Time `json:"created_at"`
}

// Profile is the locally imported copy of a directory person record.
// Written only by the one-shot import.
type Profile struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
	Bio       *string `json:"bio"`
	Interests *string `json:"interests"`
	BeforeRC  *string `json:"before_rc"`
	DuringRC  *string `json:"during_rc"`
}

type Stint struct {
	ID        int64   `json:"id"`
	ProfileID int64   `json:"profile_id"`
	Type      string  `json:"type"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Title     *string `json:"title"`
}

// Nicety is one message from an author to a target. At most one row
// exists per (author, target) pair.
type Nicety struct {
	ID              int64     `json:"id"`
	AuthorID        int64     `json:"author_id"`
	TargetID        int64     `json:"target_id"`
	Anonymous       bool      `json:"anonymous"`
	Text            *string   `json:"text"` // Nullable; whitespace-only input is stored as NULL
	NoRead          bool      `json:"no_read"`
	FacultyReviewed bool      `json:"faculty_reviewed"`
	EndDate         time.Time `json:"end_date"`
	DateUpdated     string    `json:"date_updated"`
}

// SiteSetting is one admin-editable configuration entry. The value is
// stored as JSON text.
type SiteSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheEntry is a memoized external-API result or computed aggregate.
type CacheEntry struct {
	Key         string    `json:"key"`
	Value       []byte    `json:"-"`
	LastUpdated time.Time `json:"last_updated"`
}
