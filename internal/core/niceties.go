package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"recurse.com/niceties/internal/store"
	"recurse.com/niceties/internal/utils"
)

// NicetySubmission is one item of the bulk save payload.
type NicetySubmission struct {
	TargetID    int64  `json:"target_id"`
	EndDate     string `json:"end_date"`
	Anonymous   *bool  `json:"anonymous"` // nil = use the author's default
	Text        string `json:"text"`
	NoRead      bool   `json:"no_read"`
	DateUpdated string `json:"date_updated"`
}

// PendingNicety is the author's view of an unsent nicety.
type PendingNicety struct {
	TargetID    int64   `json:"target_id"`
	Text        *string `json:"text"`
	Anonymous   bool    `json:"anonymous"`
	NoRead      bool    `json:"no_read"`
	DateUpdated string  `json:"date_updated"`
}

// RevealedNicety is the target's view of a revealable nicety. Author
// fields are only populated for attributed messages.
type RevealedNicety struct {
	AuthorID    *int64    `json:"author_id,omitempty"`
	Name        *string   `json:"name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	EndDate     time.Time `json:"end_date"`
	Anonymous   bool      `json:"anonymous"`
	Text        *string   `json:"text"`
	NoRead      bool      `json:"no_read"`
	DateUpdated string    `json:"date_updated"`
}

// TargetNiceties groups every nicety addressed to one recipient, for
// the admin review view.
type TargetNiceties struct {
	ToID     int64            `json:"to_id"`
	ToName   string           `json:"to_name"`
	Niceties []ReviewedNicety `json:"niceties"`
}

type ReviewedNicety struct {
	AuthorID *int64  `json:"author_id,omitempty"`
	Name     *string `json:"name,omitempty"`
	NoRead   bool    `json:"no_read"`
	Text     *string `json:"text"`
}

// NicetyService covers the nicety read and write flows.
type NicetyService struct {
	dbStore *store.SQLiteStore
	people  *PeopleService
	now     func() time.Time
}

func NewNicetyService(db *store.SQLiteStore, people *PeopleService) *NicetyService {
	return &NicetyService{
		dbStore: db,
		people:  people,
		now:     time.Now,
	}
}

// Save upserts each submitted item for the author. Whitespace-only
// text is normalized to NULL, the faculty-reviewed flag is reset, and
// a missing anonymous field falls back to the author's default.
func (s *NicetyService) Save(author *store.User, items []NicetySubmission) error {
	for _, item := range items {
		endDate, err := utils.ParseDate(item.EndDate)
		if err != nil {
			return fmt.Errorf("invalid end_date %q: %w", item.EndDate, err)
		}

		anonymous := author.AnonymousByDefault
		if item.Anonymous != nil {
			anonymous = *item.Anonymous
		}

		var text *string
		if trimmed := strings.TrimSpace(item.Text); trimmed != "" {
			text = &trimmed
		}

		nicety := store.Nicety{
			AuthorID:    author.ID,
			TargetID:    item.TargetID,
			Anonymous:   anonymous,
			Text:        text,
			NoRead:      item.NoRead,
			EndDate:     endDate,
			DateUpdated: item.DateUpdated,
		}
		if err := s.dbStore.SaveNicety(&nicety); err != nil {
			return err
		}
	}
	return nil
}

// LoadPending returns the author's outgoing niceties whose end date
// has not yet passed.
func (s *NicetyService) LoadPending(authorID int64) ([]PendingNicety, error) {
	niceties, err := s.dbStore.NicetiesByAuthorPending(authorID, s.now())
	if err != nil {
		return nil, err
	}

	pending := []PendingNicety{}
	for _, n := range niceties {
		pending = append(pending, PendingNicety{
			TargetID:    n.TargetID,
			Text:        n.Text,
			Anonymous:   n.Anonymous,
			NoRead:      n.NoRead,
			DateUpdated: n.DateUpdated,
		})
	}
	return pending, nil
}

// ShowRevealable returns the niceties addressed to the target that are
// past the one-day reveal grace period, attributed or anonymized per
// each row's flag.
func (s *NicetyService) ShowRevealable(ctx context.Context, targetID int64) ([]RevealedNicety, error) {
	niceties, err := s.dbStore.NicetiesRevealableForTarget(targetID, s.now())
	if err != nil {
		return nil, err
	}

	revealed := []RevealedNicety{}
	for _, n := range niceties {
		r := RevealedNicety{
			EndDate:     n.EndDate,
			Anonymous:   n.Anonymous,
			Text:        n.Text,
			NoRead:      n.NoRead,
			DateUpdated: n.DateUpdated,
		}
		if !n.Anonymous {
			author, err := s.people.GetPerson(ctx, n.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve author %d: %w", n.AuthorID, err)
			}
			authorID := n.AuthorID
			r.AuthorID = &authorID
			r.Name = &author.Name
			r.AvatarURL = author.AvatarURL
		}
		revealed = append(revealed, r)
	}
	return revealed, nil
}

// AllGroupedByTarget returns every nicety grouped by recipient, with
// authors of anonymous messages withheld. Admin review view.
func (s *NicetyService) AllGroupedByTarget(ctx context.Context) ([]TargetNiceties, error) {
	niceties, err := s.dbStore.AllNiceties()
	if err != nil {
		return nil, err
	}

	groups := []TargetNiceties{}
	for _, n := range niceties {
		if len(groups) == 0 || groups[len(groups)-1].ToID != n.TargetID {
			target, err := s.people.GetPerson(ctx, n.TargetID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve target %d: %w", n.TargetID, err)
			}
			groups = append(groups, TargetNiceties{
				ToID:     target.ID,
				ToName:   target.FullName,
				Niceties: []ReviewedNicety{},
			})
		}

		reviewed := ReviewedNicety{NoRead: n.NoRead, Text: n.Text}
		if !n.Anonymous {
			author, err := s.people.GetPerson(ctx, n.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve author %d: %w", n.AuthorID, err)
			}
			authorID := n.AuthorID
			reviewed.AuthorID = &authorID
			reviewed.Name = &author.FullName
		}
		groups[len(groups)-1].Niceties = append(groups[len(groups)-1].Niceties, reviewed)
	}
	return groups, nil
}

// Overwrite force-sets the text of the (author, target) row. Admin
// path.
func (s *NicetyService) Overwrite(authorID, targetID int64, text string) error {
	log.Printf("Admin overwrite of nicety %d -> %d", authorID, targetID)
	return s.dbStore.OverwriteNicetyText(authorID, targetID, text)
}
