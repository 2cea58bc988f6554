package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"recurse.com/niceties/internal/codehost"
	"recurse.com/niceties/internal/directory"
	"recurse.com/niceties/internal/store"
	"recurse.com/niceties/internal/utils"
)

// Person is the display-ready projection of a batch member.
type Person struct {
	ID               int64             `json:"id"`
	IsFaculty        bool              `json:"is_faculty"`
	IsHackerSchooler bool              `json:"is_hacker_schooler"`
	Name             string            `json:"name"`
	FullName         string            `json:"full_name"`
	AvatarURL        *string           `json:"avatar_url"`
	Stints           []directory.Stint `json:"stints"`
	Bio              *string           `json:"bio"`
	Interests        *string           `json:"interests"`
	BeforeRC         *string           `json:"before_rc"`
	DuringRC         *string           `json:"during_rc"`
	Job              *string           `json:"job"`
	Twitter          *string           `json:"twitter"`
	Github           *string           `json:"github"`
	Repos            []codehost.Repo   `json:"repos"`
	EndDate          *time.Time        `json:"end_date"` // latest non-null stint end date
}

// PersonSummary is the lighter projection served by the single-person
// lookup.
type PersonSummary struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	FullName  string  `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
	IsFaculty bool    `json:"is_faculty"`
	Bio       *string `json:"bio"`
	Interests *string `json:"interests"`
	BeforeRC  *string `json:"before_rc"`
	DuringRC  *string `json:"during_rc"`
	Job       *string `json:"job"`
	Twitter   *string `json:"twitter"`
	Github    *string `json:"github"`
}

// PeopleService enriches directory records for display, memoizing
// results in the cache table. Misses are not deduplicated across
// concurrent requests; the underlying data changes slowly enough that
// duplicate fetches are tolerable.
type PeopleService struct {
	dbStore   *store.SQLiteStore
	directory directory.Client
	codehost  codehost.Client
}

func NewPeopleService(db *store.SQLiteStore, dir directory.Client, ch codehost.Client) *PeopleService {
	return &PeopleService{
		dbStore:   db,
		directory: dir,
		codehost:  ch,
	}
}

// BatchPeople returns the enriched member list for one batch, cached
// as a unit keyed by batch id.
func (s *PeopleService) BatchPeople(ctx context.Context, batchID int64) ([]Person, error) {
	cacheKey := fmt.Sprintf("batches_people_list:%d", batchID)

	var people []Person
	err := s.dbStore.CacheGet(cacheKey, &people)
	if err == nil {
		return people, nil
	}
	if !errors.Is(err, store.ErrNotInCache) {
		return nil, fmt.Errorf("failed to read batch people cache: %w", err)
	}

	raw, err := s.directory.GetBatchPeople(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch people for batch %d: %w", batchID, err)
	}

	people = make([]Person, 0, len(raw))
	for _, p := range raw {
		people = append(people, s.enrich(ctx, p))
	}

	if err := s.dbStore.CacheSet(cacheKey, people); err != nil {
		return nil, fmt.Errorf("failed to cache people for batch %d: %w", batchID, err)
	}
	return people, nil
}

func (s *PeopleService) enrich(ctx context.Context, p directory.Person) Person {
	repos := []codehost.Repo{}
	if p.Github != nil {
		fetched, err := s.codehost.GetRepos(ctx, *p.Github)
		if err != nil {
			// Best-effort lookup: degrade to an empty list rather
			// than failing the whole batch.
			log.Printf("Repo lookup failed for %s: %v", *p.Github, err)
		} else {
			repos = fetched
		}
	}

	return Person{
		ID:               p.ID,
		IsFaculty:        p.IsFaculty,
		IsHackerSchooler: p.IsHackerSchooler,
		Name:             utils.NameFromPerson(p),
		FullName:         utils.FullNameFromPerson(p),
		AvatarURL:        p.Image,
		Stints:           p.Stints,
		Bio:              p.Bio,
		Interests:        p.Interests,
		BeforeRC:         p.BeforeRC,
		DuringRC:         p.DuringRC,
		Job:              p.Job,
		Twitter:          p.Twitter,
		Github:           p.Github,
		Repos:            repos,
		EndDate:          utils.LatestEndDate(p.Stints),
	}
}

// GetPerson returns the cached single-person projection, fetching and
// caching it on first access.
func (s *PeopleService) GetPerson(ctx context.Context, personID int64) (*PersonSummary, error) {
	cacheKey := fmt.Sprintf("person:%d", personID)

	var summary PersonSummary
	err := s.dbStore.CacheGet(cacheKey, &summary)
	if err == nil {
		return &summary, nil
	}
	if !errors.Is(err, store.ErrNotInCache) {
		return nil, fmt.Errorf("failed to read person cache: %w", err)
	}

	p, err := s.directory.GetPerson(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch person %d: %w", personID, err)
	}

	summary = PersonSummary{
		ID:        p.ID,
		Name:      utils.NameFromPerson(*p),
		FullName:  utils.FullNameFromPerson(*p),
		AvatarURL: p.Image,
		IsFaculty: p.IsFaculty,
		Bio:       p.Bio,
		Interests: p.Interests,
		BeforeRC:  p.BeforeRC,
		DuringRC:  p.DuringRC,
		Job:       p.Job,
		Twitter:   p.Twitter,
		Github:    p.Github,
	}

	if err := s.dbStore.CacheSet(cacheKey, summary); err != nil {
		return nil, fmt.Errorf("failed to cache person %d: %w", personID, err)
	}
	return &summary, nil
}
