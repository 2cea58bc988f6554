package core

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"recurse.com/niceties/internal/directory"
	"recurse.com/niceties/internal/store"
	"recurse.com/niceties/internal/utils"
)

// ErrInsufficientData means fewer than two distinct retreat end dates
// exist among the current users, so staying/leaving dates cannot be
// computed.
var ErrInsufficientData = errors.New("fewer than two distinct retreat end dates")

// specialFacultyNames is the fixed allow-list for the "special" display
// bucket. There needs to be a better way to do this.
var specialFacultyNames = map[string]bool{
	"Lisa":  true,
	"Allie": true,
	"John":  true,
}

const retreatStintType = "retreat"

// Partition buckets current users by whether their latest end date is
// the most recent retreat end date (staying) or the second most recent
// (leaving).
type Partition struct {
	Staying []Person `json:"staying"`
	Leaving []Person `json:"leaving"`
}

// DisplayResult is the per-viewer presentation of the partition:
// independently shuffled lists with the viewer removed from leaving.
type DisplayResult struct {
	Staying            []Person `json:"staying,omitempty"`
	Leaving            []Person `json:"leaving"`
	Special            []Person `json:"special"`
	CurrentUserLeaving bool     `json:"-"`
}

// CohortService determines which cohorts are current and how their
// members are partitioned and presented.
type CohortService struct {
	dbStore  *store.SQLiteStore
	people   *PeopleService
	settings *SettingsService
	dir      directory.Client
	now      func() time.Time
}

func NewCohortService(db *store.SQLiteStore, people *PeopleService, settings *SettingsService, dir directory.Client) *CohortService {
	return &CohortService{
		dbStore:  db,
		people:   people,
		settings: settings,
		dir:      dir,
		now:      time.Now,
	}
}

// CurrentBatches returns the batches whose end dates are recent enough
// to count as current. When filtering leaves exactly one batch it is
// suppressed: a lone tracked batch reads as "not open" rather than a
// real cohort boundary.
func (s *CohortService) CurrentBatches(ctx context.Context) ([]directory.Batch, error) {
	const cacheKey = "open_batches_list"

	var batches []directory.Batch
	err := s.dbStore.CacheGet(cacheKey, &batches)
	if errors.Is(err, store.ErrNotInCache) {
		batches, err = s.dir.GetBatches(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch batches: %w", err)
		}
		if err := s.dbStore.CacheSet(cacheKey, batches); err != nil {
			return nil, fmt.Errorf("failed to cache batches: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to read batch cache: %w", err)
	}

	now := s.now()
	var current []directory.Batch
	for _, batch := range batches {
		if utils.IsCurrentBatch(batch.EndDate, now) {
			current = append(current, batch)
		}
	}
	if len(current) == 1 {
		current = nil
	}
	return current, nil
}

// CurrentUsers returns every member of every current batch.
func (s *CohortService) CurrentUsers(ctx context.Context) ([]Person, error) {
	batches, err := s.CurrentBatches(ctx)
	if err != nil {
		return nil, err
	}

	var users []Person
	for _, batch := range batches {
		people, err := s.people.BatchPeople(ctx, batch.ID)
		if err != nil {
			return nil, err
		}
		users = append(users, people...)
	}
	return users, nil
}

// CurrentFaculty returns the faculty across current batches. Faculty
// always appear in the most recent batch.
func (s *CohortService) CurrentFaculty(ctx context.Context) ([]Person, error) {
	users, err := s.CurrentUsers(ctx)
	if err != nil {
		return nil, err
	}

	faculty := []Person{}
	for _, p := range users {
		if p.IsFaculty {
			faculty = append(faculty, p)
		}
	}
	return faculty, nil
}

// PartitionUsers buckets users into staying and leaving. A user
// qualifies only per the inclusion policy: hacker-schoolers always,
// residents and faculty only when the matching site setting is on.
// Users matching neither date are dropped silently.
func (s *CohortService) PartitionUsers(users []Person) (*Partition, error) {
	seen := map[string]bool{}
	var endDates []string
	for _, u := range users {
		for _, stint := range u.Stints {
			if stint.EndDate != nil && stint.Type == retreatStintType && !seen[*stint.EndDate] {
				seen[*stint.EndDate] = true
				endDates = append(endDates, *stint.EndDate)
			}
		}
	}
	if len(endDates) < 2 {
		return nil, ErrInsufficientData
	}
	sort.Sort(sort.Reverse(sort.StringSlice(endDates)))

	stayingDate, err := utils.ParseDate(endDates[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse staying date: %w", err)
	}
	leavingDate, err := utils.ParseDate(endDates[1])
	if err != nil {
		return nil, fmt.Errorf("failed to parse leaving date: %w", err)
	}

	includeResidents := s.settings.Bool(SettingIncludeResidents, false)
	includeFaculty := s.settings.Bool(SettingIncludeFaculty, false)

	partition := &Partition{Staying: []Person{}, Leaving: []Person{}}
	for _, u := range users {
		// Batchlings have  is_hacker_schooler = true,  is_faculty = false
		// Faculty have     is_hacker_schooler = ?,     is_faculty = true
		// Residents have   is_hacker_schooler = false, is_faculty = false
		included := (u.IsHackerSchooler && !u.IsFaculty) ||
			(!u.IsFaculty && !u.IsHackerSchooler && includeResidents) ||
			(u.IsFaculty && includeFaculty)
		if !included || u.EndDate == nil {
			continue
		}
		switch {
		case u.EndDate.Equal(stayingDate):
			partition.Staying = append(partition.Staying, u)
		case u.EndDate.Equal(leavingDate):
			partition.Leaving = append(partition.Leaving, u)
		}
	}
	return partition, nil
}

// DisplayFor builds the viewer's presentation: the viewer is removed
// from the leaving list, the special faculty bucket is attached, and
// all lists are shuffled deterministically from the viewer's stored
// seed. The staying list is only disclosed to viewers who are
// themselves leaving.
func (s *CohortService) DisplayFor(ctx context.Context, viewer *store.User, partition *Partition) (*DisplayResult, error) {
	leaving := []Person{}
	currentUserLeaving := false
	for _, p := range partition.Leaving {
		if p.ID == viewer.ID {
			currentUserLeaving = true
		} else {
			leaving = append(leaving, p)
		}
	}

	staying := append([]Person{}, partition.Staying...)

	faculty, err := s.CurrentFaculty(ctx)
	if err != nil {
		return nil, err
	}
	special := []Person{}
	for _, p := range faculty {
		if specialFacultyNames[p.Name] {
			special = append(special, p)
		}
	}

	rng := rand.New(rand.NewSource(seedFromString(viewer.RandomSeed)))
	shuffle(rng, staying)
	shuffle(rng, leaving)
	shuffle(rng, special)

	result := &DisplayResult{
		Leaving:            leaving,
		Special:            special,
		CurrentUserLeaving: currentUserLeaving,
	}
	if currentUserLeaving {
		result.Staying = staying
	}
	return result, nil
}

func shuffle(rng *rand.Rand, people []Person) {
	rng.Shuffle(len(people), func(i, j int) {
		people[i], people[j] = people[j], people[i]
	})
}

func seedFromString(seed string) int64 {
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int64(h.Sum64())
}
