package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"recurse.com/niceties/internal/codehost"
	"recurse.com/niceties/internal/directory"
)

func TestBatchPeopleEnrichment(t *testing.T) {
	dir := &fakeDirectory{peopleByBatch: map[int64][]directory.Person{
		7: {
			{
				ID:               1,
				FirstName:        "Ada",
				LastName:         "Lovelace",
				Github:           strptr("ada"),
				IsHackerSchooler: true,
				Stints: []directory.Stint{
					{Type: "retreat", EndDate: strptr("2024-03-01")},
					{Type: "retreat", EndDate: strptr("2024-06-01")},
					{Type: "retreat", EndDate: nil},
				},
			},
			{ID: 2, FirstName: "Alan", LastName: "Turing"},
		},
	}}
	ch := &fakeCodehost{repos: map[string][]codehost.Repo{
		"ada": {{Name: "engine", Description: strptr("analytical")}},
	}}
	svc := NewPeopleService(newTestStore(t), dir, ch)

	people, err := svc.BatchPeople(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, people, 2)

	ada := people[0]
	assert.Equal(t, "Ada", ada.Name)
	assert.Equal(t, "Ada Lovelace", ada.FullName)
	require.Len(t, ada.Repos, 1)
	assert.Equal(t, "engine", ada.Repos[0].Name)
	require.NotNil(t, ada.EndDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *ada.EndDate)

	// No code-hosting handle: no lookup, empty repo list, nil end date.
	alan := people[1]
	assert.Empty(t, alan.Repos)
	assert.Nil(t, alan.EndDate)
	assert.Equal(t, 1, ch.calls)
}

func TestBatchPeopleCachedAsAUnit(t *testing.T) {
	dir := &fakeDirectory{peopleByBatch: map[int64][]directory.Person{
		7: {{ID: 1, FirstName: "Ada", Github: strptr("ada")}},
	}}
	ch := &fakeCodehost{}
	svc := NewPeopleService(newTestStore(t), dir, ch)

	_, err := svc.BatchPeople(context.Background(), 7)
	require.NoError(t, err)
	_, err = svc.BatchPeople(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 1, dir.peopleCalls, "second read must come from the cache")
	assert.Equal(t, 1, ch.calls, "cached reads must not re-fetch repos")
}

func TestBatchPeopleRepoLookupFailureDegrades(t *testing.T) {
	dir := &fakeDirectory{peopleByBatch: map[int64][]directory.Person{
		7: {{ID: 1, FirstName: "Ada", Github: strptr("ada")}},
	}}
	ch := &fakeCodehost{err: errors.New("rate limited")}
	svc := NewPeopleService(newTestStore(t), dir, ch)

	people, err := svc.BatchPeople(context.Background(), 7)
	require.NoError(t, err, "repo lookup failures must not surface")
	require.Len(t, people, 1)
	assert.Empty(t, people[0].Repos)
}

func TestGetPersonCached(t *testing.T) {
	dir := &fakeDirectory{persons: map[int64]directory.Person{
		1: {ID: 1, FirstName: "Ada", LastName: "Lovelace", IsFaculty: true, Bio: strptr("wrote the first program")},
	}}
	svc := NewPeopleService(newTestStore(t), dir, &fakeCodehost{})

	person, err := svc.GetPerson(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", person.Name)
	assert.Equal(t, "Ada Lovelace", person.FullName)
	assert.True(t, person.IsFaculty)

	_, err = svc.GetPerson(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, dir.personCalls)
}

func TestGetPersonDirectoryFailurePropagates(t *testing.T) {
	dir := &fakeDirectory{persons: map[int64]directory.Person{}}
	svc := NewPeopleService(newTestStore(t), dir, &fakeCodehost{})

	_, err := svc.GetPerson(context.Background(), 404)
	assert.Error(t, err)
}
