package core

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"recurse.com/niceties/internal/codehost"
	"recurse.com/niceties/internal/directory"
	"recurse.com/niceties/internal/store"
	"recurse.com/niceties/internal/utils"
)

type fakeDirectory struct {
	batches       []directory.Batch
	peopleByBatch map[int64][]directory.Person
	persons       map[int64]directory.Person

	batchCalls  int
	peopleCalls int
	personCalls int
}

func (f *fakeDirectory) GetBatches(ctx context.Context) ([]directory.Batch, error) {
	f.batchCalls++
	return f.batches, nil
}

func (f *fakeDirectory) GetBatchPeople(ctx context.Context, batchID int64) ([]directory.Person, error) {
	f.peopleCalls++
	return f.peopleByBatch[batchID], nil
}

func (f *fakeDirectory) GetPerson(ctx context.Context, personID int64) (*directory.Person, error) {
	f.personCalls++
	p, ok := f.persons[personID]
	if !ok {
		return nil, fmt.Errorf("no such person %d", personID)
	}
	return &p, nil
}

func (f *fakeDirectory) GetSelf(ctx context.Context) (*directory.Person, error) {
	return nil, fmt.Errorf("not supported in tests")
}

func (f *fakeDirectory) GetProfiles(ctx context.Context, limit, offset int) ([]directory.Person, error) {
	return nil, nil
}

type fakeCodehost struct {
	repos map[string][]codehost.Repo
	err   error
	calls int
}

func (f *fakeCodehost) GetRepos(ctx context.Context, handle string) ([]codehost.Repo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.repos[handle], nil
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strptr(s string) *string { return &s }

// retreatPerson builds an enriched person with one retreat stint
// ending on endDate.
func retreatPerson(t *testing.T, id int64, name, endDate string, hackerSchooler, faculty bool) Person {
	t.Helper()
	parsed, err := utils.ParseDate(endDate)
	require.NoError(t, err)
	return Person{
		ID:               id,
		Name:             name,
		FullName:         name,
		IsHackerSchooler: hackerSchooler,
		IsFaculty:        faculty,
		Stints:           []directory.Stint{{Type: "retreat", EndDate: strptr(endDate)}},
		EndDate:          &parsed,
	}
}
