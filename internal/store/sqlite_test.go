package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"recurse.com/niceties/internal/directory"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strptr(s string) *string { return &s }

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)

	user, err := s.GetUser(123)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestCreateUserAssignsSeed(t *testing.T) {
	s := newTestStore(t)

	user, err := s.CreateUser(123, true)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(123), user.ID)
	assert.True(t, user.Faculty)
	assert.False(t, user.Admin)
	assert.NotEmpty(t, user.RandomSeed)
}

func TestGetOrCreateUserIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	first, err := s.GetOrCreateUser(5, false)
	require.NoError(t, err)
	second, err := s.GetOrCreateUser(5, true)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	// The faculty flag is only written at provisioning time.
	assert.False(t, second.Faculty)
	assert.Equal(t, first.RandomSeed, second.RandomSeed)
}

func TestSaveNicetyUpdatesInPlace(t *testing.T) {
	s := newTestStore(t)
	endDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	first := Nicety{AuthorID: 1, TargetID: 2, Anonymous: false, Text: strptr("you rock"), EndDate: endDate, DateUpdated: "2024-05-20"}
	require.NoError(t, s.SaveNicety(&first))

	second := Nicety{AuthorID: 1, TargetID: 2, Anonymous: true, Text: strptr("you really rock"), EndDate: endDate, DateUpdated: "2024-05-21"}
	require.NoError(t, s.SaveNicety(&second))

	all, err := s.AllNiceties()
	require.NoError(t, err)
	require.Len(t, all, 1, "submitting again for the same pair must not create a second row")
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, all[0].Anonymous)
	require.NotNil(t, all[0].Text)
	assert.Equal(t, "you really rock", *all[0].Text)
	assert.Equal(t, "2024-05-21", all[0].DateUpdated)
	assert.False(t, all[0].FacultyReviewed)
}

func TestSaveNicetyNullText(t *testing.T) {
	s := newTestStore(t)
	endDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	n := Nicety{AuthorID: 1, TargetID: 2, EndDate: endDate}
	require.NoError(t, s.SaveNicety(&n))

	all, err := s.AllNiceties()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].Text)
}

func TestPendingAndRevealableWindows(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	future := Nicety{AuthorID: 1, TargetID: 2, Text: strptr("soon"), EndDate: now.AddDate(0, 0, 7)}
	require.NoError(t, s.SaveNicety(&future))
	justPassed := Nicety{AuthorID: 1, TargetID: 3, Text: strptr("grace"), EndDate: now.Add(-12 * time.Hour)}
	require.NoError(t, s.SaveNicety(&justPassed))
	revealable := Nicety{AuthorID: 1, TargetID: 4, Text: strptr("old"), EndDate: now.AddDate(0, 0, -2)}
	require.NoError(t, s.SaveNicety(&revealable))

	pending, err := s.NicetiesByAuthorPending(1, now)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, int64(2), pending[0].TargetID)

	// Within the one-day grace period: hidden from the target.
	hidden, err := s.NicetiesRevealableForTarget(3, now)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	// Becomes revealable once end_date + 1 day has passed.
	shown, err := s.NicetiesRevealableForTarget(3, now.Add(36*time.Hour))
	require.NoError(t, err)
	require.Len(t, shown, 1)

	shown, err = s.NicetiesRevealableForTarget(4, now)
	require.NoError(t, err)
	require.Len(t, shown, 1)
	assert.Equal(t, int64(4), shown[0].TargetID)
}

func TestOverwriteNicetyText(t *testing.T) {
	s := newTestStore(t)
	endDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	n := Nicety{AuthorID: 1, TargetID: 2, Text: strptr("draft"), EndDate: endDate}
	require.NoError(t, s.SaveNicety(&n))

	require.NoError(t, s.OverwriteNicetyText(1, 2, "edited"))

	all, err := s.AllNiceties()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].Text)
	assert.Equal(t, "edited", *all[0].Text)
}

func TestOverwriteNicetyTextNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.OverwriteNicetyText(1, 2, "nope")
	assert.Error(t, err)
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	setting, err := s.GetSetting("include_residents")
	require.NoError(t, err)
	assert.Nil(t, setting)

	require.NoError(t, s.SetSetting("include_residents", "true"))
	require.NoError(t, s.SetSetting("include_residents", "false"))

	setting, err = s.GetSetting("include_residents")
	require.NoError(t, err)
	require.NotNil(t, setting)
	assert.Equal(t, "false", setting.Value)

	all, err := s.AllSettings()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImportProfiles(t *testing.T) {
	s := newTestStore(t)

	pages := [][]directory.Person{
		{
			{ID: 1, FirstName: "Ada", LastName: "Lovelace", Stints: []directory.Stint{
				{ID: 10, Type: "retreat", StartDate: strptr("2024-03-01"), EndDate: strptr("2024-06-01")},
			}},
			{ID: 2, FirstName: "Alan", LastName: "Turing"},
		},
		{},
	}
	calls := 0
	fetch := func(limit, offset int) ([]directory.Person, error) {
		page := pages[calls]
		calls++
		return page, nil
	}

	count, err := s.ImportProfiles(fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	exists, err := s.HasProfile(1)
	require.NoError(t, err)
	assert.True(t, exists)

	// Re-running skips everything already present.
	calls = 0
	count, err = s.ImportProfiles(fetch)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
