package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"recurse.com/niceties/internal/directory"
)

func strptr(s string) *string { return &s }

func TestFullNameFromPerson(t *testing.T) {
	p := directory.Person{FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "Ada", NameFromPerson(p))
	assert.Equal(t, "Ada Lovelace", FullNameFromPerson(p))
}

func TestLatestEndDate(t *testing.T) {
	tests := []struct {
		name   string
		stints []directory.Stint
		want   *string
	}{
		{
			name:   "no stints",
			stints: nil,
			want:   nil,
		},
		{
			name: "all end dates null",
			stints: []directory.Stint{
				{Type: "retreat", EndDate: nil},
			},
			want: nil,
		},
		{
			name: "maximum across stints",
			stints: []directory.Stint{
				{Type: "retreat", EndDate: strptr("2024-01-01")},
				{Type: "residency", EndDate: strptr("2024-06-01")},
				{Type: "retreat", EndDate: strptr("2024-03-15")},
			},
			want: strptr("2024-06-01"),
		},
		{
			name: "null entries skipped",
			stints: []directory.Stint{
				{Type: "retreat", EndDate: nil},
				{Type: "retreat", EndDate: strptr("2023-12-01")},
			},
			want: strptr("2023-12-01"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LatestEndDate(tt.stints)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			expected, err := ParseDate(*tt.want)
			require.NoError(t, err)
			assert.True(t, got.Equal(expected))
		})
	}
}

func TestIsCurrentBatch(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, IsCurrentBatch("2024-06-20", now), "future end date is current")
	assert.True(t, IsCurrentBatch("2024-06-01", now), "recently ended batch is current")
	assert.False(t, IsCurrentBatch("2024-01-01", now), "long-ended batch is not current")
	assert.False(t, IsCurrentBatch("not-a-date", now))
}
