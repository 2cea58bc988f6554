package utils

import (
	"strings"
	"time"

	"recurse.com/niceties/internal/directory"
)

// DateLayout is the date format used by the directory API.
const DateLayout = "2006-01-02"

// batchWindow is how far back a batch end date may lie while the batch
// still counts as current.
const batchWindow = 30 * 24 * time.Hour

// NameFromPerson returns the short display name for a directory record.
func NameFromPerson(p directory.Person) string {
	return p.FirstName
}

// FullNameFromPerson returns the person's full name.
func FullNameFromPerson(p directory.Person) string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ParseDate parses a directory date string.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// LatestEndDate returns the maximum end date across stints with a
// non-null end date, or nil when none exists.
func LatestEndDate(stints []directory.Stint) *time.Time {
	var latest *time.Time
	for _, stint := range stints {
		if stint.EndDate == nil {
			continue
		}
		end, err := ParseDate(*stint.EndDate)
		if err != nil {
			continue
		}
		if latest == nil || end.After(*latest) {
			latest = &end
		}
	}
	return latest
}

// IsCurrentBatch reports whether a batch with the given end date still
// counts as current at now.
func IsCurrentBatch(endDate string, now time.Time) bool {
	end, err := ParseDate(endDate)
	if err != nil {
		return false
	}
	return !end.Before(now.Add(-batchWindow))
}
