package utils

import (
	"fmt"
	"time"
)

// GTFSDateLayout is the YYYYMMDD layout used by calendar.txt and feed_info.txt.
const GTFSDateLayout = "20060102"

// FormatGTFSTime renders minutes after midnight as HH:MM:SS. Hours keep
// counting past 24 for trips that run after midnight. Negative minutes have
// no GTFS rendering; callers drop them first.
func FormatGTFSTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}

// FormatGTFSDate renders the calendar date of t.
func FormatGTFSDate(t time.Time) string {
	return t.Format(GTFSDateLayout)
}

// ParseGTFSDate parses a YYYYMMDD date.
func ParseGTFSDate(value string) (time.Time, error) {
	parsed, err := time.Parse(GTFSDateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid GTFS date %q: %w", value, err)
	}
	return parsed, nil
}
