package operatorfeed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DayType is the closed set of schedule day types the operator publishes.
type DayType int

const (
	Weekday DayType = iota
	Saturday
	Sunday
)

// ErrUnknownDayType is returned for a day type code outside PW, SB and ND.
var ErrUnknownDayType = errors.New("unknown day type")

var dayTypes = []DayType{Weekday, Saturday, Sunday}

func ParseDayType(code string) (DayType, error) {
	switch code {
	case "PW":
		return Weekday, nil
	case "SB":
		return Saturday, nil
	case "ND":
		return Sunday, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDayType, code)
}

// Code is the operator's abbreviation.
func (d DayType) Code() string {
	switch d {
	case Saturday:
		return "SB"
	case Sunday:
		return "ND"
	default:
		return "PW"
	}
}

// ServiceID is the calendar.txt service the day type runs on.
func (d DayType) ServiceID() string {
	switch d {
	case Saturday:
		return "SA"
	case Sunday:
		return "SU"
	default:
		return "WD"
	}
}

// Weekdays is the Monday-first service mask.
func (d DayType) Weekdays() [7]bool {
	switch d {
	case Saturday:
		return [7]bool{5: true}
	case Sunday:
		return [7]bool{6: true}
	default:
		return [7]bool{true, true, true, true, true, false, false}
	}
}

// ParseFirstMinutes reads an "HMM"/"HHMM" departure: the last two digits are
// minutes, everything before them hours.
func ParseFirstMinutes(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) < 3 {
		raw = strings.Repeat("0", 3-len(raw)) + raw
	}
	hours, err := strconv.Atoi(raw[:len(raw)-2])
	if err != nil {
		return 0, fmt.Errorf("invalid departure %q: %w", raw, err)
	}
	minutes, err := strconv.Atoi(raw[len(raw)-2:])
	if err != nil {
		return 0, fmt.Errorf("invalid departure %q: %w", raw, err)
	}
	return hours*60 + minutes, nil
}

// DecodeMinutes returns the minutes after midnight of raw, an entry of a
// group whose first entry was firstRaw. Only the first entry is decoded as a
// clock time; for the others the numeric difference between raw and firstRaw
// is added to it.
func DecodeMinutes(firstRaw, raw string) (int, error) {
	first, err := ParseFirstMinutes(firstRaw)
	if err != nil {
		return 0, err
	}
	firstValue, err := strconv.Atoi(strings.TrimSpace(firstRaw))
	if err != nil {
		return 0, fmt.Errorf("invalid departure %q: %w", firstRaw, err)
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid departure %q: %w", raw, err)
	}
	return first - firstValue + value, nil
}
