package operatorfeed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDayType(t *testing.T) {
	tests := []struct {
		code      string
		want      DayType
		serviceID string
	}{
		{"PW", Weekday, "WD"},
		{"SB", Saturday, "SA"},
		{"ND", Sunday, "SU"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			dayType, err := ParseDayType(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dayType)
			assert.Equal(t, tt.code, dayType.Code())
			assert.Equal(t, tt.serviceID, dayType.ServiceID())
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		_, err := ParseDayType("XX")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownDayType)
		assert.Contains(t, err.Error(), `"XX"`)
	})
}

func TestDayTypeWeekdays(t *testing.T) {
	assert.Equal(t, [7]bool{true, true, true, true, true, false, false}, Weekday.Weekdays())
	assert.Equal(t, [7]bool{false, false, false, false, false, true, false}, Saturday.Weekdays())
	assert.Equal(t, [7]bool{false, false, false, false, false, false, true}, Sunday.Weekdays())
}

func TestParseFirstMinutes(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"000", 0},
		{"5", 5},
		{"45", 45},
		{"712", 432},
		{"1230", 750},
		{"2359", 1439},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			minutes, err := ParseFirstMinutes(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, minutes)
		})
	}

	t.Run("not a number", func(t *testing.T) {
		_, err := ParseFirstMinutes("7a2")
		assert.Error(t, err)
	})
}

func TestDecodeMinutes(t *testing.T) {
	tests := []struct {
		name     string
		firstRaw string
		raw      string
		want     int
	}{
		{"first entry of the group", "712", "712", 432},
		{"midnight", "000", "000", 0},
		{"later entry adds the numeric difference", "712", "800", 520},
		{"difference below one hundred", "712", "745", 465},
		{"first entry at midnight", "000", "324", 324},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			minutes, err := DecodeMinutes(tt.firstRaw, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, minutes)
		})
	}

	t.Run("invalid entry", func(t *testing.T) {
		_, err := DecodeMinutes("712", "x")
		assert.Error(t, err)
	})
}
