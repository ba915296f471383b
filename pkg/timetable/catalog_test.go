package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayLookupsRoundTrip(t *testing.T) {
	for _, d := range Days() {
		code, ok := DayCode(d.Name)
		assert.True(t, ok)
		assert.Equal(t, d.Code, code)

		code, ok = DayCode(d.Abbreviation)
		assert.True(t, ok)
		assert.Equal(t, d.Code, code)
	}
	assert.Equal(t, "Monday", DayName(2))
	assert.Equal(t, "Sun", DayAbbreviation(8))
	assert.Equal(t, "Unknown", DayName(1))
	assert.Equal(t, "?", DayAbbreviation(9))

	_, ok := DayCode("Funday")
	assert.False(t, ok)
}

func TestPeriodLookups(t *testing.T) {
	assert.Len(t, Periods(), 12)
	for _, p := range Periods() {
		n, ok := PeriodAt(p.Start)
		assert.True(t, ok)
		assert.Equal(t, p.Number, n)
	}
	assert.Equal(t, "07:00", PeriodStart(1))
	assert.Equal(t, "18:20", PeriodEnd(12))
	assert.Equal(t, "??", PeriodStart(0))
	assert.Equal(t, "??", PeriodEnd(13))
}

func TestRendering(t *testing.T) {
	assert.Equal(t, "07:00 - 09:40", TimeRange(1, 3))
	assert.Equal(t, "13:00 - 18:20", TimeRange(7, 12))
	assert.Equal(t, "Period 1-3", PeriodRange(1, 3))
	assert.Equal(t, "Period 4", PeriodRange(4, 4))
	assert.Equal(t, 3, PeriodCount(1, 3))
	assert.Equal(t, "Mon, Period 1-3, A101", Summary(2, 1, 3, "A101"))
}

func TestSession(t *testing.T) {
	assert.Equal(t, SessionMorning, Session(1))
	assert.Equal(t, SessionMorning, Session(6))
	assert.Equal(t, SessionAfternoon, Session(7))
	assert.Equal(t, SessionAfternoon, Session(12))
}

func TestCopiesAreIndependent(t *testing.T) {
	d := Days()
	d[0].Name = "changed"
	assert.Equal(t, "Monday", DayName(2))
}
