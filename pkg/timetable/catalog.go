// Package timetable holds the fixed day and period tables used to render sections.
package timetable

import "fmt"

// Day bounds. Day codes follow the convention 2=Monday ... 8=Sunday.
const (
	FirstDay = 2
	LastDay  = 8
)

// Period bounds for a teaching day.
const (
	FirstPeriod = 1
	LastPeriod  = 12

	// LastMorningPeriod is the final period of the morning session.
	LastMorningPeriod = 6
	// MaxConsecutivePeriods is the advisory limit for a single section span.
	MaxConsecutivePeriods = 5
)

// Session labels.
const (
	SessionMorning   = "Morning"
	SessionAfternoon = "Afternoon"
)

// Day describes a weekday code.
type Day struct {
	Code         int    `json:"code"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// Period describes the wall-clock window of a teaching period.
type Period struct {
	Number int    `json:"number"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

var days = []Day{
	{Code: 2, Name: "Monday", Abbreviation: "Mon"},
	{Code: 3, Name: "Tuesday", Abbreviation: "Tue"},
	{Code: 4, Name: "Wednesday", Abbreviation: "Wed"},
	{Code: 5, Name: "Thursday", Abbreviation: "Thu"},
	{Code: 6, Name: "Friday", Abbreviation: "Fri"},
	{Code: 7, Name: "Saturday", Abbreviation: "Sat"},
	{Code: 8, Name: "Sunday", Abbreviation: "Sun"},
}

var periods = []Period{
	{Number: 1, Start: "07:00", End: "07:50"},
	{Number: 2, Start: "07:50", End: "08:40"},
	{Number: 3, Start: "08:50", End: "09:40"},
	{Number: 4, Start: "09:40", End: "10:30"},
	{Number: 5, Start: "10:40", End: "11:30"},
	{Number: 6, Start: "11:30", End: "12:20"},
	{Number: 7, Start: "13:00", End: "13:50"},
	{Number: 8, Start: "13:50", End: "14:40"},
	{Number: 9, Start: "14:50", End: "15:40"},
	{Number: 10, Start: "15:40", End: "16:30"},
	{Number: 11, Start: "16:40", End: "17:30"},
	{Number: 12, Start: "17:30", End: "18:20"},
}

// Days returns every weekday in display order.
func Days() []Day {
	out := make([]Day, len(days))
	copy(out, days)
	return out
}

// Periods returns every period in order.
func Periods() []Period {
	out := make([]Period, len(periods))
	copy(out, periods)
	return out
}

// ValidDay reports whether code is a known weekday.
func ValidDay(code int) bool {
	return code >= FirstDay && code <= LastDay
}

// ValidPeriod reports whether n is a known period.
func ValidPeriod(n int) bool {
	return n >= FirstPeriod && n <= LastPeriod
}

// LookupDay returns the day for a code.
func LookupDay(code int) (Day, bool) {
	if !ValidDay(code) {
		return Day{}, false
	}
	return days[code-FirstDay], true
}

// DayCode resolves a full name or abbreviation back to its code.
func DayCode(name string) (int, bool) {
	for _, d := range days {
		if d.Name == name || d.Abbreviation == name {
			return d.Code, true
		}
	}
	return 0, false
}

// DayName returns the full weekday name, or "Unknown".
func DayName(code int) string {
	if d, ok := LookupDay(code); ok {
		return d.Name
	}
	return "Unknown"
}

// DayAbbreviation returns the short weekday name, or "?".
func DayAbbreviation(code int) string {
	if d, ok := LookupDay(code); ok {
		return d.Abbreviation
	}
	return "?"
}

// LookupPeriod returns the period window.
func LookupPeriod(n int) (Period, bool) {
	if !ValidPeriod(n) {
		return Period{}, false
	}
	return periods[n-FirstPeriod], true
}

// PeriodAt returns the period that starts at the given wall-clock time.
func PeriodAt(start string) (int, bool) {
	for _, p := range periods {
		if p.Start == start {
			return p.Number, true
		}
	}
	return 0, false
}

// PeriodStart returns the start time of a period, or "??".
func PeriodStart(n int) string {
	if p, ok := LookupPeriod(n); ok {
		return p.Start
	}
	return "??"
}

// PeriodEnd returns the end time of a period, or "??".
func PeriodEnd(n int) string {
	if p, ok := LookupPeriod(n); ok {
		return p.End
	}
	return "??"
}

// TimeRange renders "07:00 - 09:40" for periods 1-3.
func TimeRange(startPeriod, endPeriod int) string {
	return fmt.Sprintf("%s - %s", PeriodStart(startPeriod), PeriodEnd(endPeriod))
}

// PeriodRange renders "Period 1-3", or "Period 4" for a single period.
func PeriodRange(startPeriod, endPeriod int) string {
	if startPeriod == endPeriod {
		return fmt.Sprintf("Period %d", startPeriod)
	}
	return fmt.Sprintf("Period %d-%d", startPeriod, endPeriod)
}

// PeriodCount is the inclusive number of periods in a span.
func PeriodCount(startPeriod, endPeriod int) int {
	return endPeriod - startPeriod + 1
}

// Session classifies a start period as Morning or Afternoon.
func Session(startPeriod int) string {
	if startPeriod <= LastMorningPeriod {
		return SessionMorning
	}
	return SessionAfternoon
}

// Summary renders "Mon, Period 1-3, A101".
func Summary(dayOfWeek, startPeriod, endPeriod int, room string) string {
	return fmt.Sprintf("%s, %s, %s", DayAbbreviation(dayOfWeek), PeriodRange(startPeriod, endPeriod), room)
}
