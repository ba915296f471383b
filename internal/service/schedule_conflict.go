package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/pkg/timetable"
)

// ConflictReport holds the first collision found on each axis.
type ConflictReport struct {
	Faculty *models.Section
	Room    *models.Section
}

// HasConflict reports whether either axis collided.
func (r ConflictReport) HasConflict() bool {
	return r.Faculty != nil || r.Room != nil
}

// ScheduleValidation is the structural check result for a section candidate.
// Warnings are advisory and never reject the candidate.
type ScheduleValidation struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Valid reports whether no structural errors were found.
func (v ScheduleValidation) Valid() bool {
	return len(v.Errors) == 0
}

// PeriodsOverlap reports whether two sections on the same day share a period (inclusive bounds).
func PeriodsOverlap(day1, start1, end1, day2, start2, end2 int) bool {
	if day1 != day2 {
		return false
	}
	return !(end1 < start2 || start1 > end2)
}

// ValidateSchedule checks day and period ranges.
func ValidateSchedule(dayOfWeek, startPeriod, endPeriod int) ScheduleValidation {
	var v ScheduleValidation
	if !timetable.ValidDay(dayOfWeek) {
		v.Errors = append(v.Errors, "day of week must be between 2 (Monday) and 8 (Sunday)")
	}
	if !timetable.ValidPeriod(startPeriod) {
		v.Errors = append(v.Errors, "start period must be between 1 and 12")
	}
	if !timetable.ValidPeriod(endPeriod) {
		v.Errors = append(v.Errors, "end period must be between 1 and 12")
	}
	if endPeriod < startPeriod {
		v.Errors = append(v.Errors, "end period must be greater than or equal to start period")
	}
	if timetable.PeriodCount(startPeriod, endPeriod) > timetable.MaxConsecutivePeriods {
		v.Warnings = append(v.Warnings, fmt.Sprintf("should not schedule more than %d consecutive periods", timetable.MaxConsecutivePeriods))
	}
	return v
}

// FindConflicts compares candidate against the existing working set. Inactive sections,
// sections of other semesters and the candidate itself (on edit) are ignored.
func FindConflicts(candidate models.Section, existing []models.Section) ConflictReport {
	var report ConflictReport
	for i := range existing {
		other := existing[i]
		if !other.Active || other.Semester != candidate.Semester || other.AcademicYear != candidate.AcademicYear {
			continue
		}
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if !PeriodsOverlap(other.DayOfWeek, other.StartPeriod, other.EndPeriod, candidate.DayOfWeek, candidate.StartPeriod, candidate.EndPeriod) {
			continue
		}
		if report.Faculty == nil && other.FacultyID == candidate.FacultyID {
			report.Faculty = &other
		}
		if report.Room == nil && sameRoom(other.Room, candidate.Room) {
			report.Room = &other
		}
		if report.Faculty != nil && report.Room != nil {
			break
		}
	}
	return report
}

// ConflictError renders a report as the structured error returned to callers.
// courseNames maps course ids to display names and may be nil.
func ConflictError(candidate models.Section, report ConflictReport, courseNames map[string]string) *models.ScheduleConflictError {
	if !report.HasConflict() {
		return nil
	}
	out := &models.ScheduleConflictError{}
	if report.Faculty != nil {
		c := describeConflict(models.ConflictAxisFaculty, *report.Faculty)
		c.Message = fmt.Sprintf("faculty already has a class for '%s' at %s", courseLabel(*report.Faculty, courseNames), c.TimeRange)
		out.FacultyConflict = &c
	}
	if report.Room != nil {
		c := describeConflict(models.ConflictAxisRoom, *report.Room)
		c.Message = fmt.Sprintf("room %s is already used by '%s' at %s", candidate.Room, courseLabel(*report.Room, courseNames), c.TimeRange)
		out.RoomConflict = &c
	}
	return out
}

func describeConflict(axis models.ConflictAxis, s models.Section) models.SectionConflict {
	return models.SectionConflict{
		Axis:        axis,
		SectionID:   s.ID,
		CourseID:    s.CourseID,
		FacultyID:   s.FacultyID,
		Room:        s.Room,
		DayOfWeek:   s.DayOfWeek,
		DayName:     timetable.DayName(s.DayOfWeek),
		StartPeriod: s.StartPeriod,
		EndPeriod:   s.EndPeriod,
		TimeRange:   timetable.TimeRange(s.StartPeriod, s.EndPeriod),
	}
}

func courseLabel(s models.Section, names map[string]string) string {
	if name, ok := names[s.CourseID]; ok && name != "" {
		return name
	}
	return s.CourseID
}

func sameRoom(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
