package service

import "github.com/noah-isme/sims-enrollment-api/internal/models"

// Score weights and thresholds.
const (
	MidtermWeight float32 = 0.4
	FinalWeight   float32 = 0.6
	PassThreshold float32 = 5.0
	MinScore      float32 = 0
	MaxScore      float32 = 10
)

// LetterF is the failing grade.
const LetterF = "F"

type gradeBand struct {
	Min    float32
	Letter string
}

// scanned top-down; first band whose Min <= average wins
var gradeBands = []gradeBand{
	{Min: 9.0, Letter: "A+"},
	{Min: 8.5, Letter: "A"},
	{Min: 8.0, Letter: "B+"},
	{Min: 7.0, Letter: "B"},
	{Min: 6.5, Letter: "C+"},
	{Min: 5.5, Letter: "C"},
	{Min: 5.0, Letter: "D+"},
	{Min: 4.0, Letter: "D"},
	{Min: 0, Letter: LetterF},
}

// GradeEvaluation holds the derived fields of an enrollment.
type GradeEvaluation struct {
	AverageScore *float32
	LetterGrade  *string
	Status       models.EnrollmentStatus
	IsFailed     bool
}

// AverageScore computes midterm*0.4 + final*0.6 in single precision.
// Each product is rounded separately so the result does not depend on FMA contraction.
func AverageScore(midterm, final float32) float32 {
	return float32(midterm*MidtermWeight) + float32(final*FinalWeight)
}

// LetterGrade maps an average onto the band table.
func LetterGrade(average float32) string {
	for _, band := range gradeBands {
		if average >= band.Min {
			return band.Letter
		}
	}
	return LetterF
}

// IsPassed reports whether the average reaches the pass threshold.
func IsPassed(average float32) bool {
	return average >= PassThreshold
}

// EvaluateAverage derives letter, status and failure from a complete average.
// A failing average is always graded F.
func EvaluateAverage(average float32) (string, models.EnrollmentStatus, bool) {
	if !IsPassed(average) {
		return LetterF, models.EnrollmentStatusFailed, true
	}
	return LetterGrade(average), models.EnrollmentStatusCompleted, false
}

// EvaluateGrades derives the grading fields from the two scores. While either score is
// missing the current status is kept.
func EvaluateGrades(midterm, final *float32, current models.EnrollmentStatus) GradeEvaluation {
	if midterm == nil || final == nil {
		return GradeEvaluation{Status: current}
	}
	avg := AverageScore(*midterm, *final)
	letter, status, failed := EvaluateAverage(avg)
	return GradeEvaluation{AverageScore: &avg, LetterGrade: &letter, Status: status, IsFailed: failed}
}

// ApplyGrades writes scores and derived fields onto an enrollment.
func ApplyGrades(e *models.Enrollment, midterm, final *float32) GradeEvaluation {
	eval := EvaluateGrades(midterm, final, e.Status)
	e.MidtermScore = copyScore(midterm)
	e.FinalScore = copyScore(final)
	e.AverageScore = eval.AverageScore
	e.LetterGrade = eval.LetterGrade
	e.IsFailed = eval.IsFailed
	e.Status = eval.Status
	return eval
}

// GPA is the mean average over graded enrollments, 0 when none are graded.
func GPA(enrollments []models.Enrollment) float32 {
	var sum float32
	count := 0
	for _, e := range enrollments {
		if e.AverageScore == nil {
			continue
		}
		sum += *e.AverageScore
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float32(count)
}

func copyScore(v *float32) *float32 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
