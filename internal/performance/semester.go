package performance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/grading"
)

// Aggregate is a credit-weighted grade point average over a set of graded
// registrations. TotalGradePoints is the unrounded sum of point x units.
type Aggregate struct {
	GPA              float64 `json:"gpa"`
	TotalCreditUnits int     `json:"total_credit_units"`
	TotalGradePoints float64 `json:"total_grade_points"`
	CoursesCount     int     `json:"courses_count"`
}

func aggregate(rows []GradedRegistration) Aggregate {
	var agg Aggregate
	for _, r := range rows {
		agg.TotalCreditUnits += r.CreditUnits
		agg.TotalGradePoints += r.GradePoint * float64(r.CreditUnits)
		agg.CoursesCount++
	}
	if agg.TotalCreditUnits > 0 {
		agg.GPA = grading.Round(agg.TotalGradePoints/float64(agg.TotalCreditUnits), 2)
	}
	return agg
}

// SemesterGPA computes the GPA of one student for one term. A term without
// graded registrations yields a zero Aggregate.
func (e *Engine) SemesterGPA(ctx context.Context, studentID uuid.UUID, term TermKey) (Aggregate, error) {
	return semesterGPA(ctx, e.repo, studentID, term)
}

func semesterGPA(ctx context.Context, repo Repository, studentID uuid.UUID, term TermKey) (Aggregate, error) {
	rows, err := repo.GradedRegistrations(ctx, RegistrationFilter{StudentID: &studentID, Term: &term})
	if err != nil {
		return Aggregate{}, fmt.Errorf("failed to load semester registrations: %w", err)
	}
	return aggregate(rows), nil
}
