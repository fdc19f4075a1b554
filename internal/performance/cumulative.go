package performance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type CumulativeAggregate struct {
	CGPA             float64 `json:"cgpa"`
	TotalCreditUnits int     `json:"total_credit_units"`
	TotalGradePoints float64 `json:"total_grade_points"`
	CoursesCount     int     `json:"courses_count"`
	SemestersCount   int     `json:"semesters_count"`
}

func cumulate(rows []GradedRegistration) CumulativeAggregate {
	terms := make(map[TermKey]struct{})
	for _, r := range rows {
		terms[r.Term.Key()] = struct{}{}
	}
	agg := aggregate(rows)
	return CumulativeAggregate{
		CGPA:             agg.GPA,
		TotalCreditUnits: agg.TotalCreditUnits,
		TotalGradePoints: agg.TotalGradePoints,
		CoursesCount:     agg.CoursesCount,
		SemestersCount:   len(terms),
	}
}

// CumulativeGPA computes a student's CGPA over every graded term, or over the
// terms up to and including cutoff when it is non-nil.
func (e *Engine) CumulativeGPA(ctx context.Context, studentID uuid.UUID, cutoff *TermKey) (CumulativeAggregate, error) {
	return cumulativeGPA(ctx, e.repo, studentID, cutoff)
}

func cumulativeGPA(ctx context.Context, repo Repository, studentID uuid.UUID, cutoff *TermKey) (CumulativeAggregate, error) {
	rows, err := repo.GradedRegistrations(ctx, RegistrationFilter{StudentID: &studentID})
	if err != nil {
		return CumulativeAggregate{}, fmt.Errorf("failed to load registrations: %w", err)
	}

	if cutoff != nil {
		limit, err := repo.Term(ctx, *cutoff)
		if err != nil {
			return CumulativeAggregate{}, err
		}
		var kept []GradedRegistration
		for _, r := range rows {
			if r.Term.Compare(*limit) <= 0 {
				kept = append(kept, r)
			}
		}
		rows = kept
	}

	return cumulate(rows), nil
}
