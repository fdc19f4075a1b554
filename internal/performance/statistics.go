package performance

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/grading"
)

type CourseStatistics struct {
	CourseID          uuid.UUID      `json:"course_id"`
	Term              TermKey        `json:"term"`
	StudentCount      int            `json:"student_count"`
	HighestScore      float64        `json:"highest_score"`
	LowestScore       float64        `json:"lowest_score"`
	AverageScore      float64        `json:"average_score"`
	MedianScore       float64        `json:"median_score"`
	PassRate          float64        `json:"pass_rate"`
	GradeDistribution map[string]int `json:"grade_distribution"`
}

// CourseStatistics summarises the total scores of every graded registration
// of a course in one term. It returns nil when nothing has been graded.
func (e *Engine) CourseStatistics(ctx context.Context, courseID uuid.UUID, term TermKey) (*CourseStatistics, error) {
	return e.CourseStatisticsWithScale(ctx, courseID, term, e.scale)
}

// CourseStatisticsWithScale is CourseStatistics with pass rates judged
// against the floor grade of scale, typically the owning institution's.
func (e *Engine) CourseStatisticsWithScale(ctx context.Context, courseID uuid.UUID, term TermKey, scale *grading.Scale) (*CourseStatistics, error) {
	if scale == nil {
		scale = e.scale
	}
	rows, err := e.repo.GradedRegistrations(ctx, RegistrationFilter{CourseID: &courseID, Term: &term})
	if err != nil {
		return nil, fmt.Errorf("failed to load course results: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	stats := summarise(rows, scale.FailGrade())
	stats.CourseID = courseID
	stats.Term = term
	return stats, nil
}

func summarise(rows []GradedRegistration, failGrade string) *CourseStatistics {
	scores := make([]float64, 0, len(rows))
	dist := make(map[string]int)
	var sum float64
	failed := 0

	for _, r := range rows {
		scores = append(scores, r.TotalScore)
		sum += r.TotalScore
		dist[r.Grade]++
		if r.Grade == failGrade {
			failed++
		}
	}
	sort.Float64s(scores)

	n := len(scores)
	return &CourseStatistics{
		StudentCount:      n,
		HighestScore:      scores[n-1],
		LowestScore:       scores[0],
		AverageScore:      grading.Round(sum/float64(n), 2),
		MedianScore:       median(scores),
		PassRate:          grading.Round(float64(n-failed)/float64(n)*100, 1),
		GradeDistribution: dist,
	}
}

// median expects sorted, non-empty input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
