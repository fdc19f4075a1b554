package performance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/metrics"
)

type CourseRow struct {
	CourseID    uuid.UUID `json:"course_id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	CreditUnits int       `json:"credit_units"`
	CAScore     float64   `json:"ca_score"`
	ExamScore   float64   `json:"exam_score"`
	TotalScore  float64   `json:"total_score"`
	Grade       string    `json:"grade"`
	GradePoint  float64   `json:"grade_point"`
	Remark      string    `json:"remark"`
}

type TermResult struct {
	Term    Term        `json:"term"`
	Courses []CourseRow `json:"courses"`
	Aggregate
}

type Summary struct {
	CumulativeAggregate
	Classification grading.Classification `json:"classification"`
}

type Transcript struct {
	Student     StudentProfile `json:"student"`
	Terms       []TermResult   `json:"terms"`
	Summary     Summary        `json:"summary"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// Transcript assembles every graded term of a student with its GPA and the
// cumulative summary. It returns ErrStudentNotFound for unknown students.
func (e *Engine) Transcript(ctx context.Context, studentID uuid.UUID) (*Transcript, error) {
	if e.cache != nil {
		var cached Transcript
		hit, err := e.cache.Load(ctx, studentID, &cached)
		if err != nil {
			log.Printf("Transcript cache read failed for %s: %v", studentID, err)
		}
		if hit {
			metrics.TranscriptCacheTotal.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		metrics.TranscriptCacheTotal.WithLabelValues("miss").Inc()
	}

	t, err := e.buildTranscript(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Store(ctx, studentID, t); err != nil {
			log.Printf("Transcript cache write failed for %s: %v", studentID, err)
		}
	}
	return t, nil
}

func (e *Engine) buildTranscript(ctx context.Context, studentID uuid.UUID) (*Transcript, error) {
	student, err := e.repo.Student(ctx, studentID)
	if err != nil {
		return nil, err
	}

	rows, err := e.repo.GradedRegistrations(ctx, RegistrationFilter{StudentID: &studentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}

	terms := groupByTerm(rows)
	results := make([]TermResult, 0, len(terms))
	for _, g := range terms {
		courses := make([]CourseRow, 0, len(g.rows))
		for _, r := range g.rows {
			courses = append(courses, CourseRow{
				CourseID:    r.CourseID,
				Code:        r.CourseCode,
				Title:       r.CourseTitle,
				CreditUnits: r.CreditUnits,
				CAScore:     r.CAScore,
				ExamScore:   r.ExamScore,
				TotalScore:  r.TotalScore,
				Grade:       r.Grade,
				GradePoint:  r.GradePoint,
				Remark:      r.Remark,
			})
		}
		results = append(results, TermResult{
			Term:      g.term,
			Courses:   courses,
			Aggregate: aggregate(g.rows),
		})
	}

	cumulative := cumulate(rows)
	return &Transcript{
		Student: *student,
		Terms:   results,
		Summary: Summary{
			CumulativeAggregate: cumulative,
			Classification:      e.classifications.Classify(cumulative.CGPA),
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

type termGroup struct {
	term Term
	rows []GradedRegistration
}

// groupByTerm keeps the first-seen order of terms, which is chronological
// because repositories return rows ordered by term.
func groupByTerm(rows []GradedRegistration) []*termGroup {
	var groups []*termGroup
	index := make(map[TermKey]*termGroup)
	for _, r := range rows {
		key := r.Term.Key()
		g, ok := index[key]
		if !ok {
			g = &termGroup{term: r.Term}
			index[key] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, r)
	}
	return groups
}
