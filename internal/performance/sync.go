package performance

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/metrics"
	"github.com/school-system/results/internal/models"
)

// StudentSyncStatus records how one student fared in a batch sync.
type StudentSyncStatus struct {
	StudentID  uuid.UUID `json:"student_id"`
	Semester   bool      `json:"semester_synced"`
	Cumulative bool      `json:"cumulative_synced"`
	Error      string    `json:"error,omitempty"`
}

type BatchResult struct {
	Term             TermKey             `json:"term"`
	Students         []StudentSyncStatus `json:"students"`
	Updated          int                 `json:"updated"`
	Succeeded        int                 `json:"succeeded"`
	FailedSemester   int                 `json:"failed_semester"`
	FailedCumulative int                 `json:"failed_cumulative"`
	Duration         time.Duration       `json:"duration"`
}

// Partial reports whether any student failed either sync.
func (b *BatchResult) Partial() bool {
	return b.FailedSemester > 0 || b.FailedCumulative > 0
}

// SyncSemesterGPA recomputes the semester GPA of a student and upserts the
// cached record in one transaction.
func (e *Engine) SyncSemesterGPA(ctx context.Context, studentID uuid.UUID, term TermKey) error {
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		agg, err := semesterGPA(ctx, tx, studentID, term)
		if err != nil {
			return err
		}

		rec, err := tx.FindSemesterGPA(ctx, studentID, term)
		if err != nil {
			return fmt.Errorf("failed to load semester GPA: %w", err)
		}
		if rec == nil {
			rec = &models.SemesterGPA{
				StudentID:  studentID,
				SessionID:  term.SessionID,
				SemesterID: term.SemesterID,
			}
			applySemester(rec, agg)
			return tx.CreateSemesterGPA(ctx, rec)
		}
		applySemester(rec, agg)
		return tx.UpdateSemesterGPA(ctx, rec)
	})
	metrics.ObserveSync(metrics.ScopeSemester, err)
	if err != nil {
		return fmt.Errorf("failed to sync semester GPA for %s: %w", studentID, err)
	}
	e.invalidate(ctx, studentID)
	return nil
}

// SyncCumulativeGPA recomputes the CGPA and classification of a student over
// every graded term and upserts the cached record.
func (e *Engine) SyncCumulativeGPA(ctx context.Context, studentID uuid.UUID) error {
	err := e.repo.Transaction(ctx, func(tx Repository) error {
		agg, err := cumulativeGPA(ctx, tx, studentID, nil)
		if err != nil {
			return err
		}
		class := e.classifications.Classify(agg.CGPA)

		rec, err := tx.FindCumulativeGPA(ctx, studentID)
		if err != nil {
			return fmt.Errorf("failed to load cumulative GPA: %w", err)
		}
		if rec == nil {
			rec = &models.CumulativeGPA{StudentID: studentID}
			applyCumulative(rec, agg, class.Label)
			return tx.CreateCumulativeGPA(ctx, rec)
		}
		applyCumulative(rec, agg, class.Label)
		return tx.UpdateCumulativeGPA(ctx, rec)
	})
	metrics.ObserveSync(metrics.ScopeCumulative, err)
	if err != nil {
		return fmt.Errorf("failed to sync cumulative GPA for %s: %w", studentID, err)
	}
	e.invalidate(ctx, studentID)
	return nil
}

// SyncTerm syncs the semester GPA and then the full-history CGPA of every
// student graded in term. A failing student is recorded and skipped; only a
// failure to list the students aborts the batch.
func (e *Engine) SyncTerm(ctx context.Context, term TermKey) (*BatchResult, error) {
	start := time.Now()
	students, err := e.repo.StudentsGradedInTerm(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to list students for term: %w", err)
	}

	result := &BatchResult{Term: term, Students: make([]StudentSyncStatus, 0, len(students))}
	for _, id := range students {
		status := StudentSyncStatus{StudentID: id}

		if err := e.SyncSemesterGPA(ctx, id, term); err != nil {
			status.Error = err.Error()
			result.FailedSemester++
		} else {
			status.Semester = true
			result.Updated++
		}

		if err := e.SyncCumulativeGPA(ctx, id); err != nil {
			if status.Error != "" {
				status.Error += "; "
			}
			status.Error += err.Error()
			result.FailedCumulative++
		} else {
			status.Cumulative = true
		}

		if status.Semester && status.Cumulative {
			result.Succeeded++
		}
		result.Students = append(result.Students, status)
	}

	result.Duration = time.Since(start)
	metrics.BatchSyncDuration.Observe(result.Duration.Seconds())
	if result.Partial() {
		log.Printf("Term sync %s/%s finished with failures: %d semester, %d cumulative of %d students",
			term.SessionID, term.SemesterID, result.FailedSemester, result.FailedCumulative, len(students))
	}
	return result, nil
}

// ResyncAll runs SyncTerm for every graded term in chronological order.
func (e *Engine) ResyncAll(ctx context.Context) ([]*BatchResult, error) {
	terms, err := e.repo.GradedTerms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list graded terms: %w", err)
	}
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].Compare(terms[j]) < 0 })

	results := make([]*BatchResult, 0, len(terms))
	for _, t := range terms {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.SyncTerm(ctx, t.Key())
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// InvalidateTranscript drops the cached transcript of a student. Writers of
// results call it after every committed change.
func (e *Engine) InvalidateTranscript(ctx context.Context, studentID uuid.UUID) {
	e.invalidate(ctx, studentID)
}

func (e *Engine) invalidate(ctx context.Context, studentID uuid.UUID) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, studentID); err != nil {
		log.Printf("Transcript cache invalidation failed for %s: %v", studentID, err)
	}
}

func applySemester(rec *models.SemesterGPA, agg Aggregate) {
	rec.GPA = agg.GPA
	rec.TotalCreditUnits = agg.TotalCreditUnits
	rec.TotalGradePoints = agg.TotalGradePoints
	rec.CoursesCount = agg.CoursesCount
}

func applyCumulative(rec *models.CumulativeGPA, agg CumulativeAggregate, classification string) {
	rec.CGPA = agg.CGPA
	rec.TotalCreditUnits = agg.TotalCreditUnits
	rec.TotalGradePoints = agg.TotalGradePoints
	rec.CoursesCount = agg.CoursesCount
	rec.SemestersCount = agg.SemestersCount
	rec.Classification = classification
}
