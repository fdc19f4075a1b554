package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/models"
	"github.com/school-system/results/internal/performance"
	"gorm.io/gorm"
)

var (
	ErrInvalidScore    = errors.New("invalid score")
	ErrStudentNotFound = errors.New("student not found in institution")
	ErrCourseNotFound  = errors.New("course not found in institution")
	ErrTermNotFound    = errors.New("academic term not found in institution")
	ErrResultNotFound  = errors.New("result not found")
)

var validate = validator.New()

// ScoreEntry is one CA/exam score submission for a student's course in a term.
type ScoreEntry struct {
	StudentID  uuid.UUID `json:"student_id" validate:"required"`
	CourseID   uuid.UUID `json:"course_id" validate:"required"`
	SessionID  uuid.UUID `json:"session_id" validate:"required"`
	SemesterID uuid.UUID `json:"semester_id" validate:"required"`
	CAScore    float64   `json:"ca_score" validate:"gte=0,lte=100"`
	ExamScore  float64   `json:"exam_score" validate:"gte=0,lte=100"`
	Sync       bool      `json:"sync"`
}

func (e ScoreEntry) Term() performance.TermKey {
	return performance.TermKey{SessionID: e.SessionID, SemesterID: e.SemesterID}
}

// RecordOutcome reports what Record stored and whether the GPA caches were
// refreshed. A sync failure does not undo the stored result.
type RecordOutcome struct {
	Result    *models.Result `json:"result"`
	Created   bool           `json:"created"`
	Synced    bool           `json:"synced"`
	SyncError string         `json:"sync_error,omitempty"`
}

type ResultService struct {
	db     *gorm.DB
	scales *GradingScaleService
	engine *performance.Engine
}

func NewResultService(db *gorm.DB, scales *GradingScaleService, engine *performance.Engine) *ResultService {
	return &ResultService{db: db, scales: scales, engine: engine}
}

func validateEntry(entry *ScoreEntry) error {
	if err := validate.Struct(entry); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if total := entry.CAScore + entry.ExamScore; total > 100 {
		return fmt.Errorf("%w: total %.2f exceeds 100", ErrInvalidScore, total)
	}
	return nil
}

// Record enters or corrects the score of a registration and attaches the
// grade from the institution's scale. The registration is created on first
// entry.
func (s *ResultService) Record(ctx context.Context, institutionID, actor uuid.UUID, entry ScoreEntry) (*RecordOutcome, error) {
	if err := validateEntry(&entry); err != nil {
		return nil, err
	}

	scale, err := s.scales.ScaleFor(ctx, institutionID)
	if err != nil {
		return nil, err
	}

	total := grading.Round(entry.CAScore+entry.ExamScore, 2)
	outcome := scale.Classify(total)
	out := &RecordOutcome{}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := belongs(tx, &models.Student{}, entry.StudentID, institutionID, ErrStudentNotFound); err != nil {
			return err
		}
		if err := belongs(tx, &models.Course{}, entry.CourseID, institutionID, ErrCourseNotFound); err != nil {
			return err
		}
		if err := belongs(tx, &models.AcademicSession{}, entry.SessionID, institutionID, ErrTermNotFound); err != nil {
			return err
		}
		if err := belongs(tx, &models.Semester{}, entry.SemesterID, institutionID, ErrTermNotFound); err != nil {
			return err
		}

		var reg models.CourseRegistration
		err := tx.Where("student_id = ? AND course_id = ? AND session_id = ? AND semester_id = ?",
			entry.StudentID, entry.CourseID, entry.SessionID, entry.SemesterID).First(&reg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			reg = models.CourseRegistration{
				StudentID:  entry.StudentID,
				CourseID:   entry.CourseID,
				SessionID:  entry.SessionID,
				SemesterID: entry.SemesterID,
			}
			err = tx.Create(&reg).Error
		}
		if err != nil {
			return fmt.Errorf("failed to resolve registration: %w", err)
		}

		// A deleted result is revived in place; registration_id is unique.
		var result models.Result
		err = tx.Unscoped().Where("registration_id = ?", reg.ID).First(&result).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		missing := errors.Is(err, gorm.ErrRecordNotFound)
		out.Created = missing || result.DeletedAt.Valid

		result.RegistrationID = reg.ID
		result.CAScore = entry.CAScore
		result.ExamScore = entry.ExamScore
		result.TotalScore = total
		result.Grade = outcome.Grade
		result.GradePoint = outcome.Point
		result.Remark = outcome.Remark
		result.RuleVersionHash = scale.Hash()
		result.EnteredBy = &actor
		result.DeletedAt = gorm.DeletedAt{}

		if missing {
			err = tx.Create(&result).Error
		} else {
			err = tx.Unscoped().Save(&result).Error
		}
		out.Result = &result
		return err
	})
	if err != nil {
		return nil, err
	}

	if !entry.Sync {
		s.engine.InvalidateTranscript(ctx, entry.StudentID)
		return out, nil
	}
	if err := s.resync(ctx, entry.StudentID, entry.Term()); err != nil {
		log.Printf("Result %s stored but GPA sync failed: %v", out.Result.ID, err)
		out.SyncError = err.Error()
		// The sync may have failed before reaching the cache.
		s.engine.InvalidateTranscript(ctx, entry.StudentID)
	} else {
		out.Synced = true
	}
	return out, nil
}

// Delete soft-deletes a result of the institution and returns it. When sync
// is set the student's GPA records are recomputed without it.
func (s *ResultService) Delete(ctx context.Context, institutionID, resultID uuid.UUID, sync bool) (*models.Result, error) {
	var result models.Result
	err := s.db.WithContext(ctx).Preload("Registration").First(&result, "id = ?", resultID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && result.Registration == nil) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := belongs(s.db.WithContext(ctx), &models.Student{}, result.Registration.StudentID, institutionID, ErrResultNotFound); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}

	reg := result.Registration
	if !sync {
		s.engine.InvalidateTranscript(ctx, reg.StudentID)
		return &result, nil
	}
	term := performance.TermKey{SessionID: reg.SessionID, SemesterID: reg.SemesterID}
	if err := s.resync(ctx, reg.StudentID, term); err != nil {
		log.Printf("Result %s deleted but GPA sync failed: %v", result.ID, err)
		s.engine.InvalidateTranscript(ctx, reg.StudentID)
	}
	return &result, nil
}

func (s *ResultService) resync(ctx context.Context, studentID uuid.UUID, term performance.TermKey) error {
	if err := s.engine.SyncSemesterGPA(ctx, studentID, term); err != nil {
		return err
	}
	return s.engine.SyncCumulativeGPA(ctx, studentID)
}

// CourseInInstitution reports ErrCourseNotFound for courses owned elsewhere.
func (s *ResultService) CourseInInstitution(ctx context.Context, courseID, institutionID uuid.UUID) error {
	return belongs(s.db.WithContext(ctx), &models.Course{}, courseID, institutionID, ErrCourseNotFound)
}

// CourseScale returns the score scale of the institution that owns a course.
func (s *ResultService) CourseScale(ctx context.Context, courseID uuid.UUID) (*grading.Scale, error) {
	var course models.Course
	err := s.db.WithContext(ctx).Select("id", "institution_id").First(&course, "id = ?", courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.scales.ScaleFor(ctx, course.InstitutionID)
}

func belongs(db *gorm.DB, model any, id, institutionID uuid.UUID, notFound error) error {
	var count int64
	if err := db.Model(model).Where("id = ? AND institution_id = ?", id, institutionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}
