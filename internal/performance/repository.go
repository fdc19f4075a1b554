package performance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/models"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrTermNotFound    = errors.New("academic term not found")
)

// TermKey identifies a semester within a session. It is comparable and is
// used directly as a map key when counting distinct terms.
type TermKey struct {
	SessionID  uuid.UUID `json:"session_id"`
	SemesterID uuid.UUID `json:"semester_id"`
}

// Term is a TermKey with the names and ordinals needed for display and
// chronological ordering.
type Term struct {
	SessionID     uuid.UUID `json:"session_id"`
	SessionName   string    `json:"session_name"`
	SessionOrder  int       `json:"-"`
	SemesterID    uuid.UUID `json:"semester_id"`
	SemesterName  string    `json:"semester_name"`
	SemesterOrder int       `json:"-"`
}

func (t Term) Key() TermKey {
	return TermKey{SessionID: t.SessionID, SemesterID: t.SemesterID}
}

// Compare orders terms by session, then by semester within the session.
func (t Term) Compare(o Term) int {
	switch {
	case t.SessionOrder < o.SessionOrder:
		return -1
	case t.SessionOrder > o.SessionOrder:
		return 1
	case t.SemesterOrder < o.SemesterOrder:
		return -1
	case t.SemesterOrder > o.SemesterOrder:
		return 1
	}
	return 0
}

// GradedRegistration is a course registration joined with its result and the
// course's current credit units.
type GradedRegistration struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	StudentID      uuid.UUID `json:"student_id"`
	CourseID       uuid.UUID `json:"course_id"`
	CourseCode     string    `json:"course_code"`
	CourseTitle    string    `json:"course_title"`
	CreditUnits    int       `json:"credit_units"`
	Term           Term      `json:"term"`
	CAScore        float64   `json:"ca_score"`
	ExamScore      float64   `json:"exam_score"`
	TotalScore     float64   `json:"total_score"`
	Grade          string    `json:"grade"`
	GradePoint     float64   `json:"grade_point"`
	Remark         string    `json:"remark"`
}

// RegistrationFilter narrows GradedRegistrations. Nil fields are not applied.
type RegistrationFilter struct {
	StudentID *uuid.UUID
	CourseID  *uuid.UUID
	Term      *TermKey
}

type StudentProfile struct {
	ID            uuid.UUID `json:"id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	MatricNo      string    `json:"matric_no"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	OtherName     string    `json:"other_name,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	Level         string    `json:"level,omitempty"`
	Email         string    `json:"email,omitempty"`
	Department    string    `json:"department,omitempty"`
	Institution   string    `json:"institution,omitempty"`
}

// Repository is the storage capability the engine needs. Implementations
// must return graded registrations in chronological term order, then by
// course code.
type Repository interface {
	GradedRegistrations(ctx context.Context, filter RegistrationFilter) ([]GradedRegistration, error)
	// Student returns ErrStudentNotFound when the student does not exist.
	Student(ctx context.Context, studentID uuid.UUID) (*StudentProfile, error)
	// Term returns ErrTermNotFound when either half of the key is unknown.
	Term(ctx context.Context, key TermKey) (*Term, error)
	StudentsGradedInTerm(ctx context.Context, key TermKey) ([]uuid.UUID, error)
	// GradedTerms lists every term with at least one graded registration.
	GradedTerms(ctx context.Context) ([]Term, error)

	// FindSemesterGPA and FindCumulativeGPA return nil, nil when no record exists.
	FindSemesterGPA(ctx context.Context, studentID uuid.UUID, key TermKey) (*models.SemesterGPA, error)
	CreateSemesterGPA(ctx context.Context, rec *models.SemesterGPA) error
	UpdateSemesterGPA(ctx context.Context, rec *models.SemesterGPA) error
	FindCumulativeGPA(ctx context.Context, studentID uuid.UUID) (*models.CumulativeGPA, error)
	CreateCumulativeGPA(ctx context.Context, rec *models.CumulativeGPA) error
	UpdateCumulativeGPA(ctx context.Context, rec *models.CumulativeGPA) error

	// Transaction runs fn against a repository bound to one transaction.
	Transaction(ctx context.Context, fn func(tx Repository) error) error
}
