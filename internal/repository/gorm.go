package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/models"
	"github.com/school-system/results/internal/performance"
	"gorm.io/gorm"
)

var _ performance.Repository = (*GormRepository)(nil)

// GormRepository reads registrations and results straight from the
// relational store. Credit units are always joined from courses.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

type gradedRow struct {
	RegistrationID uuid.UUID
	StudentID      uuid.UUID
	CourseID       uuid.UUID
	CourseCode     string
	CourseTitle    string
	CreditUnits    int
	SessionID      uuid.UUID
	SessionName    string
	SessionOrder   int
	SemesterID     uuid.UUID
	SemesterName   string
	SemesterOrder  int
	CAScore        float64
	ExamScore      float64
	TotalScore     float64
	Grade          string
	GradePoint     float64
	Remark         string
}

func (r *GormRepository) graded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("course_registrations AS cr").
		Joins("JOIN results res ON res.registration_id = cr.id AND res.deleted_at IS NULL").
		Joins("JOIN courses c ON c.id = cr.course_id").
		Joins("JOIN academic_sessions s ON s.id = cr.session_id").
		Joins("JOIN semesters sm ON sm.id = cr.semester_id").
		Where("cr.deleted_at IS NULL AND res.grade <> ''")
}

func (r *GormRepository) GradedRegistrations(ctx context.Context, filter performance.RegistrationFilter) ([]performance.GradedRegistration, error) {
	query := r.graded(ctx).Select(`cr.id AS registration_id, cr.student_id, cr.course_id,
		c.code AS course_code, c.title AS course_title, c.credit_units,
		cr.session_id, s.name AS session_name, s.start_year AS session_order,
		cr.semester_id, sm.name AS semester_name, sm.position AS semester_order,
		res.ca_score, res.exam_score, res.total_score, res.grade, res.grade_point, res.remark`)

	if filter.StudentID != nil {
		query = query.Where("cr.student_id = ?", *filter.StudentID)
	}
	if filter.CourseID != nil {
		query = query.Where("cr.course_id = ?", *filter.CourseID)
	}
	if filter.Term != nil {
		query = query.Where("cr.session_id = ? AND cr.semester_id = ?", filter.Term.SessionID, filter.Term.SemesterID)
	}

	var rows []gradedRow
	if err := query.Order("s.start_year, sm.position, c.code").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]performance.GradedRegistration, 0, len(rows))
	for _, row := range rows {
		out = append(out, performance.GradedRegistration{
			RegistrationID: row.RegistrationID,
			StudentID:      row.StudentID,
			CourseID:       row.CourseID,
			CourseCode:     row.CourseCode,
			CourseTitle:    row.CourseTitle,
			CreditUnits:    row.CreditUnits,
			Term: performance.Term{
				SessionID:     row.SessionID,
				SessionName:   row.SessionName,
				SessionOrder:  row.SessionOrder,
				SemesterID:    row.SemesterID,
				SemesterName:  row.SemesterName,
				SemesterOrder: row.SemesterOrder,
			},
			CAScore:    row.CAScore,
			ExamScore:  row.ExamScore,
			TotalScore: row.TotalScore,
			Grade:      row.Grade,
			GradePoint: row.GradePoint,
			Remark:     row.Remark,
		})
	}
	return out, nil
}

func (r *GormRepository) Student(ctx context.Context, studentID uuid.UUID) (*performance.StudentProfile, error) {
	var s models.Student
	err := r.db.WithContext(ctx).Preload("Institution").Preload("Department").
		First(&s, "id = ?", studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, performance.ErrStudentNotFound
	}
	if err != nil {
		return nil, err
	}

	profile := &performance.StudentProfile{
		ID:            s.ID,
		InstitutionID: s.InstitutionID,
		MatricNo:      s.MatricNo,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		OtherName:     s.OtherName,
		Gender:        s.Gender,
		Level:         s.Level,
		Email:         s.Email,
	}
	if s.Institution != nil {
		profile.Institution = s.Institution.Name
	}
	if s.Department != nil {
		profile.Department = s.Department.Name
	}
	return profile, nil
}

func (r *GormRepository) Term(ctx context.Context, key performance.TermKey) (*performance.Term, error) {
	var session models.AcademicSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", key.SessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, performance.ErrTermNotFound
		}
		return nil, err
	}
	var semester models.Semester
	if err := r.db.WithContext(ctx).First(&semester, "id = ?", key.SemesterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, performance.ErrTermNotFound
		}
		return nil, err
	}
	return &performance.Term{
		SessionID:     session.ID,
		SessionName:   session.Name,
		SessionOrder:  session.StartYear,
		SemesterID:    semester.ID,
		SemesterName:  semester.Name,
		SemesterOrder: semester.Position,
	}, nil
}

func (r *GormRepository) StudentsGradedInTerm(ctx context.Context, key performance.TermKey) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.graded(ctx).
		Where("cr.session_id = ? AND cr.semester_id = ?", key.SessionID, key.SemesterID).
		Distinct("cr.student_id").
		Order("cr.student_id").
		Pluck("cr.student_id", &ids).Error
	return ids, err
}

func (r *GormRepository) GradedTerms(ctx context.Context) ([]performance.Term, error) {
	var rows []gradedRow
	err := r.graded(ctx).
		Distinct("cr.session_id", "s.name AS session_name", "s.start_year AS session_order",
			"cr.semester_id", "sm.name AS semester_name", "sm.position AS semester_order").
		Order("session_order, semester_order").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	terms := make([]performance.Term, 0, len(rows))
	for _, row := range rows {
		terms = append(terms, performance.Term{
			SessionID:     row.SessionID,
			SessionName:   row.SessionName,
			SessionOrder:  row.SessionOrder,
			SemesterID:    row.SemesterID,
			SemesterName:  row.SemesterName,
			SemesterOrder: row.SemesterOrder,
		})
	}
	return terms, nil
}

func (r *GormRepository) FindSemesterGPA(ctx context.Context, studentID uuid.UUID, key performance.TermKey) (*models.SemesterGPA, error) {
	var rec models.SemesterGPA
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND session_id = ? AND semester_id = ?", studentID, key.SessionID, key.SemesterID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepository) CreateSemesterGPA(ctx context.Context, rec *models.SemesterGPA) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormRepository) UpdateSemesterGPA(ctx context.Context, rec *models.SemesterGPA) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *GormRepository) FindCumulativeGPA(ctx context.Context, studentID uuid.UUID) (*models.CumulativeGPA, error) {
	var rec models.CumulativeGPA
	err := r.db.WithContext(ctx).Where("student_id = ?", studentID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepository) CreateCumulativeGPA(ctx context.Context, rec *models.CumulativeGPA) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormRepository) UpdateCumulativeGPA(ctx context.Context, rec *models.CumulativeGPA) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *GormRepository) Transaction(ctx context.Context, fn func(tx performance.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRepository{db: tx})
	})
}
