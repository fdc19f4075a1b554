package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Base model with UUID
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Institution represents a school or university
type Institution struct {
	BaseModel
	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	ShortName    string `gorm:"type:varchar(50)" json:"short_name"`
	Address      string `gorm:"type:text" json:"address"`
	ContactEmail string `gorm:"type:varchar(255)" json:"contact_email"`
	LogoURL      string `gorm:"type:varchar(500)" json:"logo_url"`
}

type Department struct {
	BaseModel
	InstitutionID uuid.UUID    `gorm:"type:char(36);not null;index" json:"institution_id"`
	Name          string       `gorm:"type:varchar(255);not null" json:"name"`
	Code          string       `gorm:"type:varchar(20)" json:"code"`
	Institution   *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}

// AcademicSession is an academic year. StartYear orders sessions chronologically.
type AcademicSession struct {
	BaseModel
	InstitutionID uuid.UUID `gorm:"type:char(36);not null;index" json:"institution_id"`
	Name          string    `gorm:"type:varchar(20);not null" json:"name"`
	StartYear     int       `gorm:"not null" json:"start_year"`
	IsCurrent     bool      `gorm:"default:false" json:"is_current"`
}

// Semester is a sub-term; Position orders semesters inside a session.
type Semester struct {
	BaseModel
	InstitutionID uuid.UUID `gorm:"type:char(36);not null;index" json:"institution_id"`
	Name          string    `gorm:"type:varchar(50);not null" json:"name"`
	Position      int       `gorm:"not null" json:"position"`
}

type Course struct {
	BaseModel
	InstitutionID uuid.UUID   `gorm:"type:char(36);not null;index" json:"institution_id"`
	DepartmentID  *uuid.UUID  `gorm:"type:char(36);index" json:"department_id"`
	Code          string      `gorm:"type:varchar(20);not null" json:"code"`
	Title         string      `gorm:"type:varchar(255);not null" json:"title"`
	CreditUnits   int         `gorm:"not null;default:0" json:"credit_units"`
	Department    *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

type Student struct {
	BaseModel
	InstitutionID uuid.UUID    `gorm:"type:char(36);not null;index" json:"institution_id"`
	DepartmentID  *uuid.UUID   `gorm:"type:char(36);index" json:"department_id"`
	MatricNo      string       `gorm:"type:varchar(50);not null;uniqueIndex" json:"matric_no"`
	FirstName     string       `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName      string       `gorm:"type:varchar(100);not null" json:"last_name"`
	OtherName     string       `gorm:"type:varchar(100)" json:"other_name"`
	Gender        string       `gorm:"type:varchar(10)" json:"gender"`
	Level         string       `gorm:"type:varchar(20)" json:"level"`
	Email         string       `gorm:"type:varchar(255)" json:"email"`
	Institution   *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	Department    *Department  `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// CourseRegistration links a student to a course within a session and semester.
type CourseRegistration struct {
	BaseModel
	StudentID  uuid.UUID        `gorm:"type:char(36);not null;uniqueIndex:idx_registration_unique" json:"student_id"`
	CourseID   uuid.UUID        `gorm:"type:char(36);not null;uniqueIndex:idx_registration_unique;index:idx_registration_course_term" json:"course_id"`
	SessionID  uuid.UUID        `gorm:"type:char(36);not null;uniqueIndex:idx_registration_unique;index:idx_registration_course_term" json:"session_id"`
	SemesterID uuid.UUID        `gorm:"type:char(36);not null;uniqueIndex:idx_registration_unique;index:idx_registration_course_term" json:"semester_id"`
	Student    *Student         `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Course     *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Session    *AcademicSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Semester   *Semester        `gorm:"foreignKey:SemesterID" json:"semester,omitempty"`
}

// Result is the score record of a registration with its attached grade.
type Result struct {
	BaseModel
	RegistrationID  uuid.UUID           `gorm:"type:char(36);not null;uniqueIndex" json:"registration_id"`
	CAScore         float64             `gorm:"type:decimal(5,2);not null;default:0" json:"ca_score"`
	ExamScore       float64             `gorm:"type:decimal(5,2);not null;default:0" json:"exam_score"`
	TotalScore      float64             `gorm:"type:decimal(5,2);not null;default:0" json:"total_score"`
	Grade           string              `gorm:"type:varchar(2)" json:"grade"`
	GradePoint      float64             `gorm:"type:decimal(3,2)" json:"grade_point"`
	Remark          string              `gorm:"type:varchar(50)" json:"remark"`
	RuleVersionHash string              `gorm:"type:varchar(64)" json:"rule_version_hash"`
	EnteredBy       *uuid.UUID          `gorm:"type:char(36)" json:"entered_by,omitempty"`
	Registration    *CourseRegistration `gorm:"foreignKey:RegistrationID" json:"registration,omitempty"`
}

// SemesterGPA caches a computed semester GPA. It goes stale whenever a result
// for the same student and term changes and is refreshed by re-syncing.
type SemesterGPA struct {
	BaseModel
	StudentID        uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_semester_gpa_unique" json:"student_id"`
	SessionID        uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_semester_gpa_unique" json:"session_id"`
	SemesterID       uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_semester_gpa_unique" json:"semester_id"`
	GPA              float64   `gorm:"type:decimal(4,2);not null" json:"gpa"`
	TotalCreditUnits int       `gorm:"not null" json:"total_credit_units"`
	TotalGradePoints float64   `gorm:"type:decimal(8,2);not null" json:"total_grade_points"`
	CoursesCount     int       `gorm:"not null" json:"courses_count"`
}

func (SemesterGPA) TableName() string { return "semester_gpas" }

// CumulativeGPA caches a student's CGPA across every graded term.
type CumulativeGPA struct {
	BaseModel
	StudentID        uuid.UUID `gorm:"type:char(36);not null;uniqueIndex" json:"student_id"`
	CGPA             float64   `gorm:"type:decimal(4,2);not null" json:"cgpa"`
	TotalCreditUnits int       `gorm:"not null" json:"total_credit_units"`
	TotalGradePoints float64   `gorm:"type:decimal(8,2);not null" json:"total_grade_points"`
	CoursesCount     int       `gorm:"not null" json:"courses_count"`
	SemestersCount   int       `gorm:"not null" json:"semesters_count"`
	Classification   string    `gorm:"type:varchar(50)" json:"classification"`
}

func (CumulativeGPA) TableName() string { return "cumulative_gpas" }

// GradeBand mirrors grading.Band for storage.
type GradeBand struct {
	MinScore float64 `json:"min_score"`
	Grade    string  `json:"grade"`
	Point    float64 `json:"point"`
	Remark   string  `json:"remark"`
}

// GradingRule stores an institution's override of the score bands.
type GradingRule struct {
	BaseModel
	InstitutionID uuid.UUID                       `gorm:"type:char(36);not null;uniqueIndex" json:"institution_id"`
	RuleVersion   string                          `gorm:"type:varchar(64);not null" json:"rule_version"`
	Bands         datatypes.JSONType[[]GradeBand] `gorm:"type:json" json:"bands"`
	FloorGrade    string                          `gorm:"type:varchar(2);not null" json:"floor_grade"`
	FloorPoint    float64                         `gorm:"type:decimal(3,2);not null;default:0" json:"floor_point"`
	FloorRemark   string                          `gorm:"type:varchar(50)" json:"floor_remark"`
	UpdatedBy     *uuid.UUID                      `gorm:"type:char(36)" json:"updated_by,omitempty"`
	Institution   *Institution                    `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}

// User represents operators (admins and lecturers)
type User struct {
	BaseModel
	InstitutionID *uuid.UUID   `gorm:"type:char(36);index" json:"institution_id"`
	Email         string       `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash  string       `gorm:"type:varchar(255);not null" json:"-"`
	Role          string       `gorm:"type:varchar(20);not null" json:"role"`
	FullName      string       `gorm:"type:varchar(255);not null" json:"full_name"`
	IsActive      bool         `gorm:"default:true" json:"is_active"`
	Institution   *Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
}

// AuditLog tracks all data changes
type AuditLog struct {
	ID           uuid.UUID         `gorm:"type:char(36);primaryKey" json:"id"`
	ActorUserID  uuid.UUID         `gorm:"type:char(36);index" json:"actor_user_id"`
	Action       string            `gorm:"type:varchar(50);not null" json:"action"`
	ResourceType string            `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   uuid.UUID         `gorm:"type:char(36);index" json:"resource_id"`
	Before       datatypes.JSONMap `gorm:"type:json" json:"before"`
	After        datatypes.JSONMap `gorm:"type:json" json:"after"`
	Timestamp    time.Time         `gorm:"autoCreateTime;index" json:"timestamp"`
	IP           string            `gorm:"type:varchar(45)" json:"ip"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// RefreshToken stores refresh tokens for revocation
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;index" json:"user_id"`
	Token     string    `gorm:"type:varchar(500);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Revoked   bool      `gorm:"default:false;index" json:"revoked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (r *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
