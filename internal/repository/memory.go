package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/models"
	"github.com/school-system/results/internal/performance"
)

var (
	ErrDuplicateRecord = errors.New("record already exists")
	ErrMissingRecord   = errors.New("record does not exist")
)

var _ performance.Repository = (*MemoryRepository)(nil)

type memCourse struct {
	code, title string
	units       int
}

type memRegistration struct {
	id        uuid.UUID
	studentID uuid.UUID
	courseID  uuid.UUID
	term      performance.TermKey
	graded    bool
	ca, exam  float64
	outcome   grading.Outcome
}

type semesterKey struct {
	student uuid.UUID
	term    performance.TermKey
}

// MemoryRepository keeps everything in maps. Transaction does not isolate
// writes; it exists so the engine runs unchanged in tests and demos.
type MemoryRepository struct {
	mu            sync.RWMutex
	students      map[uuid.UUID]performance.StudentProfile
	sessions      map[uuid.UUID]performance.Term
	semesters     map[uuid.UUID]performance.Term
	courses       map[uuid.UUID]memCourse
	registrations []*memRegistration
	semesterGPAs  map[semesterKey]*models.SemesterGPA
	cumulative    map[uuid.UUID]*models.CumulativeGPA
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		students:     make(map[uuid.UUID]performance.StudentProfile),
		sessions:     make(map[uuid.UUID]performance.Term),
		semesters:    make(map[uuid.UUID]performance.Term),
		courses:      make(map[uuid.UUID]memCourse),
		semesterGPAs: make(map[semesterKey]*models.SemesterGPA),
		cumulative:   make(map[uuid.UUID]*models.CumulativeGPA),
	}
}

func (m *MemoryRepository) AddStudent(p performance.StudentProfile) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.students[p.ID] = p
	return p.ID
}

func (m *MemoryRepository) AddSession(name string, startYear int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.sessions[id] = performance.Term{SessionID: id, SessionName: name, SessionOrder: startYear}
	return id
}

func (m *MemoryRepository) AddSemester(name string, position int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.semesters[id] = performance.Term{SemesterID: id, SemesterName: name, SemesterOrder: position}
	return id
}

func (m *MemoryRepository) AddCourse(code, title string, units int) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.courses[id] = memCourse{code: code, title: title, units: units}
	return id
}

// SetCreditUnits corrects a course's weight; later aggregations pick it up.
func (m *MemoryRepository) SetCreditUnits(courseID uuid.UUID, units int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.courses[courseID]
	c.units = units
	m.courses[courseID] = c
}

func (m *MemoryRepository) Register(studentID, courseID uuid.UUID, term performance.TermKey) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg := &memRegistration{id: uuid.New(), studentID: studentID, courseID: courseID, term: term}
	m.registrations = append(m.registrations, reg)
	return reg.id
}

// Grade attaches (or corrects) the result of a registration.
func (m *MemoryRepository) Grade(registrationID uuid.UUID, ca, exam float64, outcome grading.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.registrations {
		if r.id == registrationID {
			r.graded = true
			r.ca, r.exam = ca, exam
			r.outcome = outcome
			return
		}
	}
}

// SemesterGPAs returns copies of every stored semester record.
func (m *MemoryRepository) SemesterGPAs() []models.SemesterGPA {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SemesterGPA, 0, len(m.semesterGPAs))
	for _, rec := range m.semesterGPAs {
		out = append(out, *rec)
	}
	return out
}

// CumulativeGPAs returns copies of every stored cumulative record.
func (m *MemoryRepository) CumulativeGPAs() []models.CumulativeGPA {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CumulativeGPA, 0, len(m.cumulative))
	for _, rec := range m.cumulative {
		out = append(out, *rec)
	}
	return out
}

func (m *MemoryRepository) term(key performance.TermKey) (performance.Term, bool) {
	session, ok := m.sessions[key.SessionID]
	if !ok {
		return performance.Term{}, false
	}
	semester, ok := m.semesters[key.SemesterID]
	if !ok {
		return performance.Term{}, false
	}
	return performance.Term{
		SessionID:     session.SessionID,
		SessionName:   session.SessionName,
		SessionOrder:  session.SessionOrder,
		SemesterID:    semester.SemesterID,
		SemesterName:  semester.SemesterName,
		SemesterOrder: semester.SemesterOrder,
	}, true
}

func (m *MemoryRepository) GradedRegistrations(ctx context.Context, filter performance.RegistrationFilter) ([]performance.GradedRegistration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []performance.GradedRegistration
	for _, r := range m.registrations {
		if !r.graded {
			continue
		}
		if filter.StudentID != nil && r.studentID != *filter.StudentID {
			continue
		}
		if filter.CourseID != nil && r.courseID != *filter.CourseID {
			continue
		}
		if filter.Term != nil && r.term != *filter.Term {
			continue
		}
		term, ok := m.term(r.term)
		if !ok {
			continue
		}
		course := m.courses[r.courseID]
		out = append(out, performance.GradedRegistration{
			RegistrationID: r.id,
			StudentID:      r.studentID,
			CourseID:       r.courseID,
			CourseCode:     course.code,
			CourseTitle:    course.title,
			CreditUnits:    course.units,
			Term:           term,
			CAScore:        r.ca,
			ExamScore:      r.exam,
			TotalScore:     r.ca + r.exam,
			Grade:          r.outcome.Grade,
			GradePoint:     r.outcome.Point,
			Remark:         r.outcome.Remark,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Term.Compare(out[j].Term); c != 0 {
			return c < 0
		}
		return out[i].CourseCode < out[j].CourseCode
	})
	return out, nil
}

func (m *MemoryRepository) Student(ctx context.Context, studentID uuid.UUID) (*performance.StudentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.students[studentID]
	if !ok {
		return nil, performance.ErrStudentNotFound
	}
	return &p, nil
}

func (m *MemoryRepository) Term(ctx context.Context, key performance.TermKey) (*performance.Term, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.term(key)
	if !ok {
		return nil, performance.ErrTermNotFound
	}
	return &t, nil
}

func (m *MemoryRepository) StudentsGradedInTerm(ctx context.Context, key performance.TermKey) ([]uuid.UUID, error) {
	rows, err := m.GradedRegistrations(ctx, performance.RegistrationFilter{Term: &key})
	if err != nil {
		return nil, err
	}
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, r := range rows {
		if !seen[r.StudentID] {
			seen[r.StudentID] = true
			ids = append(ids, r.StudentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (m *MemoryRepository) GradedTerms(ctx context.Context) ([]performance.Term, error) {
	rows, err := m.GradedRegistrations(ctx, performance.RegistrationFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[performance.TermKey]bool)
	var terms []performance.Term
	for _, r := range rows {
		if key := r.Term.Key(); !seen[key] {
			seen[key] = true
			terms = append(terms, r.Term)
		}
	}
	return terms, nil
}

func (m *MemoryRepository) FindSemesterGPA(ctx context.Context, studentID uuid.UUID, key performance.TermKey) (*models.SemesterGPA, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.semesterGPAs[semesterKey{student: studentID, term: key}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryRepository) CreateSemesterGPA(ctx context.Context, rec *models.SemesterGPA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := semesterKey{student: rec.StudentID, term: performance.TermKey{SessionID: rec.SessionID, SemesterID: rec.SemesterID}}
	if _, exists := m.semesterGPAs[key]; exists {
		return ErrDuplicateRecord
	}
	now := time.Now()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	cp := *rec
	m.semesterGPAs[key] = &cp
	return nil
}

func (m *MemoryRepository) UpdateSemesterGPA(ctx context.Context, rec *models.SemesterGPA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := semesterKey{student: rec.StudentID, term: performance.TermKey{SessionID: rec.SessionID, SemesterID: rec.SemesterID}}
	if _, exists := m.semesterGPAs[key]; !exists {
		return ErrMissingRecord
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	m.semesterGPAs[key] = &cp
	return nil
}

func (m *MemoryRepository) FindCumulativeGPA(ctx context.Context, studentID uuid.UUID) (*models.CumulativeGPA, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.cumulative[studentID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryRepository) CreateCumulativeGPA(ctx context.Context, rec *models.CumulativeGPA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cumulative[rec.StudentID]; exists {
		return ErrDuplicateRecord
	}
	now := time.Now()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt, rec.UpdatedAt = now, now
	cp := *rec
	m.cumulative[rec.StudentID] = &cp
	return nil
}

func (m *MemoryRepository) UpdateCumulativeGPA(ctx context.Context, rec *models.CumulativeGPA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.cumulative[rec.StudentID]; !exists {
		return ErrMissingRecord
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	m.cumulative[rec.StudentID] = &cp
	return nil
}

func (m *MemoryRepository) Transaction(ctx context.Context, fn func(tx performance.Repository) error) error {
	return fn(m)
}
