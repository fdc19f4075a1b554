package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/config"
	"github.com/school-system/results/internal/database"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/models"
	"github.com/school-system/results/internal/performance"
	"github.com/school-system/results/internal/repository"
	"github.com/school-system/results/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router   *gin.Engine
	db       *gorm.DB
	inst     models.Institution
	other    models.Institution
	session  models.AcademicSession
	semester models.Semester
	student  models.Student
	course   models.Course
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "api-test-secret", AccessExpiry: 15 * time.Minute, RefreshExpiry: time.Hour},
		Argon2: config.Argon2Config{
			Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
		},
		Monitoring: config.MonitoringConfig{PrometheusEnabled: true},
		Grading:    config.GradingConfig{Scale: grading.ScaleSixBand},
	}

	f := &apiFixture{db: db}
	f.inst = models.Institution{Name: "Federal University"}
	f.other = models.Institution{Name: "State Polytechnic"}
	require.NoError(t, db.Create(&f.inst).Error)
	require.NoError(t, db.Create(&f.other).Error)
	f.session = models.AcademicSession{InstitutionID: f.inst.ID, Name: "2023/2024", StartYear: 2023}
	f.semester = models.Semester{InstitutionID: f.inst.ID, Name: "First", Position: 1}
	f.student = models.Student{InstitutionID: f.inst.ID, MatricNo: "CSC/2023/001", FirstName: "Ada", LastName: "Obi"}
	f.course = models.Course{InstitutionID: f.inst.ID, Code: "CSC101", Title: "Intro to Computing", CreditUnits: 3}
	for _, v := range []any{&f.session, &f.semester, &f.student, &f.course} {
		require.NoError(t, db.Create(v).Error)
	}

	auth := services.NewAuthService(db, cfg)
	staff := []*models.User{
		{Email: "admin@example.com", FullName: "Admin", Role: services.RoleAdmin, IsActive: true},
		{InstitutionID: &f.inst.ID, Email: "registrar@example.com", FullName: "Registrar", Role: services.RoleRegistrar, IsActive: true},
		{InstitutionID: &f.inst.ID, Email: "lecturer@example.com", FullName: "Lecturer", Role: services.RoleLecturer, IsActive: true},
		{InstitutionID: &f.other.ID, Email: "outsider@example.com", FullName: "Outsider", Role: services.RoleLecturer, IsActive: true},
	}
	for _, u := range staff {
		require.NoError(t, auth.CreateUser(context.Background(), u, "password123"))
	}

	scale := grading.DefaultScale()
	engine := performance.NewEngine(repository.NewGormRepository(db), performance.WithScale(scale))
	f.router = setupRouter(cfg, db, engine, scale)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) login(t *testing.T, email string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Tokens services.TokenPair `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Tokens.AccessToken
}

func (f *apiFixture) termQuery() string {
	return fmt.Sprintf("session_id=%s&semester_id=%s", f.session.ID, f.semester.ID)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPI(t)

	w := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "results-api")

	w = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAuthGuards(t *testing.T) {
	f := newAPI(t)
	studentPath := "/api/v1/students/" + f.student.ID.String() + "/transcript"

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, studentPath, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, studentPath, "not-a-token", nil).Code)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "lecturer@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	lecturer := f.login(t, "lecturer@example.com")
	w = f.do(t, http.MethodGet, "/api/v1/auth/me", lecturer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Federal University")

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/v1/audit/recent", lecturer, nil).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/v1/terms/sync", lecturer,
		gin.H{"session_id": f.session.ID, "semester_id": f.semester.ID}).Code)

	outsider := f.login(t, "outsider@example.com")
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, studentPath, outsider, nil).Code)
}

func TestResultToTranscriptFlow(t *testing.T) {
	f := newAPI(t)
	lecturer := f.login(t, "lecturer@example.com")
	registrar := f.login(t, "registrar@example.com")
	studentPath := "/api/v1/students/" + f.student.ID.String()

	entry := gin.H{
		"student_id":  f.student.ID,
		"course_id":   f.course.ID,
		"session_id":  f.session.ID,
		"semester_id": f.semester.ID,
		"ca_score":    25,
		"exam_score":  40,
	}
	w := f.do(t, http.MethodPost, "/api/v1/results", lecturer, entry)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var outcome services.RecordOutcome
	decode(t, w, &outcome)
	assert.Equal(t, "B", outcome.Result.Grade)

	entry["exam_score"] = 50
	entry["sync"] = true
	w = f.do(t, http.MethodPost, "/api/v1/results", lecturer, entry)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &outcome)
	assert.Equal(t, "A", outcome.Result.Grade)
	assert.True(t, outcome.Synced)

	entry["exam_score"] = 90
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/results", lecturer, entry).Code)

	w = f.do(t, http.MethodGet, studentPath+"/results", lecturer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []performance.GradedRegistration
	decode(t, w, &rows)
	assert.Len(t, rows, 1)

	w = f.do(t, http.MethodGet, studentPath+"/gpa?"+f.termQuery(), lecturer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var gpa struct {
		Semester performance.Aggregate `json:"semester"`
	}
	decode(t, w, &gpa)
	assert.Equal(t, 5.0, gpa.Semester.GPA)
	assert.Equal(t, 3, gpa.Semester.TotalCreditUnits)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, studentPath+"/gpa", lecturer, nil).Code)

	w = f.do(t, http.MethodGet, studentPath+"/cgpa", lecturer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cgpa struct {
		Cumulative     performance.CumulativeAggregate `json:"cumulative"`
		Classification grading.Classification          `json:"classification"`
	}
	decode(t, w, &cgpa)
	assert.Equal(t, 5.0, cgpa.Cumulative.CGPA)
	assert.Equal(t, "First Class", cgpa.Classification.Label)

	w = f.do(t, http.MethodGet, fmt.Sprintf("%s/cgpa?cutoff_session_id=%s&cutoff_semester_id=%s", studentPath, uuid.New(), uuid.New()), lecturer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, studentPath+"/transcript", lecturer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var transcript performance.Transcript
	decode(t, w, &transcript)
	assert.Equal(t, "CSC/2023/001", transcript.Student.MatricNo)
	require.Len(t, transcript.Terms, 1)
	assert.Equal(t, "CSC101", transcript.Terms[0].Courses[0].Code)
	assert.Equal(t, "First Class", transcript.Summary.Classification.Label)

	w = f.do(t, http.MethodGet, "/api/v1/courses/"+f.course.ID.String()+"/statistics?"+f.termQuery(), lecturer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats performance.CourseStatistics
	decode(t, w, &stats)
	assert.Equal(t, 1, stats.StudentCount)
	assert.Equal(t, 100.0, stats.PassRate)
	assert.Equal(t, 1, stats.GradeDistribution["A"])

	w = f.do(t, http.MethodPost, "/api/v1/terms/sync", registrar, gin.H{"session_id": f.session.ID, "semester_id": f.semester.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch performance.BatchResult
	decode(t, w, &batch)
	assert.Equal(t, 1, batch.Succeeded)
	assert.False(t, batch.Partial())

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodDelete, "/api/v1/results/"+outcome.Result.ID.String(), lecturer, nil).Code)
	w = f.do(t, http.MethodDelete, "/api/v1/results/"+outcome.Result.ID.String()+"?sync=true", registrar, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/courses/"+f.course.ID.String()+"/statistics?"+f.termQuery(), lecturer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGradingScaleEndpoints(t *testing.T) {
	f := newAPI(t)
	registrar := f.login(t, "registrar@example.com")
	lecturer := f.login(t, "lecturer@example.com")

	w := f.do(t, http.MethodGet, "/api/v1/grading/scale", lecturer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), grading.DefaultScale().Hash())

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPut, "/api/v1/grading/scale", lecturer, grading.FiveBandScale()).Code)

	bad := grading.DefaultScale()
	bad.Bands[1].MinScore = 80
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/grading/scale", registrar, bad).Code)

	w = f.do(t, http.MethodPut, "/api/v1/grading/scale", registrar, grading.FiveBandScale())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rule models.GradingRule
	decode(t, w, &rule)
	assert.Equal(t, grading.FiveBandScale().Hash(), rule.RuleVersion)

	w = f.do(t, http.MethodPost, "/api/v1/results", lecturer, gin.H{
		"student_id":  f.student.ID,
		"course_id":   f.course.ID,
		"session_id":  f.session.ID,
		"semester_id": f.semester.ID,
		"ca_score":    12,
		"exam_score":  30,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var outcome services.RecordOutcome
	decode(t, w, &outcome)
	assert.Equal(t, "F", outcome.Result.Grade)
}

func TestAdminUsersAndAudit(t *testing.T) {
	f := newAPI(t)
	admin := f.login(t, "admin@example.com")

	w := f.do(t, http.MethodPost, "/api/v1/users", admin, gin.H{
		"email": "new.lecturer@example.com", "password": "password123", "full_name": "New Lecturer", "role": services.RoleLecturer,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/users", admin, gin.H{
		"email": "new.lecturer@example.com", "password": "password123", "full_name": "New Lecturer",
		"role": services.RoleLecturer, "institution_id": f.inst.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.User
	decode(t, w, &created)

	w = f.do(t, http.MethodPost, "/api/v1/users", admin, gin.H{
		"email": "NEW.lecturer@example.com", "password": "password123", "full_name": "Copy",
		"role": services.RoleLecturer, "institution_id": f.inst.ID,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	newcomer := f.login(t, "new.lecturer@example.com")
	assert.NotEmpty(t, newcomer)

	w = f.do(t, http.MethodPut, "/api/v1/users/"+created.ID.String()+"/active", admin, gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "new.lecturer@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []models.User
	decode(t, w, &users)
	assert.Len(t, users, 5)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("X-Institution-ID", f.other.ID.String())
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &users)
	assert.Len(t, users, 1)

	w = f.do(t, http.MethodGet, "/api/v1/audit/recent?resource_type=user", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var activity []services.Activity
	decode(t, w, &activity)
	require.Len(t, activity, 2)
	assert.Equal(t, "Admin", activity[0].UserName)
}

func TestResultRejectsForeignTerm(t *testing.T) {
	f := newAPI(t)
	lecturer := f.login(t, "lecturer@example.com")

	foreign := models.AcademicSession{InstitutionID: f.other.ID, Name: "2023/2024", StartYear: 2023}
	require.NoError(t, f.db.Create(&foreign).Error)

	w := f.do(t, http.MethodPost, "/api/v1/results", lecturer, gin.H{
		"student_id":  f.student.ID,
		"course_id":   f.course.ID,
		"session_id":  foreign.ID,
		"semester_id": f.semester.ID,
		"ca_score":    25,
		"exam_score":  40,
	})
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	var regs int64
	f.db.Model(&models.CourseRegistration{}).Count(&regs)
	assert.Zero(t, regs)
}
