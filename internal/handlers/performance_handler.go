package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/performance"
	"github.com/school-system/results/internal/services"
	"gorm.io/datatypes"
)

type PerformanceHandler struct {
	engine       *performance.Engine
	results      *services.ResultService
	auditService *services.AuditService
}

func NewPerformanceHandler(engine *performance.Engine, results *services.ResultService, auditService *services.AuditService) *PerformanceHandler {
	return &PerformanceHandler{engine: engine, results: results, auditService: auditService}
}

// @Summary Semester GPA
// @Tags performance
// @Produce json
// @Param id path string true "Student ID"
// @Param session_id query string true "Session ID"
// @Param semester_id query string true "Semester ID"
// @Success 200 {object} performance.Aggregate
// @Router /api/v1/students/{id}/gpa [get]
func (h *PerformanceHandler) SemesterGPA(c *gin.Context) {
	profile, ok := visibleStudent(c, h.engine)
	if !ok {
		return
	}
	term, ok := requiredTerm(c)
	if !ok {
		return
	}

	agg, err := h.engine.SemesterGPA(c.Request.Context(), profile.ID, term)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"student_id": profile.ID, "term": term, "semester": agg})
}

// @Summary Cumulative GPA, optionally up to a cutoff term
// @Tags performance
// @Produce json
// @Param id path string true "Student ID"
// @Param cutoff_session_id query string false "Cutoff session ID"
// @Param cutoff_semester_id query string false "Cutoff semester ID"
// @Success 200 {object} performance.CumulativeAggregate
// @Router /api/v1/students/{id}/cgpa [get]
func (h *PerformanceHandler) CumulativeGPA(c *gin.Context) {
	profile, ok := visibleStudent(c, h.engine)
	if !ok {
		return
	}
	cutoff, err := termFromQuery(c, "cutoff_session_id", "cutoff_semester_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agg, err := h.engine.CumulativeGPA(c.Request.Context(), profile.ID, cutoff)
	if errors.Is(err, performance.ErrTermNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cutoff term not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student_id":     profile.ID,
		"cumulative":     agg,
		"classification": h.engine.Classify(agg.CGPA),
	})
}

// @Summary Full transcript
// @Tags performance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} performance.Transcript
// @Router /api/v1/students/{id}/transcript [get]
func (h *PerformanceHandler) Transcript(c *gin.Context) {
	profile, ok := visibleStudent(c, h.engine)
	if !ok {
		return
	}

	transcript, err := h.engine.Transcript(c.Request.Context(), profile.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, transcript)
}

// @Summary Course statistics for one term
// @Tags performance
// @Produce json
// @Param id path string true "Course ID"
// @Param session_id query string true "Session ID"
// @Param semester_id query string true "Semester ID"
// @Success 200 {object} performance.CourseStatistics
// @Router /api/v1/courses/{id}/statistics [get]
func (h *PerformanceHandler) CourseStatistics(c *gin.Context) {
	courseID, ok := parseUUIDParam(c, "id", "course")
	if !ok {
		return
	}
	term, ok := requiredTerm(c)
	if !ok {
		return
	}
	if tenant, _ := tenantID(c); tenant != uuid.Nil {
		if err := h.results.CourseInInstitution(c.Request.Context(), courseID, tenant); err != nil {
			if errors.Is(err, services.ErrCourseNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	scale, err := h.results.CourseScale(c.Request.Context(), courseID)
	if errors.Is(err, services.ErrCourseNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Course not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.engine.CourseStatisticsWithScale(c.Request.Context(), courseID, term, scale)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No graded results for this course and term"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type termRequest struct {
	SessionID  uuid.UUID `json:"session_id" binding:"required"`
	SemesterID uuid.UUID `json:"semester_id" binding:"required"`
}

func (r termRequest) key() performance.TermKey {
	return performance.TermKey{SessionID: r.SessionID, SemesterID: r.SemesterID}
}

// @Summary Recompute and store a semester GPA
// @Tags performance
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param request body termRequest true "Term"
// @Success 200 {object} performance.Aggregate
// @Router /api/v1/students/{id}/gpa/sync [post]
func (h *PerformanceHandler) SyncSemesterGPA(c *gin.Context) {
	profile, ok := visibleStudent(c, h.engine)
	if !ok {
		return
	}
	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := h.engine.SyncSemesterGPA(ctx, profile.ID, req.key()); err != nil {
		log.Printf("Semester GPA sync failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	agg, err := h.engine.SemesterGPA(ctx, profile.ID, req.key())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "semester": agg})
}

// @Summary Recompute and store a cumulative GPA
// @Tags performance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} performance.CumulativeAggregate
// @Router /api/v1/students/{id}/cgpa/sync [post]
func (h *PerformanceHandler) SyncCumulativeGPA(c *gin.Context) {
	profile, ok := visibleStudent(c, h.engine)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.engine.SyncCumulativeGPA(ctx, profile.ID); err != nil {
		log.Printf("Cumulative GPA sync failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	agg, err := h.engine.CumulativeGPA(ctx, profile.ID, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cumulative": agg, "classification": h.engine.Classify(agg.CGPA)})
}

// @Summary Sync every student graded in a term
// @Tags performance
// @Accept json
// @Produce json
// @Param request body termRequest true "Term"
// @Success 200 {object} performance.BatchResult
// @Router /api/v1/terms/sync [post]
func (h *PerformanceHandler) SyncTerm(c *gin.Context) {
	var req termRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.SyncTerm(c.Request.Context(), req.key())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.auditService.Log(actorID(c), services.ActionSyncTerm, "term", req.SemesterID, nil, datatypes.JSONMap{
		"session_id":        req.SessionID,
		"semester_id":       req.SemesterID,
		"updated":           result.Updated,
		"succeeded":         result.Succeeded,
		"failed_semester":   result.FailedSemester,
		"failed_cumulative": result.FailedCumulative,
	}, c.ClientIP()); err != nil {
		log.Printf("Failed to audit term sync: %v", err)
	}

	status := http.StatusOK
	if result.Partial() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}
