package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/school-system/results/internal/models"
	"github.com/school-system/results/internal/performance"
	"github.com/school-system/results/internal/services"
	"gorm.io/datatypes"
)

type ResultHandler struct {
	engine       *performance.Engine
	results      *services.ResultService
	auditService *services.AuditService
}

func NewResultHandler(engine *performance.Engine, results *services.ResultService, auditService *services.AuditService) *ResultHandler {
	return &ResultHandler{engine: engine, results: results, auditService: auditService}
}

// @Summary List a student's graded results
// @Tags results
// @Produce json
// @Param id path string true "Student ID"
// @Param session_id query string false "Session ID"
// @Param semester_id query string false "Semester ID"
// @Success 200 {array} performance.GradedRegistration
// @Router /api/v1/students/{id}/results [get]
func (h *ResultHandler) GetByStudent(c *gin.Context) {
	profile, ok := visibleStudent(c, h.engine)
	if !ok {
		return
	}
	term, err := termFromQuery(c, "session_id", "semester_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.engine.Results(c.Request.Context(), profile.ID, term)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rows == nil {
		rows = []performance.GradedRegistration{}
	}
	c.JSON(http.StatusOK, rows)
}

// @Summary Enter or correct a score
// @Tags results
// @Accept json
// @Produce json
// @Param request body services.ScoreEntry true "Score"
// @Success 200 {object} services.RecordOutcome
// @Success 201 {object} services.RecordOutcome
// @Router /api/v1/results [post]
func (h *ResultHandler) CreateOrUpdate(c *gin.Context) {
	institutionID, ok := requireTenant(c)
	if !ok {
		return
	}

	var req services.ScoreEntry
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := actorID(c)
	outcome, err := h.results.Record(c.Request.Context(), institutionID, actor, req)
	switch {
	case errors.Is(err, services.ErrInvalidScore):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrStudentNotFound), errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrTermNotFound):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("Error recording result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.auditService.Log(actor, services.ActionRecordResult, "result", outcome.Result.ID, nil,
		resultSnapshot(outcome.Result), c.ClientIP()); err != nil {
		log.Printf("Failed to audit result entry: %v", err)
	}

	status := http.StatusOK
	if outcome.Created {
		status = http.StatusCreated
	}
	c.JSON(status, outcome)
}

// @Summary Delete a result
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Param sync query bool false "Re-sync the student's GPA records"
// @Success 200
// @Router /api/v1/results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	institutionID, ok := requireTenant(c)
	if !ok {
		return
	}
	resultID, ok := parseUUIDParam(c, "id", "result")
	if !ok {
		return
	}

	result, err := h.results.Delete(c.Request.Context(), institutionID, resultID, c.Query("sync") == "true")
	if errors.Is(err, services.ErrResultNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Result not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.auditService.Log(actorID(c), services.ActionDeleteResult, "result", result.ID,
		resultSnapshot(result), nil, c.ClientIP()); err != nil {
		log.Printf("Failed to audit result deletion: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Result deleted"})
}

func resultSnapshot(r *models.Result) datatypes.JSONMap {
	return datatypes.JSONMap{
		"registration_id": r.RegistrationID,
		"ca_score":        r.CAScore,
		"exam_score":      r.ExamScore,
		"total_score":     r.TotalScore,
		"grade":           r.Grade,
		"grade_point":     r.GradePoint,
		"rule_version":    r.RuleVersionHash,
	}
}
