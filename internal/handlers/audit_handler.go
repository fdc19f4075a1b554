package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/school-system/results/internal/services"
)

type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary Recent audit entries
// @Tags audit
// @Produce json
// @Param resource_type query string false "Resource type"
// @Param limit query int false "Maximum entries (default 20, at most 100)"
// @Success 200 {array} services.Activity
// @Router /api/v1/audit/recent [get]
func (h *AuditHandler) GetRecentActivity(c *gin.Context) {
	tenant, _ := tenantID(c)
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit > 100 {
		limit = 20
	}

	activities, err := h.auditService.Recent(c.Query("resource_type"), tenant, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, activities)
}
