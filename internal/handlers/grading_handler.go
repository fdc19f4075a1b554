package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/services"
	"gorm.io/datatypes"
)

type GradingHandler struct {
	scales       *services.GradingScaleService
	auditService *services.AuditService
}

func NewGradingHandler(scales *services.GradingScaleService, auditService *services.AuditService) *GradingHandler {
	return &GradingHandler{scales: scales, auditService: auditService}
}

// @Summary Current grading scale of the institution
// @Tags grading
// @Produce json
// @Success 200 {object} grading.Scale
// @Router /api/v1/grading/scale [get]
func (h *GradingHandler) GetScale(c *gin.Context) {
	institutionID, ok := requireTenant(c)
	if !ok {
		return
	}

	scale, err := h.scales.ScaleFor(c.Request.Context(), institutionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scale": scale, "rule_version": scale.Hash()})
}

// @Summary Replace the institution's grading scale
// @Tags grading
// @Accept json
// @Produce json
// @Param request body grading.Scale true "Scale"
// @Success 200 {object} models.GradingRule
// @Router /api/v1/grading/scale [put]
func (h *GradingHandler) UpdateScale(c *gin.Context) {
	institutionID, ok := requireTenant(c)
	if !ok {
		return
	}

	var scale grading.Scale
	if err := c.ShouldBindJSON(&scale); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	previous, err := h.scales.ScaleFor(ctx, institutionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	actor := actorID(c)
	rule, err := h.scales.Save(ctx, institutionID, actor, &scale)
	if err != nil {
		if isScaleError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.auditService.Log(actor, services.ActionUpdateScale, "grading_rule", rule.ID,
		datatypes.JSONMap{"rule_version": previous.Hash()},
		datatypes.JSONMap{"rule_version": rule.RuleVersion, "bands": len(scale.Bands)},
		c.ClientIP()); err != nil {
		log.Printf("Failed to audit grading scale update: %v", err)
	}
	c.JSON(http.StatusOK, rule)
}

// isScaleError separates rejected scales from storage failures.
func isScaleError(err error) bool {
	return errors.Is(err, grading.ErrEmptyScale) ||
		errors.Is(err, grading.ErrBandOrder) ||
		errors.Is(err, grading.ErrDuplicateGrade) ||
		errors.Is(err, grading.ErrInvalidScale)
}
