package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/models"
	"github.com/school-system/results/internal/services"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UserHandler manages staff accounts: admins, registrars and lecturers.
type UserHandler struct {
	db           *gorm.DB
	authService  *services.AuthService
	auditService *services.AuditService
}

func NewUserHandler(db *gorm.DB, authService *services.AuthService, auditService *services.AuditService) *UserHandler {
	return &UserHandler{db: db, authService: authService, auditService: auditService}
}

func (h *UserHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Preload("Institution").Order("email")
	if tenant, _ := tenantID(c); tenant != uuid.Nil {
		query = query.Where("institution_id = ?", tenant)
	}

	users := []models.User{}
	if err := query.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req struct {
		Email         string     `json:"email" binding:"required,email"`
		Password      string     `json:"password" binding:"required,min=8"`
		FullName      string     `json:"full_name" binding:"required"`
		Role          string     `json:"role" binding:"required,oneof=admin registrar lecturer"`
		InstitutionID *uuid.UUID `json:"institution_id"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role != services.RoleAdmin && req.InstitutionID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Institution assignment required for registrars and lecturers"})
		return
	}

	user := &models.User{
		InstitutionID: req.InstitutionID,
		Email:         req.Email,
		FullName:      req.FullName,
		Role:          req.Role,
		IsActive:      true,
	}

	if err := h.authService.CreateUser(c.Request.Context(), user, req.Password); err != nil {
		if errors.Is(err, services.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.auditService.Log(actorID(c), services.ActionCreateUser, "user", user.ID, nil,
		datatypes.JSONMap{"email": user.Email, "role": user.Role}, c.ClientIP()); err != nil {
		log.Printf("Failed to audit user creation: %v", err)
	}

	c.JSON(http.StatusCreated, user)
}

// SetActive enables or disables an account. Disabling revokes the user's
// refresh tokens; access tokens already issued run until they expire.
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "user")
	if !ok {
		return
	}

	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, before, err := h.authService.SetActive(c.Request.Context(), id, *req.IsActive)
	if errors.Is(err, services.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.auditService.Log(actorID(c), services.ActionUpdateUser, "user", user.ID,
		datatypes.JSONMap{"is_active": before}, datatypes.JSONMap{"is_active": user.IsActive}, c.ClientIP()); err != nil {
		log.Printf("Failed to audit user update: %v", err)
	}

	c.JSON(http.StatusOK, user)
}
