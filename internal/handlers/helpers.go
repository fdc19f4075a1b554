package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/performance"
	"github.com/school-system/results/internal/services"
)

// tenantID returns the institution the request is scoped to. Admins without
// one get uuid.Nil and ok=true; they see every institution.
func tenantID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("tenant_institution_id")
	if raw == "" {
		return uuid.Nil, c.GetString("role") == services.RoleAdmin
	}
	id, err := uuid.Parse(raw)
	return id, err == nil
}

// requireTenant is tenantID for writes, which always need an institution.
func requireTenant(c *gin.Context) (uuid.UUID, bool) {
	id, ok := tenantID(c)
	if !ok || id == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Institution ID required"})
		return uuid.Nil, false
	}
	return id, true
}

func actorID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

func parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s ID", label)})
		return uuid.Nil, false
	}
	return id, true
}

// termFromQuery reads a session/semester pair from the query string. Both
// absent yields nil; one without the other is an error.
func termFromQuery(c *gin.Context, sessionKey, semesterKey string) (*performance.TermKey, error) {
	session, semester := c.Query(sessionKey), c.Query(semesterKey)
	if session == "" && semester == "" {
		return nil, nil
	}
	if session == "" || semester == "" {
		return nil, fmt.Errorf("%s and %s must be given together", sessionKey, semesterKey)
	}
	sessionID, err := uuid.Parse(session)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", sessionKey)
	}
	semesterID, err := uuid.Parse(semester)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", semesterKey)
	}
	return &performance.TermKey{SessionID: sessionID, SemesterID: semesterID}, nil
}

// requiredTerm is termFromQuery for endpoints that cannot work without a term.
func requiredTerm(c *gin.Context) (performance.TermKey, bool) {
	term, err := termFromQuery(c, "session_id", "semester_id")
	if err == nil && term == nil {
		err = errors.New("session_id and semester_id are required")
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return performance.TermKey{}, false
	}
	return *term, true
}

// visibleStudent loads the :id student if the caller's institution owns it,
// otherwise it writes the error response itself.
func visibleStudent(c *gin.Context, engine *performance.Engine) (*performance.StudentProfile, bool) {
	id, ok := parseUUIDParam(c, "id", "student")
	if !ok {
		return nil, false
	}
	tenant, ok := tenantID(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}

	profile, err := engine.Student(c.Request.Context(), id)
	if errors.Is(err, performance.ErrStudentNotFound) || (err == nil && tenant != uuid.Nil && profile.InstitutionID != tenant) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return profile, true
}
