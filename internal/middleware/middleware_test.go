package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/school-system/results/internal/services"
	"github.com/stretchr/testify/assert"
)

// withClaims stands in for AuthMiddleware.
func withClaims(role, institutionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("role", role)
		if institutionID != "" {
			c.Set("institution_id", institutionID)
		}
		c.Next()
	}
}

func tenantRouter(role, institutionID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(withClaims(role, institutionID), TenantMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("tenant_institution_id"))
	})
	return r
}

func TestTenantMiddleware(t *testing.T) {
	inst := uuid.NewString()
	header := uuid.NewString()

	tests := []struct {
		name          string
		role          string
		institutionID string
		header        string
		status        int
		tenant        string
	}{
		{"Lecturer Uses Own Institution", services.RoleLecturer, inst, header, http.StatusOK, inst},
		{"Lecturer Without Institution", services.RoleLecturer, "", header, http.StatusForbidden, ""},
		{"Admin Picks Institution", services.RoleAdmin, "", header, http.StatusOK, header},
		{"Admin Unscoped", services.RoleAdmin, "", "", http.StatusOK, ""},
		{"Admin Bad Header", services.RoleAdmin, "", "nope", http.StatusForbidden, ""},
		{"Corrupt Claim", services.RoleRegistrar, "nope", "", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-Institution-ID", tt.header)
			}
			w := httptest.NewRecorder()
			tenantRouter(tt.role, tt.institutionID).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.tenant, w.Body.String())
			}
		})
	}
}

func TestRoleGuards(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		guard  gin.HandlerFunc
		role   string
		status int
	}{
		{"Admin Passes Admin", RequireAdmin(), services.RoleAdmin, http.StatusOK},
		{"Registrar Blocked From Admin", RequireAdmin(), services.RoleRegistrar, http.StatusForbidden},
		{"Registrar Passes Registrar", RequireRegistrar(), services.RoleRegistrar, http.StatusOK},
		{"Lecturer Blocked From Registrar", RequireRegistrar(), services.RoleLecturer, http.StatusForbidden},
		{"Lecturer Passes Staff", RequireStaff(), services.RoleLecturer, http.StatusOK},
		{"Unknown Role Blocked", RequireStaff(), "student", http.StatusForbidden},
		{"Missing Role", RequireStaff(), "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(withClaims(tt.role, ""), tt.guard)
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
