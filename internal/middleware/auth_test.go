package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-enrollment-api/internal/models"
	"github.com/noah-isme/sims-enrollment-api/internal/service"
)

func newAuthRouter(auth *service.AuthService, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/students/:id/transcript", JWT(auth), RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func issue(t *testing.T, auth *service.AuthService, claims models.JWTClaims) string {
	token, _, err := auth.IssueToken(claims)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"})
	r := newAuthRouter(auth, string(models.RoleAdmin))

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/students/st-1/transcript", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestRBACAllowsRoleAndSelf(t *testing.T) {
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"})
	r := newAuthRouter(auth, string(models.RoleAdmin), "SELF")

	cases := []struct {
		name   string
		claims models.JWTClaims
		path   string
		status int
	}{
		{"admin", models.JWTClaims{UserID: "u-admin", Role: models.RoleAdmin}, "/students/st-1/transcript", http.StatusOK},
		{"own transcript", models.JWTClaims{UserID: "u-7", Role: models.RoleStudent, StudentID: "st-1"}, "/students/st-1/transcript", http.StatusOK},
		{"other transcript", models.JWTClaims{UserID: "u-7", Role: models.RoleStudent, StudentID: "st-1"}, "/students/st-2/transcript", http.StatusForbidden},
		{"faculty", models.JWTClaims{UserID: "u-9", Role: models.RoleFaculty, FacultyID: "F1"}, "/students/st-1/transcript", http.StatusForbidden},
		{"faculty user id in path", models.JWTClaims{UserID: "st-1", Role: models.RoleFaculty, FacultyID: "F1"}, "/students/st-1/transcript", http.StatusForbidden},
		{"student user id is not a student id", models.JWTClaims{UserID: "u-7", Role: models.RoleStudent, StudentID: "st-1"}, "/students/u-7/transcript", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("Authorization", issue(t, auth, tc.claims))
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
