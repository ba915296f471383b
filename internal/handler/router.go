package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sims-enrollment-api/internal/middleware"
	"github.com/noah-isme/sims-enrollment-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Catalog     *CatalogHandler
	Sections    *SectionHandler
	Enrollments *EnrollmentHandler
	Grades      *GradeHandler
	Deletion    *DeletionHandler
}

// RegisterRoutes mounts the API on group. authn must populate middleware.ContextUserKey.
func RegisterRoutes(group *gin.RouterGroup, authn gin.HandlerFunc, h Handlers) {
	api := group.Group("")
	api.Use(authn)

	admin := middleware.RequireRoles(models.RoleAdmin)
	adminOrFaculty := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)

	api.GET("/catalog", h.Catalog.Get)

	api.GET("/sections", admin, h.Sections.List)
	api.POST("/sections", admin, h.Sections.Create)
	api.PUT("/sections/:id", admin, h.Sections.Update)
	api.DELETE("/sections/:id", admin, h.Sections.Delete)
	api.GET("/sections/:id/roster", adminOrFaculty, h.Sections.Roster)
	api.GET("/courses/:id/sections", admin, h.Sections.CourseSections)
	api.GET("/faculties/:id/weekly-schedule", adminOrFaculty, h.Sections.WeeklySchedule)

	api.GET("/enrollments", admin, h.Enrollments.List)
	api.POST("/enrollments/assign", admin, h.Enrollments.Assign)
	api.POST("/enrollments/bulk-assign", admin, h.Enrollments.BulkAssign)
	api.POST("/enrollments/:id/retake", admin, h.Enrollments.Retake)
	api.DELETE("/enrollments/:id", admin, h.Enrollments.Delete)
	api.GET("/students/:id/transcript", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Enrollments.Transcript)

	api.POST("/grades", middleware.RequireRoles(models.RoleFaculty), h.Grades.Submit)

	api.GET("/admin/:kind/:id/deletion-check", admin, h.Deletion.Check)
}
