package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/studenthub/hub-api/internal/handler"
	"github.com/studenthub/hub-api/internal/middleware"
	"github.com/studenthub/hub-api/internal/models"
	"github.com/studenthub/hub-api/internal/repository"
	"github.com/studenthub/hub-api/internal/service"
	"github.com/studenthub/hub-api/pkg/config"
)

// Params bundles everything the route table needs.
type Params struct {
	Config        *config.Config
	Auth          *service.AuthService
	Users         *repository.UserRepository
	Achievements  *handler.AchievementHandler
	Auths         *handler.AuthHandler
	Events        *handler.EventHandler
	Faculty       *handler.FacultyHandler
	Badges        *handler.BadgeHandler
	Students      *handler.StudentHandler
	Categories    *handler.CategoryHandler
	Notifications *handler.NotificationHandler
	Analytics     *handler.AnalyticsHandler
	Metrics       *handler.MetricsHandler
}

// Setup mounts the full route table onto the engine.
func Setup(r *gin.Engine, p Params) {
	r.GET("/health", p.Metrics.Health)
	r.GET("/ready", p.Metrics.Health)
	r.GET("/metrics", p.Metrics.Prometheus)

	if p.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(p.Config.APIPrefix)

	auth := v1.Group("/auth")
	{
		auth.POST("/login", p.Auths.Login)
		auth.POST("/refresh", p.Auths.Refresh)
		auth.POST("/logout", middleware.JWT(p.Auth), p.Auths.Logout)
		auth.GET("/me", middleware.JWT(p.Auth), p.Auths.Me)
	}

	authed := v1.Group("")
	authed.Use(middleware.JWT(p.Auth))

	achievements := authed.Group("/achievements")
	{
		achievements.POST("", middleware.RequireRoles(models.RoleStudent), p.Achievements.Submit)
		achievements.GET("", p.Achievements.List)
		achievements.GET("/:id", p.Achievements.Get)
		achievements.PATCH("/:id",
			middleware.RequireRoles(models.RoleFaculty, models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			middleware.Audit(p.Users, models.AuditActionAchievementDecide, "achievement"),
			p.Achievements.Decide)
	}

	events := authed.Group("/events")
	{
		events.POST("",
			middleware.RequireRoles(models.RoleFaculty, models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			middleware.Audit(p.Users, models.AuditActionEventCreate, "event"),
			p.Events.Create)
		events.GET("", p.Events.List)
		events.GET("/:id", p.Events.Get)
		events.PATCH("/:id/status",
			middleware.RequireRoles(models.RoleFaculty, models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			middleware.Audit(p.Users, models.AuditActionEventStatusChange, "event"),
			p.Events.UpdateStatus)
		events.POST("/:id/participations", middleware.RequireRoles(models.RoleStudent), p.Events.Register)
		events.GET("/:id/participations",
			middleware.RequireRoles(models.RoleFaculty, models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			p.Events.ListParticipants)
		// stays open to students for CANCELLED; the handler gates ATTENDED
		// and COMPLETED to staff roles
		events.PATCH("/:id/participations/:studentId",
			middleware.Audit(p.Users, models.AuditActionParticipationState, "participation"),
			p.Events.UpdateParticipation)
	}

	faculty := authed.Group("/faculty")
	{
		faculty.POST("/:id/mentees",
			middleware.RequireRoles(models.RoleFaculty, models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			middleware.Audit(p.Users, models.AuditActionMentorAssign, "mentorship"),
			p.Faculty.AssignMentee)
		faculty.GET("/:id/mentees",
			middleware.RBAC("FACULTY", "INSTITUTION_ADMIN", "SUPER_ADMIN", "SELF"),
			p.Faculty.ListMentees)
	}

	badges := authed.Group("/badges")
	{
		badges.GET("", p.Badges.List)
		badges.POST("",
			middleware.RequireRoles(models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			middleware.Audit(p.Users, models.AuditActionBadgeCreate, "badge"),
			p.Badges.Create)
	}

	students := authed.Group("/students")
	{
		students.GET("", p.Students.List)
		students.GET("/:id", p.Students.Get)
		students.PATCH("/:id", middleware.RBAC("SELF", "INSTITUTION_ADMIN", "SUPER_ADMIN"), p.Students.Update)
		students.GET("/:id/badges", p.Badges.ListEarned)
		students.GET("/:id/portfolio/export", p.Students.ExportPortfolio)
	}

	categories := authed.Group("/categories")
	{
		categories.GET("", p.Categories.List)
		categories.POST("",
			middleware.RequireRoles(models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			middleware.Audit(p.Users, models.AuditActionCategoryCreate, "category"),
			p.Categories.Create)
		categories.DELETE("/:id",
			middleware.RequireRoles(models.RoleInstitutionAdmin, models.RoleSuperAdmin),
			middleware.Audit(p.Users, models.AuditActionCategoryDeactivate, "category"),
			p.Categories.Deactivate)
	}

	analytics := authed.Group("/analytics")
	analytics.Use(middleware.WithResponseMeta())
	{
		analytics.GET("/institution",
			middleware.RequireRoles(models.RoleInstitutionAdmin, models.RoleSuperAdmin, models.RoleRecruiter),
			p.Analytics.Institution)
		analytics.GET("/system",
			middleware.RequireRoles(models.RoleSuperAdmin),
			p.Analytics.System)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", p.Notifications.List)
		notifications.PATCH("/:id/read", p.Notifications.MarkRead)
	}
}
