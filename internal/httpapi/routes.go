package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/config"
	"classtrack/internal/school"
	"classtrack/internal/store"
)

// API bundles the dependencies the HTTP layer needs.
type API struct {
	Cfg        config.App
	School     *school.Service
	Attendance *attendance.Service
	DB         *store.DB
	Redis      *store.Redis
}

// Register mounts all routes on the engine.
func (a *API) Register(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", a.healthz)

	sessions := NewSessionHandler(a.Cfg, a.School)
	att := NewAttendanceHandler(a.School, a.Attendance)
	admin := NewAdminHandler(a.School)

	r.POST("/v1/sessions", sessions.Create)
	r.POST("/v1/sessions/refresh", sessions.Refresh)

	authed := r.Group("/v1", auth.Bearer(a.Cfg.JWTSigningKey, a.Cfg.JWTIssuer))
	authed.GET("/me", sessions.Me)
	authed.GET("/classes/:id/roster", att.Roster)
	authed.GET("/attendance/sheet", att.Sheet)
	authed.POST("/attendance/submit", att.Submit)
	authed.GET("/attendance/summary", att.Summary)

	adminGroup := authed.Group("/admin", auth.RequireRole(string(school.RoleAdmin)))
	adminGroup.POST("/classes", admin.CreateClass)
	adminGroup.PUT("/classes/:id", admin.UpdateClass)
	adminGroup.GET("/classes", admin.ListClasses)
	adminGroup.POST("/students", admin.CreateStudent)
	adminGroup.PUT("/students/:id", admin.UpdateStudent)
	adminGroup.DELETE("/students/:id", admin.DeactivateStudent)
	adminGroup.GET("/students", admin.ListStudents)
	adminGroup.POST("/profiles", admin.CreateProfile)
	adminGroup.PUT("/profiles/:id", admin.UpdateProfile)
	adminGroup.GET("/profiles", admin.ListProfiles)
}

func (a *API) healthz(c *gin.Context) {
	redisHealthy := a.Redis.Healthy(c.Request.Context())
	dbHealthy := a.DB != nil && a.DB.Client != nil
	status := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
}
