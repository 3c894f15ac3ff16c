package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/analyses"
	"labreport-backend/internal/indicators"
	"labreport-backend/internal/patients"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
	"labreport-backend/internal/users"
)

// RouterDeps carries the handlers wired by bootstrap.
type RouterDeps struct {
	Config           config.Config
	AnalysisHandler  *analyses.Handler
	PatientHandler   *patients.Handler
	IndicatorHandler *indicators.Handler
	UserHandler      *users.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
// Uploads and reads work without a login; profile and history routes require
// one.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	deps.AnalysisHandler.RegisterRoutes(public)
	deps.UserHandler.RegisterPublicRoutes(public)

	authed := api.Group("")
	authed.Use(middleware.Auth())
	deps.PatientHandler.RegisterRoutes(authed)
	deps.IndicatorHandler.RegisterRoutes(authed)
	deps.UserHandler.RegisterAuthedRoutes(authed)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
