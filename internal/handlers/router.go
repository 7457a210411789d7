package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stwalsh4118/sitetrack/internal/logger"
	"github.com/stwalsh4118/sitetrack/internal/middleware"
)

// RouterConfig holds the HTTP-level settings of the router.
type RouterConfig struct {
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Health     *HealthHandler
	FloorPlans *FloorPlanHandler
	Catalog    *CatalogHandler
	Audit      *AuditHandler
	Sessions   *SessionHandler
}

// NewRouter builds the gin engine with the middleware stack and all routes.
func NewRouter(log *logger.Logger, cfg RouterConfig, h Handlers) *gin.Engine {
	router := gin.New()

	// RequestID -> Logger -> Recovery -> CORS -> Actor
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Actor())

	router.GET("/health", h.Health.Health)
	router.GET("/health/ready", h.Health.Ready)

	v1 := router.Group("/api/v1")
	v1.GET("/info", h.Health.Info)
	v1.GET("/audit-log", h.Audit.List)

	upload := middleware.BodyLimit(cfg.MaxUploadBytes)

	v1.GET("/projects/:projectID/floor-plans", h.FloorPlans.List)
	v1.POST("/projects/:projectID/floor-plans", upload, h.FloorPlans.Upload)

	plans := v1.Group("/floor-plans/:id")
	{
		plans.PATCH("", h.FloorPlans.Rename)
		plans.PUT("/image", upload, h.FloorPlans.ReplaceImage)
		plans.PUT("/model", upload, h.FloorPlans.AttachModel)
		plans.DELETE("", h.FloorPlans.Delete)
		plans.GET("/targets", h.Catalog.Targets)
	}
	v1.GET("/targets/:id/visits", h.Catalog.Visits)

	v1.POST("/sessions", h.Sessions.Create)
	s := v1.Group("/sessions/:sid")
	{
		s.GET("", h.Sessions.Get)
		s.DELETE("", h.Sessions.Close)

		s.PUT("/plan", h.Sessions.SelectPlan)
		s.POST("/plan/clicks", h.Sessions.ClickPlan)
		s.POST("/placement/cancel", h.Sessions.CancelMove)
		s.DELETE("/selection", h.Sessions.CloseDetail)

		s.POST("/pins/:targetID/select", h.Sessions.SelectPin)
		s.POST("/pins/:targetID/move", h.Sessions.BeginMove)
		s.PATCH("/pins/:targetID", h.Sessions.RenamePin)
		s.DELETE("/pins/:targetID", h.Sessions.DeletePin)

		s.POST("/visits", upload, h.Sessions.AddVisit)
		s.PUT("/visits/:visitID", upload, h.Sessions.EditVisit)
		s.DELETE("/visits/:visitID", h.Sessions.DeleteVisit)
		s.POST("/visits/:visitID/activate", h.Sessions.ActivateVisit)

		s.POST("/viewer", h.Sessions.OpenViewer)
		s.DELETE("/viewer", h.Sessions.CloseViewer)
		s.POST("/viewer/compare", h.Sessions.EnterCompare)
		s.POST("/viewer/bim", h.Sessions.EnterBIM)
		s.POST("/viewer/bim/status", h.Sessions.ReportModelStatus)
		s.POST("/viewer/exit-split", h.Sessions.ExitSplit)
		s.POST("/viewer/sync", h.Sessions.ToggleSync)
		s.PUT("/viewer/:side/photo", h.Sessions.SelectPhoto)
		s.PUT("/viewer/:side/visit", h.Sessions.SelectVisit)
		s.PUT("/viewer/:side/orientation", h.Sessions.Interact)
		s.GET("/viewer/:side/orientation", h.Sessions.Orientation)
	}

	return router
}
