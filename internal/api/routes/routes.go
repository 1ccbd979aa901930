package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yoockh/intervuo/internal/api/handlers"
	"github.com/yoockh/intervuo/internal/api/middleware"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	Analysis  *handlers.AnalysisHandler
	Profile   *handlers.ProfileHandler
	Auth      middleware.AuthConfig
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", handlers.Ping)
	r.GET("/health", handlers.Health)

	api := r.Group("/api")
	api.Use(middleware.JWTAuth(d.Auth))

	api.POST("/start-interview", d.Interview.Start)
	api.POST("/analyze-transcript", d.Analysis.Analyze)

	api.GET("/interviews", d.Interview.List)
	api.GET("/interviews/:id", d.Interview.Get)
	api.GET("/interviews/:id/archive", d.Interview.Archive)

	api.GET("/profile/me", d.Profile.Me)
	api.PUT("/profile", d.Profile.Update)
}
