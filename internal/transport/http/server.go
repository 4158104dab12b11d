package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ameplabs/classwire-server/internal/auth"
	"github.com/ameplabs/classwire-server/internal/config"
	"github.com/ameplabs/classwire-server/internal/core"
	"github.com/ameplabs/classwire-server/internal/store"
)

// NewServer builds the HTTP server: REST API under /api plus the realtime
// WebSocket endpoint at /ws.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, st, logger)
	classHandlers := NewClassHandlers(hub, st, logger)
	pollHandlers := NewPollHandlers(hub, st, logger)

	api := router.Group("/api")
	{
		api.GET("/health", apiHandlers.Health)
		api.POST("/register", apiHandlers.Register)
		api.POST("/login", apiHandlers.Login)
	}

	authed := api.Group("")
	authed.Use(AuthMiddleware(authService, logger))
	{
		authed.GET("/verify", apiHandlers.Verify)
		authed.POST("/change-password", apiHandlers.ChangePassword)
		authed.GET("/me", apiHandlers.Me)

		authed.POST("/classes", RequireRole(core.RoleTeacher, core.RoleAdmin), classHandlers.CreateClass)
		authed.GET("/classes", classHandlers.ListClasses)
		authed.POST("/classes/:id/enroll", classHandlers.Enroll)
		authed.DELETE("/classes/:id/enroll", classHandlers.Unenroll)
		authed.GET("/classes/:id/presence", classHandlers.Presence)

		authed.POST("/classes/:id/polls", RequireRole(core.RoleTeacher, core.RoleAdmin), pollHandlers.CreatePoll)
		authed.GET("/classes/:id/polls", pollHandlers.ListPolls)
		authed.POST("/polls/:id/responses", pollHandlers.SubmitResponse)
		authed.POST("/polls/:id/close", RequireRole(core.RoleTeacher, core.RoleAdmin), pollHandlers.ClosePoll)

		authed.POST("/engagement/alerts", RequireRole(core.RoleTeacher, core.RoleAdmin), pollHandlers.IngestAlert)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
