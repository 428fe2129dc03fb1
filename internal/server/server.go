package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/veritext/veritext/internal/actor"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/authorization"
	"github.com/veritext/veritext/internal/config"
	detectiondomain "github.com/veritext/veritext/internal/detection/domain"
	"github.com/veritext/veritext/internal/observability"
	obslogger "github.com/veritext/veritext/internal/observability/logger"
	obsmetrics "github.com/veritext/veritext/internal/observability/metrics"
	obstracing "github.com/veritext/veritext/internal/observability/tracing"
	"github.com/veritext/veritext/internal/quota"
	teamdomain "github.com/veritext/veritext/internal/team/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	resolver     *actor.Resolver
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	apiKeySvc    apikeydomain.Service
	quotaSvc     *quota.Service
	detectionSvc detectiondomain.Service
	teamSvc      teamdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Resolver     *actor.Resolver
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	APIKeySvc    apikeydomain.Service
	QuotaSvc     *quota.Service
	DetectionSvc detectiondomain.Service
	TeamSvc      teamdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		resolver:     p.Resolver,
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		apiKeySvc:    p.APIKeySvc,
		quotaSvc:     p.QuotaSvc,
		detectionSvc: p.DetectionSvc,
		teamSvc:      p.TeamSvc,
	}

	s.registerAuthRoutes()
	s.registerDetectionRoutes()
	s.registerAPIKeyRoutes()
	s.registerTeamRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/guest", s.GuestToken)

	member := auth.Group("", s.ActorRequired(), s.RequireRole(authorization.RoleIndividual))
	{
		member.GET("/me", s.Me)
		member.PATCH("/profile", s.UpdateProfile)
	}
}

func (s *Server) registerDetectionRoutes() {
	r := s.engine.Group("", s.ActorRequired())

	// Guests detect and inspect quota; only members keep history.
	r.GET("/quota", s.GetQuota)
	r.POST("/detect", s.Detect)

	member := r.Group("", s.RequireRole(authorization.RoleIndividual))
	{
		member.GET("/detections", s.ListHistory)
		member.GET("/history", s.ListHistory)
		member.GET("/history/:id", s.GetHistoryItem)
		member.PATCH("/history/:id", s.RenameHistoryItem)
		member.DELETE("/history/:id", s.DeleteHistoryItem)
		member.POST("/history/batch-delete", s.BatchDeleteHistory)
		member.DELETE("/history", s.ClearHistory)
	}
}

func (s *Server) registerAPIKeyRoutes() {
	keys := s.engine.Group("/keys", s.ActorRequired(), s.RequireRole(authorization.RoleIndividual))

	keys.GET("", s.ListAPIKeys)
	keys.POST("", s.CreateAPIKey)
	keys.DELETE("/:id", s.DeactivateAPIKey)
	keys.GET("/self-test", s.APIKeySelfTest)
}

func (s *Server) registerTeamRoutes() {
	teams := s.engine.Group("/teams", s.ActorRequired(), s.RequireRole(authorization.RoleIndividual))

	// Members read their team; mutating it takes the team admin tier.
	teams.GET("/me", s.GetOwnTeam)
	teams.GET("/members", s.ListTeamMembers)

	teams.POST("", s.RequireRole(authorization.RoleTeamAdmin), s.CreateTeam)
	teams.POST("/members", s.RequireRole(authorization.RoleTeamAdmin), s.AddTeamMember)
	teams.DELETE("/members/:id", s.RequireRole(authorization.RoleTeamAdmin), s.RemoveTeamMember)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.ActorRequired(), s.RequireRole(authorization.RoleSysAdmin))

	admin.GET("/users", s.AdminListUsers)
	admin.PATCH("/users/:id/role", s.AdminSetUserRole)
	admin.PATCH("/users/:id/status", s.AdminSetUserActive)
}
