package api

import (
	"context"
	"errors"
	"time"

	assistantHandler "recipe-aggregator/internal/api/handlers/assistant"
	favoriteHandler "recipe-aggregator/internal/api/handlers/favorite"
	"recipe-aggregator/internal/api/handlers/health"
	recipeHandler "recipe-aggregator/internal/api/handlers/recipe"
	"recipe-aggregator/internal/api/middleware"
	"recipe-aggregator/internal/core/ai/queue"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由需要的服務
type Dependencies struct {
	Searcher    recipeHandler.Searcher
	Suggester   recipeHandler.Suggester
	Categories  recipeHandler.CategoryLister
	Assistant   assistantHandler.Assistant
	Favorites   favoriteHandler.Favorites
	Metrics     *metrics.Metrics
	Checks      map[string]health.Check
	QueueStatus func() queue.Status
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Searcher == nil || deps.Suggester == nil || deps.Categories == nil || deps.Assistant == nil || deps.Favorites == nil {
		return nil, errors.New("router dependencies are incomplete")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())
	if deps.Metrics != nil {
		router.Use(middleware.Metrics(deps.Metrics))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.UserIDHeader},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	router.Use(requestTimeout(cfg.Server.RequestTimeout))

	healthHandler := health.NewHandler(cfg, deps.Checks, deps.QueueStatus)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	if deps.Metrics != nil && cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Caller())
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	api.Use(middleware.Deduplication(middleware.NewDeduplicator(cfg.DedupWindow)))
	{
		recipes := recipeHandler.NewHandler(deps.Searcher, deps.Suggester, deps.Categories)
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.GET("/search", recipes.Search)
			recipeGroup.POST("/suggest", recipes.Suggest)
			recipeGroup.GET("/categories", recipes.Categories)
			recipeGroup.GET("/:id", recipes.Get)
		}

		assistant := assistantHandler.NewHandler(deps.Assistant)
		assistantGroup := api.Group("/assistant")
		{
			assistantGroup.GET("/tip", assistant.Tip)
			assistantGroup.POST("/chat", assistant.Chat)
			assistantGroup.GET("/usage", assistant.Usage)
		}

		favorites := favoriteHandler.NewHandler(deps.Favorites)
		favoriteGroup := api.Group("/favorites")
		{
			favoriteGroup.GET("", favorites.List)
			favoriteGroup.POST("", favorites.Create)
			favoriteGroup.PATCH("/:id", favorites.Update)
			favoriteGroup.DELETE("/:id", favorites.Delete)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

// requestTimeout 為每個請求加上逾時；逾時且尚未回應時回傳 504
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			common.WriteError(c, common.ErrGatewayTimeout, gin.H{"timeout": timeout.String()})
		}
	}
}
