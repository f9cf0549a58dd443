package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-aggregator/internal/api"
	"recipe-aggregator/internal/api/handlers/health"
	"recipe-aggregator/internal/core/aggregate"
	"recipe-aggregator/internal/core/ai/cache"
	"recipe-aggregator/internal/core/ai/openrouter"
	"recipe-aggregator/internal/core/ai/provider"
	"recipe-aggregator/internal/core/ai/queue"
	"recipe-aggregator/internal/core/ai/service"
	"recipe-aggregator/internal/core/assistant"
	"recipe-aggregator/internal/core/catalog"
	"recipe-aggregator/internal/core/favorite"
	"recipe-aggregator/internal/core/persist"
	"recipe-aggregator/internal/core/source"
	"recipe-aggregator/internal/core/translate"
	"recipe-aggregator/internal/infrastructure/config"
	"recipe-aggregator/internal/infrastructure/database"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/infrastructure/store"
	"recipe-aggregator/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("openrouter_api_key", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
		zap.String("openrouter_model", cfg.OpenRouter.Model),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Int("daily_quota", cfg.Quota.DailyLimit),
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	m := metrics.New()

	// 快取與額度計數
	cacheStore := cache.New(startCtx, cfg)
	defer cacheStore.Close()

	// 生成服務；沒有 API key 時停用
	var generator provider.Provider
	var workers *queue.Manager
	if cfg.OpenRouter.APIKey != "" {
		workers = queue.NewManager(cfg.Queue, openrouter.NewClient(openrouter.ConfigFrom(cfg.OpenRouter)))
		defer workers.Close()
		generator = workers
	} else {
		common.LogWarn("未設定 OpenRouter API key，停用生成功能")
	}
	ai := service.NewService(cfg, generator, cacheStore, m)

	// 資料庫
	db, err := database.Connect(startCtx, cfg.Database, cfg.App.Debug)
	if err != nil {
		common.LogFatal("Failed to connect database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db); err != nil {
			common.LogWarn("關閉資料庫失敗", zap.Error(err))
		}
	}()
	recipes := store.NewRecipeRepository(db)
	favorites := store.NewFavoriteRepository(db)

	translator, err := translate.New()
	if err != nil {
		common.LogFatal("Failed to load translation dictionary", zap.Error(err))
	}

	// 來源與聚合
	local := source.NewLocalSource(recipes)
	catalogSource := source.NewCatalogSource(catalog.NewClient(cfg.Catalog, m), translator)
	generative := source.NewGenerativeSource(ai)
	gateway := persist.NewGateway(recipes, translator, m)
	orchestrator := aggregate.NewOrchestrator(cfg.Aggregator, local, catalogSource, generative, gateway, m)

	favoriteService := favorite.NewService(favorites, recipes, gateway)
	assistantService := assistant.NewService(ai, gateway, cfg.Aggregator.AutoPersist)

	checks := map[string]health.Check{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if pinger, ok := cacheStore.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = pinger.Ping
	}
	var queueStatus func() queue.Status
	if workers != nil {
		queueStatus = workers.GetQueueStatus
	}

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Searcher:    orchestrator,
		Suggester:   assistantService,
		Categories:  catalogSource,
		Assistant:   assistantService,
		Favorites:   favoriteService,
		Metrics:     m,
		Checks:      checks,
		QueueStatus: queueStatus,
	})
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Bool("generative", ai.Available()),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server",
				zap.Error(err),
			)
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown",
			zap.Error(err),
		)
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
