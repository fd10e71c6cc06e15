package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stampable/internal/config"
	"stampable/internal/handlers"
	"stampable/internal/models"
	"stampable/internal/observability"
	"stampable/pkg/stamp/gormstamp"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormtracing "gorm.io/plugin/opentelemetry/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the stampable ticket service",
	Long:  `Run the stampable ticket service`,
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(cmd *cobra.Command, args []string) {
	// 加载配置
	cfg := config.Load()

	// 初始化日志系统
	if err := config.InitLogger(cfg); err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	appLogger := logrus.StandardLogger()

	// OpenTelemetry 初始化（可选）
	if shutdown, err := observability.SetupTracing(context.Background(), cfg); err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	} else {
		logrus.Warnf("init tracing: %v", err)
	}

	// 连接数据库
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		cfg.Database.Host, cfg.Database.User, cfg.Database.Password, cfg.Database.Name, cfg.Database.Port,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		appLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.Monitoring.Tracing.Enabled {
		_ = db.Use(gormtracing.NewPlugin())
	}

	// 挂载时间戳插件，按配置启用持久化二级缓存
	var stampOpts []gormstamp.Option
	if cfg.Stamp.DurableCache {
		store, err := gormstamp.NewDBStore(db)
		if err != nil {
			appLogger.Fatalf("Failed to initialize stamp config store: %v", err)
		}
		stampOpts = append(stampOpts, gormstamp.WithStore(store))
	}
	stampOpts = append(stampOpts, gormstamp.WithLogger(appLogger))
	if err := db.Use(gormstamp.New(stampOpts...)); err != nil {
		appLogger.Fatalf("Failed to register stamp plugin: %v", err)
	}

	// 迁移业务模型
	if err := db.AutoMigrate(&models.Agent{}, &models.Ticket{}); err != nil {
		appLogger.Fatalf("Failed to migrate database: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := setupRouter(cfg, db, appLogger)

	// 创建服务器
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	// 启动服务器
	go func() {
		appLogger.Infof("Starting server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(cfg *config.Config, db *gorm.DB, appLogger *logrus.Logger) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	if cfg.Monitoring.Tracing.Enabled {
		serviceName := cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "stampable"
		}
		router.Use(otelgin.Middleware(serviceName))
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"version":   Version,
		})
	})

	// API 路由组
	ticketHandler := handlers.NewTicketHandler(db, appLogger)
	api := router.Group("/api")
	{
		api.POST("/tickets", ticketHandler.Create)
		api.GET("/tickets/:id", ticketHandler.Get)
		api.PATCH("/tickets/:id", ticketHandler.Update)
	}

	return router
}

// corsMiddleware CORS 中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
