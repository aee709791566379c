package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/pkg/config"
	"backend/pkg/logger"
	stdlog "log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Back-office Financial API
// @version         1.0
// @description     Financial documents, schedules/attendance and project profitability reporting.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		stdlog.Println("No configs/.env file found or error loading it")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	db, err := database.NewConnection(cfg.DB.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Msg("connected to PostgreSQL")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	projectRepo := repository.NewProjectRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	aggregator := service.NewLaborAggregator(projectRepo, scheduleRepo)
	projectService := service.NewProjectService(projectRepo, auditRepo, aggregator, txManager, wsHub)
	scheduleService := service.NewScheduleService(scheduleRepo, auditRepo, aggregator, txManager, wsHub)
	documentService := service.NewDocumentService(documentRepo, auditRepo, txManager)
	evmService := service.NewEVMService(projectRepo)
	ledgerService := service.NewLedgerService(projectRepo)

	// Initialize Handlers
	projectHandler := handler.NewProjectHandler(projectService, evmService)
	scheduleHandler := handler.NewScheduleHandler(scheduleService)
	documentHandler := handler.NewDocumentHandler(documentService)
	performanceHandler := handler.NewPerformanceHandler(ledgerService)

	// Set up Gin Router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	projectHandler.RegisterRoutes(router.Group(""))
	scheduleHandler.RegisterRoutes(router.Group(""))
	documentHandler.RegisterRoutes(router.Group(""))
	performanceHandler.RegisterRoutes(router.Group(""))

	log.Info().Str("port", cfg.HTTP.Port).Msg("server listening")
	if err := router.Run(":" + cfg.HTTP.Port); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
