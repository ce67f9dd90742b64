package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/database"
	_ "github.com/lshigami/quizhub/docs" // Swagger docs
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/controller"
	adminctrl "github.com/lshigami/quizhub/internal/controller/admin"
	userctrl "github.com/lshigami/quizhub/internal/controller/user"
	"github.com/lshigami/quizhub/internal/logger"
	"github.com/lshigami/quizhub/internal/middleware"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"github.com/lshigami/quizhub/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Quiz Platform API
// @version 1.0
// @description Quiz sessions with autosave, pause/resume and scoring, plus admin question management and bulk upload.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		// Core
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			auth.NewTokenVerifier,
		),

		// Repositories
		fx.Provide(
			repository.NewUserRepository,
			repository.NewQuestionRepository,
			repository.NewQuizSessionRepository,
			repository.NewAnswerRepository,
			repository.NewSuggestionRepository,
			repository.NewAnalyticsRepository,
		),

		// Services
		fx.Provide(
			service.NewQuestionValidator,
			service.NewSpreadsheetParser,
			service.NewUploadService,
			service.NewQuizSessionService,
			service.NewQuestionService,
			service.NewUserService,
			service.NewGeminiLLMService,
			service.NewAnalyticsService,
			service.NewSuggestionService,
		),

		// Controllers
		fx.Provide(
			controller.NewHealthController,
			userctrl.NewQuizController,
			userctrl.NewDashboardController,
			adminctrl.NewQuestionController,
			adminctrl.NewUploadController,
			adminctrl.NewUserController,
			adminctrl.NewAnalyticsController,
		),

		fx.Invoke(ConfigureLogger),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}

func ConfigureLogger(cfg *config.Config) {
	logger.Configure(cfg.Log.Level, cfg.Log.Pretty)
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	switch cfg.Server.GinMode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.GinMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		event := log.Info()
		if param.StatusCode >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.Server.CORSAllowOrigins) == 0 || (len(cfg.Server.CORSAllowOrigins) == 1 && cfg.Server.CORSAllowOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSAllowOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

type routeParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Router     *gin.Engine
	Config     *config.Config
	Verifier   auth.TokenVerifier
	Users      service.UserService
	Health     *controller.HealthController
	Quiz       *userctrl.QuizController
	Dashboard  *userctrl.DashboardController
	Questions  *adminctrl.QuestionController
	Upload     *adminctrl.UploadController
	AdminUsers *adminctrl.UserController
	Analytics  *adminctrl.AnalyticsController
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(p routeParams) {
	router := p.Router
	router.GET("/healthz", p.Health.Health)

	api := router.Group("/api/v1")
	api.Use(middleware.Authenticate(p.Verifier, p.Users))
	{
		quiz := api.Group("/quiz")
		quiz.POST("/start", p.Quiz.Start)
		quiz.POST("/save-answer", p.Quiz.SaveAnswer)
		quiz.POST("/save-state", p.Quiz.SaveState)
		quiz.POST("/pause", p.Quiz.Pause)
		quiz.POST("/resume", p.Quiz.Resume)
		quiz.POST("/submit", p.Quiz.Submit)
		quiz.POST("/bookmark", p.Quiz.Bookmark)
		quiz.GET("/sessions", p.Quiz.ListSessions)
		quiz.GET("/sessions/:sessionId", p.Quiz.GetSession)
		quiz.GET("/results/:sessionId", p.Quiz.GetResults)

		me := api.Group("/me")
		me.GET("/dashboard", p.Dashboard.Dashboard)
		me.GET("/suggestions", p.Dashboard.Suggestions)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/questions", p.Questions.List)
		admin.POST("/questions", p.Questions.Create)
		admin.GET("/questions/:id", p.Questions.Get)
		admin.PUT("/questions/:id", p.Questions.Update)
		admin.DELETE("/questions/:id", p.Questions.Delete)

		admin.GET("/users", p.AdminUsers.List)
		admin.PUT("/users/:id/role", p.AdminUsers.UpdateRole)

		admin.POST("/upload/validate", p.Upload.Validate)
		admin.POST("/upload/bulk-insert", p.Upload.BulkInsert)

		admin.GET("/analytics/churn", p.Analytics.Churn)
	}

	server := &http.Server{
		Addr:              ":" + p.Config.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Quiz API server starting on port %s", p.Config.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", p.Config.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := repository.Migrate(db)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
