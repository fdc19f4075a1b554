package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/school-system/results/internal/bootstrap"
	"github.com/school-system/results/internal/config"
	"github.com/school-system/results/internal/database"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/handlers"
	"github.com/school-system/results/internal/middleware"
	"github.com/school-system/results/internal/models"
	"github.com/school-system/results/internal/performance"
	"github.com/school-system/results/internal/services"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title Academic Results API
// @version 1.0
// @description Grade banding, GPA/CGPA computation and transcripts for tertiary institutions
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if len(os.Args) > 1 {
		handleCommand(os.Args[1], os.Args[2:])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	engine, scale, cleanup, err := bootstrap.Engine(context.Background(), cfg, db)
	if err != nil {
		log.Fatal("Failed to build GPA engine:", err)
	}
	defer cleanup()

	if cfg.Server.Env == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := setupRouter(cfg, db, engine, scale)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func setupRouter(cfg *config.Config, db *gorm.DB, engine *performance.Engine, scale *grading.Scale) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// CORS
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		for _, allowedOrigin := range cfg.CORS.Origins {
			if origin == allowedOrigin {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Institution-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check - simple endpoint that doesn't require DB
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "results-api"})
	})

	if cfg.Monitoring.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Services
	authService := services.NewAuthService(db, cfg)
	auditService := services.NewAuditService(db)
	scaleService := services.NewGradingScaleService(db, scale)
	resultService := services.NewResultService(db, scaleService, engine)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	resultHandler := handlers.NewResultHandler(engine, resultService, auditService)
	performanceHandler := handlers.NewPerformanceHandler(engine, resultService, auditService)
	gradingHandler := handlers.NewGradingHandler(scaleService, auditService)
	auditHandler := handlers.NewAuditHandler(auditService)
	userHandler := handlers.NewUserHandler(db, authService, auditService)

	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(authService))
		protected.Use(middleware.TenantMiddleware())
		{
			protected.GET("/auth/me", authHandler.Me)

			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/audit/recent", auditHandler.GetRecentActivity)
				admin.GET("/users", userHandler.List)
				admin.POST("/users", userHandler.Create)
				admin.PUT("/users/:id/active", userHandler.SetActive)
			}

			registrar := protected.Group("")
			registrar.Use(middleware.RequireRegistrar())
			{
				registrar.DELETE("/results/:id", resultHandler.Delete)
				registrar.POST("/terms/sync", performanceHandler.SyncTerm)
				registrar.PUT("/grading/scale", gradingHandler.UpdateScale)
			}

			staff := protected.Group("")
			staff.Use(middleware.RequireStaff())
			{
				staff.POST("/results", resultHandler.CreateOrUpdate)
				staff.GET("/students/:id/results", resultHandler.GetByStudent)
				staff.GET("/students/:id/gpa", performanceHandler.SemesterGPA)
				staff.GET("/students/:id/cgpa", performanceHandler.CumulativeGPA)
				staff.GET("/students/:id/transcript", performanceHandler.Transcript)
				staff.POST("/students/:id/gpa/sync", performanceHandler.SyncSemesterGPA)
				staff.POST("/students/:id/cgpa/sync", performanceHandler.SyncCumulativeGPA)
				staff.GET("/courses/:id/statistics", performanceHandler.CourseStatistics)
				staff.GET("/grading/scale", gradingHandler.GetScale)
			}
		}
	}

	return r
}

func handleCommand(cmd string, args []string) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	switch cmd {
	case "migrate":
		if err := database.Migrate(db); err != nil {
			log.Fatal("Migration failed:", err)
		}
		log.Println("Migration completed successfully")

	case "seed-admin":
		seedAdmin(db, cfg)

	case "sync-term":
		os.Exit(syncTerm(db, cfg, args))

	default:
		log.Printf("Unknown command: %s", cmd)
		os.Exit(2)
	}
}

func seedAdmin(db *gorm.DB, cfg *config.Config) {
	if cfg.Server.SeedAdminSecret == "" {
		log.Fatal("SEED_ADMIN_SECRET is required to seed the admin account")
	}
	authService := services.NewAuthService(db, cfg)

	var count int64
	db.Model(&models.User{}).Where("role = ?", services.RoleAdmin).Count(&count)
	if count > 0 {
		log.Println("Admin already exists")
		return
	}

	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@results.local"
	}

	admin := &models.User{
		Email:    email,
		FullName: "System Administrator",
		Role:     services.RoleAdmin,
		IsActive: true,
	}
	if err := authService.CreateUser(context.Background(), admin, cfg.Server.SeedAdminSecret); err != nil {
		log.Fatal("Failed to create admin:", err)
	}

	log.Printf("Admin created: %s", email)
}

// syncTerm returns the process exit code; 1 means some students failed.
func syncTerm(db *gorm.DB, cfg *config.Config, args []string) int {
	if len(args) != 2 {
		log.Fatal("usage: api sync-term <session_id> <semester_id>")
	}
	sessionID, err := uuid.Parse(args[0])
	if err != nil {
		log.Fatal("Invalid session ID:", err)
	}
	semesterID, err := uuid.Parse(args[1])
	if err != nil {
		log.Fatal("Invalid semester ID:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	engine, _, cleanup, err := bootstrap.Engine(ctx, cfg, db)
	if err != nil {
		log.Fatal("Failed to build GPA engine:", err)
	}
	defer cleanup()

	result, err := engine.SyncTerm(ctx, performance.TermKey{SessionID: sessionID, SemesterID: semesterID})
	if err != nil {
		log.Printf("Term sync failed: %v", err)
		return 1
	}

	log.Printf("Synced %d of %d students in %s (%d semester failures, %d cumulative failures)",
		result.Succeeded, len(result.Students), result.Duration, result.FailedSemester, result.FailedCumulative)
	for _, st := range result.Students {
		if st.Error != "" {
			log.Printf("  %s: %s", st.StudentID, st.Error)
		}
	}
	if result.Partial() {
		return 1
	}
	return 0
}
