package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pms/internal/auth"
	"pms/internal/config"
	"pms/internal/database"
	"pms/internal/handler"
	"pms/internal/middleware"
	"pms/internal/reminder"
	"pms/internal/repository"
	"pms/internal/service"
	"pms/internal/telemetry"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Server struct {
	Engine    *gin.Engine
	DB        *gorm.DB
	Config    *config.Config
	Reminders *reminder.Pipeline

	shutdownTracing func(context.Context) error
}

func Init(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, "pms", cfg.OTELEndpoint)
	if err != nil {
		return nil, fmt.Errorf("❌ failed to set up tracing: %w", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	store := repository.NewStore(db)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry())

	reminders, err := reminder.Setup(ctx, cfg, store.Tasks)
	if err != nil {
		return nil, err
	}

	return &Server{
		Engine:          NewRouter(store, tokens),
		DB:              db,
		Config:          cfg,
		Reminders:       reminders,
		shutdownTracing: shutdownTracing,
	}, nil
}

// NewRouter wires repositories, services and handlers into a gin engine.
func NewRouter(store *repository.Store, tokens *auth.TokenManager) *gin.Engine {
	r := gin.Default()

	// Initialize services
	projectService := service.NewProjectService(store)
	taskService := service.NewTaskService(store)
	userService := service.NewUserService(store.Users, tokens)

	// Initialize handlers
	userHandler := handler.NewUserHandler(userService)
	projectHandler := handler.NewProjectHandler(projectService)
	taskHandler := handler.NewTaskHandler(taskService)

	// Public routes
	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(tokens, store.Users))
	{
		// Project routes
		route(authorized, http.MethodPost, "/projects", projectHandler.Create)
		route(authorized, http.MethodGet, "/projects", projectHandler.List)
		route(authorized, http.MethodGet, "/projects/latest", projectHandler.Latest)
		route(authorized, http.MethodGet, "/projects/user-projects", projectHandler.UserProjects)
		route(authorized, http.MethodPost, "/projects/bulk-delete", projectHandler.BulkDelete)
		route(authorized, http.MethodGet, "/projects/:id", projectHandler.Get)
		route(authorized, http.MethodPatch, "/projects/:id", projectHandler.Update)
		route(authorized, http.MethodDelete, "/projects/:id", projectHandler.Delete)
		route(authorized, http.MethodGet, "/projects/:id/tasks", projectHandler.Tasks)

		// Task routes
		route(authorized, http.MethodPost, "/tasks", taskHandler.Create)
		route(authorized, http.MethodGet, "/tasks", taskHandler.List)
		route(authorized, http.MethodGet, "/tasks/:id", taskHandler.Get)
		route(authorized, http.MethodPatch, "/tasks/:id", taskHandler.Update)
		route(authorized, http.MethodDelete, "/tasks/:id", taskHandler.Delete)
		route(authorized, http.MethodGet, "/mytasks", taskHandler.MyTasks)
	}
	return r
}

// route регистрирует путь и его вариант со слешем на конце
func route(g *gin.RouterGroup, method, path string, h gin.HandlerFunc) {
	g.Handle(method, path, h)
	g.Handle(method, path+"/", h)
}

// Run serves HTTP and runs the reminder scheduler and worker until SIGINT/SIGTERM.
func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: middleware.CORS(s.Config.CORSAllowedOrigins)(s.Engine),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("🚀 Server running on port %s\n", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("🛑 Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return reminder.NewScheduler(s.Reminders.Scanner, s.Config.ReminderInterval).Run(ctx)
	})
	g.Go(func() error {
		return s.Reminders.Worker.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Server stopped with error: %v", err)
	}

	if err := s.Reminders.Close(); err != nil {
		log.Printf("⚠️  closing reminder queue: %v", err)
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.shutdownTracing(flushCtx); err != nil {
		log.Printf("⚠️  flushing traces: %v", err)
	}

	log.Println("✅ Server exited properly")
}
