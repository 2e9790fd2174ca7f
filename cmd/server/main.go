// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/eisenflow/eisenflow/internal/api"
	"github.com/eisenflow/eisenflow/internal/config"
	"github.com/eisenflow/eisenflow/internal/database"
	"github.com/eisenflow/eisenflow/internal/remote"
	"github.com/eisenflow/eisenflow/internal/repository"
	"github.com/eisenflow/eisenflow/internal/service"
	"github.com/eisenflow/eisenflow/pkg/auth"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.Connect(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	if cfg.Server.AutoMigrate {
		log.Println("Running database migrations...")
		if err := database.Migrate(context.Background(), db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	tokens := buildTokenProvider(cfg)
	adapter := remote.NewAdapter(cfg.Remote.BaseURL, cfg.Remote.RequestTimeout, tokens)

	taskRepo := repository.NewTaskRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)

	// The external analysis collaborator plugs in here. Until one is
	// configured, the rule-based analyzer keeps single-binary deployments
	// working.
	var analyzer service.Analyzer = service.NewMockAnalyzer()
	log.Println("Using rule-based analyzer")

	syncService := service.NewSyncService(taskRepo, projectRepo, adapter)
	taskService := service.NewTaskService(taskRepo, projectRepo, syncService)
	suggestionService := service.NewSuggestionService(taskRepo, projectRepo, suggestionRepo, analyzer, syncService)

	handler := api.NewHandler(taskService, syncService, suggestionService)

	server := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("Eisenflow HTTP server listening on port %s", cfg.Server.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server shutdown complete")
}

func buildTokenProvider(cfg *config.Config) auth.TokenProvider {
	if cfg.Remote.AccessToken != "" {
		log.Println("Using static remote access token")
		return &auth.StaticTokenProvider{AccessToken: cfg.Remote.AccessToken}
	}
	return auth.NewOAuthTokenProvider(
		cfg.Remote.ClientID,
		cfg.Remote.ClientSecret,
		cfg.Remote.TokenURL,
		cfg.Remote.RefreshToken,
	)
}
