package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"me_result_portal/backend/internal/auth"
	"me_result_portal/backend/internal/gateway"
	"me_result_portal/backend/internal/result"
	"me_result_portal/backend/internal/review"
	"me_result_portal/backend/internal/shared"
)

func main() {
	log.Println("INFO: Starting Result Portal Server...")

	// 1. Load Configuration
	shared.LoadEnv("")

	config, err := shared.LoadPortalConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if err := shared.ValidatePortalConfig(config); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}
	if shared.IsDevelopment(config) {
		shared.PrintConfig(config)
	}

	// 2. Connect to MongoDB
	client, db, err := shared.ConnectMongoDB(&config.MongoDB)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to MongoDB: %v", err)
	}

	// 3. Wire Services
	store := result.NewMongoStore(db)
	resultService := result.NewService(store, config.PublishWorkers)
	stage := review.NewStage(review.NewMongoCache(db), config.ReviewTTL)
	authService := auth.NewService(db, config)

	// 4. Setup Routes and Configure Server
	router := gateway.SetupRoutes(authService, resultService, stage, config)

	server := &http.Server{
		Addr:         ":" + config.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Start Server in a Goroutine
	go func() {
		log.Printf("INFO: Server listening on port %s", config.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("FATAL: HTTP server error: %v", err)
		}
	}()

	// 6. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP server shutdown error: %v", err)
	}
	if err := shared.DisconnectMongoDB(client); err != nil {
		log.Printf("Warning: MongoDB disconnect error: %v", err)
	}

	log.Println("INFO: Server stopped.")
}
