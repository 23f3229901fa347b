package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prodtrace/smartlabel/internal/catalog"
	"github.com/prodtrace/smartlabel/internal/config"
	"github.com/prodtrace/smartlabel/internal/database"
	"github.com/prodtrace/smartlabel/internal/handlers"
	"github.com/prodtrace/smartlabel/internal/hardware"
	"github.com/prodtrace/smartlabel/internal/models"
	"github.com/prodtrace/smartlabel/internal/services/labeler"
	"github.com/prodtrace/smartlabel/internal/services/trace"
	"github.com/prodtrace/smartlabel/internal/services/workflow"
	"github.com/prodtrace/smartlabel/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (detects embedded vs external automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-migrate schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.Product{},
		&models.QualityCheck{},
		&models.Label{},
		&models.WorkflowLog{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Load the embedded product catalog
	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("Failed to load product catalog: %v", err)
	}
	log.Printf("✅ Catalog loaded: %d products in %d categories\n", cat.Len(), len(cat.Categories()))

	// 5. Simulated hardware layer
	sim := hardware.New()
	if cfg.Simulation.Fast {
		log.Println("⚡ SIM_FAST enabled: hardware delays disabled")
		sim = hardware.NewFast()
	}

	// 6. Services
	hub := websocket.NewHub()
	audit := workflow.NewAuditLog(db.DB, hub)
	labels := labeler.New(db.DB, labeler.ImageRenderer{}, sim, cfg.TraceBaseURL, audit)
	engine := workflow.NewEngine(db.DB, cat, sim, labels, audit)
	resolver := trace.NewResolver(db.DB)

	queue := workflow.NewQueue(engine, 2)
	if err := queue.Start(); err != nil {
		log.Fatalf("Failed to start workflow queue: %v", err)
	}
	log.Println("✅ Workflow queue started")

	// 7. HTTP router
	router := handlers.NewRouter(handlers.Deps{
		DB:       db,
		Catalog:  cat,
		Sim:      sim,
		Engine:   engine,
		Queue:    queue,
		Labels:   labels,
		Resolver: resolver,
		Hub:      hub,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Printf("🚀 Server starting on port %s [trace base: %s]\n", cfg.Port, cfg.TraceBaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	queue.Stop()

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
