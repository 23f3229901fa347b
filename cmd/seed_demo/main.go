// Command seed_demo populates the database with a handful of demo
// products drawn from the embedded catalog, then runs the automated
// workflow on each so the dashboard has data to show.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/prodtrace/smartlabel/internal/catalog"
	"github.com/prodtrace/smartlabel/internal/config"
	"github.com/prodtrace/smartlabel/internal/database"
	"github.com/prodtrace/smartlabel/internal/hardware"
	"github.com/prodtrace/smartlabel/internal/models"
	"github.com/prodtrace/smartlabel/internal/services/labeler"
	"github.com/prodtrace/smartlabel/internal/services/workflow"
)

func main() {
	count := flag.Int("count", 5, "number of demo products to create")
	runWorkflow := flag.Bool("workflow", true, "run the automated workflow on each product")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(
		&models.Product{},
		&models.QualityCheck{},
		&models.Label{},
		&models.WorkflowLog{},
	); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		log.Fatalf("Failed to load product catalog: %v", err)
	}

	sim := hardware.NewFast()
	audit := workflow.NewAuditLog(db.DB, nil)
	labels := labeler.New(db.DB, labeler.ImageRenderer{}, sim, cfg.TraceBaseURL, audit)
	engine := workflow.NewEngine(db.DB, cat, sim, labels, audit)
	engine.SetBatchDelay(0)

	now := time.Now().UTC()
	for i := 0; i < *count; i++ {
		entry := cat.Random()
		mfg := now.AddDate(0, 0, -i)
		exp := mfg.AddDate(1, 0, 0)

		product := models.Product{
			Name:              entry.Name,
			Description:       fmt.Sprintf("Demo batch of %s", entry.Name),
			Category:          entry.Category,
			Manufacturer:      "Demo Foods Pvt Ltd",
			BatchNumber:       fmt.Sprintf("DEMO-%s-%03d", now.Format("20060102"), i+1),
			ManufacturingDate: &mfg,
			ExpiryDate:        &exp,
			AutoLabelEnabled:  true,
		}
		if err := db.Create(&product).Error; err != nil {
			log.Fatalf("Failed to create demo product: %v", err)
		}
		log.Printf("✅ Created %s (batch %s)", product.Name, product.BatchNumber)

		if *runWorkflow {
			status, err := engine.RunWorkflow(context.Background(), product.ID)
			if err != nil {
				log.Printf("⚠️ Workflow for %s failed: %v", product.Name, err)
				continue
			}
			log.Printf("   Workflow finished: %s", status)
		}
	}

	log.Printf("✅ Seeded %d demo products", *count)
}
