package main

import (
	"log"
	"os"

	"gym-saas-be/internal/model"
	"gym-saas-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: gen_random_uuid() lives in pgcrypto on older Postgres
	log.Println("Step 1: Setting up Extensions...")
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		log.Printf("Warn: Failed to create pgcrypto extension: %v. Continuing...", err)
	}

	// 4. AutoMigrate
	models := []interface{}{
		&model.Admin{},
		&model.Trainer{},
		&model.Payment{},
		&model.WebhookEvent{},
	}
	log.Printf("Step 2: Running AutoMigrate for %d Tables...", len(models))
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: constraints GORM tags cannot express
	log.Println("Step 3: Creating Constraints and Indexes...")
	postMigrationSQL := []string{
		`DO $$ BEGIN
		   IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'admins_subscription_status_check') THEN
		     ALTER TABLE admins ADD CONSTRAINT admins_subscription_status_check
		       CHECK (subscription_status IN ('trial', 'active', 'grace', 'expired', 'cancelled'));
		   END IF;
		 END $$;`,
		// Containment lookups on payment ids inside the history array.
		`CREATE INDEX IF NOT EXISTS idx_admins_payment_history ON admins USING GIN (payment_history jsonb_path_ops);`,
		// Sweep scans only tenants whose state can still change.
		`CREATE INDEX IF NOT EXISTS idx_admins_sweepable ON admins (subscription_status) WHERE subscription_status IN ('trial', 'active', 'grace');`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
