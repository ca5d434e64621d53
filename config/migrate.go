package config

import (
	"log"

	"report-tracker/global"
	"report-tracker/models"
)

// MigrateDB runs database migrations
func MigrateDB() {
	err := global.DB.AutoMigrate(
		&models.User{},
		&models.AnalysisReport{},
		&models.ReportPerformance{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")
}
