package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Standalone diagnostic for the whiteboard schema. Verifies that the partial
// unique index on project links exists and prints document statistics.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_SSLMODE"),
		os.Getenv("DB_TIMEZONE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	fmt.Println("✅ Connected to database")
	fmt.Println()

	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM pg_indexes
			WHERE tablename = 'whiteboard_documents'
			AND indexname = 'idx_whiteboard_documents_project'
		)
	`
	if err := db.Raw(query).Scan(&exists).Error; err != nil {
		log.Fatal("Failed to check project index:", err)
	}

	fmt.Printf("📊 Partial project index exists: %v\n", exists)
	fmt.Println()

	if !exists {
		fmt.Println("❌ Partial unique index on project_id does NOT exist!")
		fmt.Println("⚠️  One-board-per-project is not enforced; restart the server to migrate")
	}

	type DocStats struct {
		Total      int64
		Linked     int64
		Standalone int64
		Thumbnails int64
	}
	var stats DocStats
	query = `
		SELECT
			COUNT(*) as total,
			COUNT(project_id) as linked,
			COUNT(CASE WHEN project_id IS NULL THEN 1 END) as standalone,
			COUNT(thumbnail) as thumbnails
		FROM whiteboard_documents
	`
	if err := db.Raw(query).Scan(&stats).Error; err != nil {
		log.Fatal("Failed to get statistics:", err)
	}

	fmt.Println("📈 Document Statistics:")
	fmt.Printf("  - Total documents: %d\n", stats.Total)
	fmt.Printf("  - Project linked: %d\n", stats.Linked)
	fmt.Printf("  - Standalone: %d\n", stats.Standalone)
	fmt.Printf("  - With thumbnail: %d\n", stats.Thumbnails)
	fmt.Println()

	type DocInfo struct {
		ID             int64
		WhiteboardKey  string
		OrganizationID int64
		ProjectID      *int64
		UpdatedAt      string
	}
	var docs []DocInfo
	query = `
		SELECT id, whiteboard_key, organization_id, project_id, updated_at
		FROM whiteboard_documents
		ORDER BY updated_at DESC
		LIMIT 10
	`
	if err := db.Raw(query).Scan(&docs).Error; err != nil {
		log.Fatal("Failed to get recent documents:", err)
	}

	fmt.Println("📝 Recently Updated Documents (last 10):")
	for _, d := range docs {
		project := "none"
		if d.ProjectID != nil {
			project = fmt.Sprintf("%d", *d.ProjectID)
		}
		fmt.Printf("  - ID: %d, Key: %s, Org: %d, Project: %s, Updated: %s\n",
			d.ID, d.WhiteboardKey, d.OrganizationID, project, d.UpdatedAt)
	}
}
