package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"
)

// Removes terminal group buys (and their participant rows) older than 90
// days. Orders, commissions and coupons are kept: they are the financial
// record.
func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	// Connect to database
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	// Test connection
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	fmt.Println("✅ Connected to database")

	// Step 1: Delete participants of old terminal groups
	result, err := db.Exec(`
		DELETE FROM group_participants
		WHERE group_buy_id IN (
			SELECT id FROM group_buys
			WHERE status IN ('SUCCESS', 'FAILED')
			  AND updated_at < NOW() - INTERVAL '90 days'
		)
	`)
	if err != nil {
		log.Printf("⚠️  Warning deleting group_participants: %v", err)
	} else {
		rows, _ := result.RowsAffected()
		fmt.Printf("🗑️  Deleted %d participant rows\n", rows)
	}

	// Step 2: Delete the groups themselves
	result, err = db.Exec(`
		DELETE FROM group_buys
		WHERE status IN ('SUCCESS', 'FAILED')
		  AND updated_at < NOW() - INTERVAL '90 days'
	`)
	if err != nil {
		log.Fatal("❌ Failed to delete group_buys:", err)
	}
	rows, _ := result.RowsAffected()
	fmt.Printf("🗑️  Deleted %d stale group buys\n", rows)

	// Verify cleanup
	fmt.Println("\n📊 Verification:")
	var count int

	db.QueryRow("SELECT COUNT(*) FROM group_buys WHERE status = 'PENDING'").Scan(&count)
	fmt.Printf("   PENDING: %d\n", count)

	db.QueryRow("SELECT COUNT(*) FROM group_buys WHERE status = 'SUCCESS'").Scan(&count)
	fmt.Printf("   SUCCESS: %d\n", count)

	db.QueryRow("SELECT COUNT(*) FROM group_buys WHERE status = 'FAILED'").Scan(&count)
	fmt.Printf("   FAILED: %d\n", count)

	fmt.Println("\n✅ Database cleanup complete!")
}
