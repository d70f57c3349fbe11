package main

import (
	"reviewhub/internal/config"
	"reviewhub/internal/db"
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig()
	db.MigrateDSN(cfg.DSN())
}
