package main

import (
	"log"

	"github.com/astropair/astropair/internal/config"
	"github.com/astropair/astropair/internal/db"
	"github.com/astropair/astropair/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := seed.Run(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")
}
