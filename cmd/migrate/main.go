package main

import (
	"context"
	"log"
	"os"

	"github.com/samirrijal/trainboard/internal/adapters/postgres"
	"github.com/samirrijal/trainboard/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("trainboard-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		for _, m := range postgres.Migrations {
			log.Printf("OK  %s", m.Name)
		}
		log.Println("all migrations applied")
	case "down":
		if err := db.Rollback(ctx); err != nil {
			log.Fatalf("rollback: %v", err)
		}
		log.Println("location cache dropped")
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
