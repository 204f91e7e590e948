// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"context"
	"log"

	"github.com/tumbsky/tumbsky/internal/server"
	"github.com/tumbsky/tumbsky/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := server.Migrate(context.Background(), cfg); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("migrations applied")
}
