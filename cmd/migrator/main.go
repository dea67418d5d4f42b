package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"cinetrack/internal/platform/db"

	"github.com/joho/godotenv"
)

// Migrator applies the embedded schema to POSTGRES_DSN.
func main() {
	var (
		action string
		steps  int
		dsn    string
	)
	flag.StringVar(&action, "action", "up", "migration action: up, down, force, version")
	flag.IntVar(&steps, "steps", 0, "number of steps for up/down, target version for force")
	flag.StringVar(&dsn, "dsn", "", "postgres dsn (defaults to POSTGRES_DSN)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("cinetrack migrator: .env not loaded: %v", err)
	}
	if strings.TrimSpace(dsn) == "" {
		dsn = os.Getenv("POSTGRES_DSN")
	}

	pg, err := db.Connect(dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer func() {
		if err := pg.Close(); err != nil {
			log.Printf("close postgres: %v", err)
		}
	}()

	migrator, err := db.NewMigrator(pg)
	if err != nil {
		log.Fatalf("init migrator: %v", err)
	}

	switch action {
	case "up":
		err = migrator.Up(steps)
	case "down":
		err = migrator.Down(steps)
	case "force":
		err = migrator.Force(steps)
	case "version":
		version, dirty, verr := migrator.Version()
		if verr != nil {
			log.Fatalf("read migration version: %v", verr)
		}
		fmt.Printf("version: %d, dirty: %v\n", version, dirty)
		return
	default:
		log.Fatalf("unknown action %q", action)
	}
	if err != nil {
		log.Fatalf("migration %s failed: %v", action, err)
	}
	log.Printf("migration %s completed", action)
}
