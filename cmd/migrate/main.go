// Command migrate runs schema operations for the engagement database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"engagement/internal/config"
	"engagement/internal/database"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|status|truncate>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// database.Connect migrates outside production, so open the raw dialector.
	dialector, err := database.Dialector(cfg)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Println("automigrations applied")
	case "status":
		migrator := db.WithContext(ctx).Migrator()
		pending := 0
		for _, model := range database.PersistentModels() {
			stmt := &gorm.Statement{DB: db}
			if err := stmt.Parse(model); err != nil {
				return fmt.Errorf("parse %T: %w", model, err)
			}
			table := stmt.Schema.Table
			if !migrator.HasTable(model) {
				pending++
				log.Printf("missing: %s", table)
				continue
			}
			var rows int64
			if err := db.WithContext(ctx).Table(table).Count(&rows).Error; err != nil {
				return fmt.Errorf("count %s: %w", table, err)
			}
			log.Printf("present: %s (%d rows)", table, rows)
		}
		log.Printf("driver=%s env=%s missing=%d", dialector.Name(), cfg.Env, pending)
	case "truncate":
		if cfg.IsProduction() {
			return fmt.Errorf("refusing to truncate a production database")
		}
		if err := database.Truncate(ctx, db); err != nil {
			return err
		}
		log.Println("all tables truncated")
	default:
		return usage()
	}
	return nil
}
