//go:build integration

package seed

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"engagement/internal/config"
	"engagement/internal/database"
	"engagement/internal/models"
)

func configFromDatabaseURL(dsn string) (*config.Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	password := ""
	if u.User != nil {
		password, _ = u.User.Password()
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	return &config.Config{
		DBDriver:   database.DriverPostgres,
		DBHost:     u.Hostname(),
		DBPort:     port,
		DBUser:     u.User.Username(),
		DBPassword: password,
		DBName:     strings.TrimPrefix(u.Path, "/"),
		DBSSLMode:  "disable",
		Env:        "test",
	}, nil
}

func TestIntegration_RunAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration seed test")
	}
	cfg, err := configFromDatabaseURL(dsn)
	if err != nil {
		t.Fatalf("failed to parse dsn: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		t.Fatalf("db connect failed: %v", err)
	}

	res, err := Run(context.Background(), db, Options{Users: 10, Posts: 5, Comments: 4, Clean: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var posts int64
	if err := db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if int(posts) != res.Posts {
		t.Fatalf("expected %d posts, got %d", res.Posts, posts)
	}
}
