// Command seed fills the database with demo users, posts and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"engagement/internal/config"
	"engagement/internal/database"
	"engagement/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	numComments := flag.Int("comments", 6, "Number of comments per post, replies included")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 picks one)")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d posts, %d comments per post, clean=%v\n",
		*numUsers, *numPosts, *numComments, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	res, err := seed.Run(context.Background(), db, seed.Options{
		Users:    *numUsers,
		Posts:    *numPosts,
		Comments: *numComments,
		Clean:    *shouldClean,
		Seed:     *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d posts, %d comments, %d reactions, %d reposts, %d shares.",
		res.Users, res.Posts, res.Comments, res.PostReactions+res.CommentReactions, res.Reposts, res.Shares)
}
