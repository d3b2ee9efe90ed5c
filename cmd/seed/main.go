// Command seed fills the database with demo users, groups and posts.
package main

import (
	"context"
	"flag"
	"log"

	"yatube/internal/bootstrap"
	"yatube/internal/config"
	"yatube/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	maxComments := flag.Int("comments", 3, "Maximum comments per post")
	maxFollows := flag.Int("follows", 5, "Maximum authors each user follows")
	shouldClean := flag.Bool("clean", false, "Delete existing content before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = random)")
	flag.Parse()

	opts := seed.Options{
		Users:       *numUsers,
		Posts:       *numPosts,
		MaxComments: *maxComments,
		MaxFollows:  *maxFollows,
		Clean:       *shouldClean,
		DryRun:      *dryRun,
		RandomSeed:  *randomSeed,
	}
	ctx := context.Background()

	if *dryRun {
		summary, err := seed.Run(ctx, nil, opts)
		if err != nil {
			log.Fatalf("Dry run failed: %v", err)
		}
		log.Printf("Dry run would create %s", summary)
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if _, err := seed.Run(ctx, db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
