// Command admin provides maintenance utilities for Yatube.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"yatube/internal/bootstrap"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/repository"
	"yatube/internal/seed"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin groups import <file.yml>   - Create or update groups from a YAML fixture")
	fmt.Println("  admin groups list                - List all groups")
	fmt.Println("  admin migrate                    - Create or update the database schema")
	fmt.Println("  admin cache clear                - Drop cached home pages")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	command := os.Args[1]
	// Connect migrates the schema, so "migrate" only needs the connection.
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SkipRedis: command != "cache"})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	switch command {
	case "groups":
		if len(os.Args) < 3 {
			usage()
		}
		switch os.Args[2] {
		case "import":
			if len(os.Args) < 4 {
				usage()
			}
			importGroups(ctx, db, os.Args[3])
		case "list":
			listGroups(ctx, db)
		default:
			usage()
		}

	case "migrate":
		fmt.Println("Schema is up to date")

	case "cache":
		if len(os.Args) < 3 || os.Args[2] != "clear" {
			usage()
		}
		if rdb == nil {
			fmt.Println("Redis is not reachable; nothing to clear")
			return
		}
		if err := cache.NewRedisPageCache(rdb).Clear(ctx); err != nil {
			log.Fatalf("Failed to clear cache: %v", err)
		}
		fmt.Println("Home page cache cleared")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func importGroups(ctx context.Context, db *gorm.DB, path string) {
	fixtures, err := seed.LoadGroupsFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}
	groups, err := seed.ImportGroups(ctx, repository.NewGroupRepository(db), fixtures)
	if err != nil {
		log.Fatalf("Failed to import groups: %v", err)
	}
	fmt.Printf("Imported %d groups from %s\n", len(groups), path)
}

func listGroups(ctx context.Context, db *gorm.DB) {
	groups, err := repository.NewGroupRepository(db).List(ctx)
	if err != nil {
		log.Fatalf("Failed to list groups: %v", err)
	}
	if len(groups) == 0 {
		fmt.Println("No groups found")
		return
	}
	for _, g := range groups {
		fmt.Printf("ID: %d | Slug: %s | Title: %s\n", g.ID, g.Slug, g.Title)
	}
}
