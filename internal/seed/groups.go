package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"gopkg.in/yaml.v3"
)

// GroupFixture is one group entry of a YAML fixture file:
//
//	groups:
//	  - title: Cats
//	    slug: cats
//	    description: Everything feline.
type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// Model converts the fixture to a group row.
func (g GroupFixture) Model() *models.Group {
	return &models.Group{
		Title:       strings.TrimSpace(g.Title),
		Slug:        strings.TrimSpace(g.Slug),
		Description: strings.TrimSpace(g.Description),
	}
}

// Validate checks the title and slug.
func (g GroupFixture) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return fmt.Errorf("group %q: title is required", g.Slug)
	}
	if len([]rune(strings.TrimSpace(g.Title))) > 200 {
		return fmt.Errorf("group %q: title must be at most 200 characters", g.Slug)
	}
	if err := validation.ValidateGroupSlug(strings.TrimSpace(g.Slug)); err != nil {
		return fmt.Errorf("group %q: %w", g.Slug, err)
	}
	return nil
}

// DefaultGroups are created by every seeding run.
var DefaultGroups = []GroupFixture{
	{Title: "Cats", Slug: "cats", Description: "Photos and stories about cats."},
	{Title: "Travel", Slug: "travel", Description: "Trips, routes and places worth a visit."},
	{Title: "Books", Slug: "books", Description: "What we read and what we think of it."},
	{Title: "Programming", Slug: "programming", Description: "Code, tools and war stories."},
	{Title: "Cooking", Slug: "cooking", Description: "Recipes and kitchen experiments."},
}

type groupFile struct {
	Groups []GroupFixture `yaml:"groups"`
}

// ParseGroups decodes a YAML fixture and validates every entry. Duplicate
// slugs are rejected.
func ParseGroups(r io.Reader) ([]GroupFixture, error) {
	var file groupFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid group fixture: %w", err)
	}

	seen := make(map[string]bool, len(file.Groups))
	for _, g := range file.Groups {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		slug := strings.TrimSpace(g.Slug)
		if seen[slug] {
			return nil, fmt.Errorf("group %q: duplicate slug", slug)
		}
		seen[slug] = true
	}
	return file.Groups, nil
}

// LoadGroupsFile reads and parses the fixture at path.
func LoadGroupsFile(path string) ([]GroupFixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseGroups(f)
}

// ImportGroups upserts every fixture by slug and returns the stored rows.
func ImportGroups(ctx context.Context, repo repository.GroupRepository, fixtures []GroupFixture) ([]*models.Group, error) {
	groups := make([]*models.Group, 0, len(fixtures))
	for _, fixture := range fixtures {
		g := fixture.Model()
		if err := repo.Upsert(ctx, g); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Slug, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}
