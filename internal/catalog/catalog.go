package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/solace-app/solace/internal/model"
	"github.com/solace-app/solace/internal/storage"
)

// The achievement catalog ships as data, not code, so new achievements can
// be added without touching the engine.
//
//go:embed achievements.yaml
var catalogFile []byte

type Entry struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Metric      string `yaml:"metric"`
	Requirement int    `yaml:"requirement"`
	Tier        int    `yaml:"tier"`
	Points      int    `yaml:"points"`
	Hidden      bool   `yaml:"hidden"`
}

type catalogDoc struct {
	Achievements []Entry `yaml:"achievements"`
}

// Load parses and validates the embedded catalog.
func Load() ([]Entry, error) {
	var doc catalogDoc
	if err := yaml.Unmarshal(catalogFile, &doc); err != nil {
		return nil, fmt.Errorf("parse achievement catalog: %w", err)
	}
	if len(doc.Achievements) == 0 {
		return nil, errors.New("catalog: no achievements defined")
	}
	seen := make(map[string]bool, len(doc.Achievements))
	for _, e := range doc.Achievements {
		if seen[e.ID] {
			return nil, fmt.Errorf("catalog: duplicate achievement id %q", e.ID)
		}
		seen[e.ID] = true
		a := model.Achievement{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Metric:      model.Metric(e.Metric),
			Requirement: e.Requirement,
			Tier:        model.Tier(e.Tier),
			Points:      e.Points,
			Hidden:      e.Hidden,
			CreatedAt:   time.Now(),
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", e.ID, err)
		}
	}
	return doc.Achievements, nil
}

// Seed inserts catalog entries missing from the store and returns how many
// were created. Existing rows keep their progress and unlock state, so
// seeding on every startup is safe.
func Seed(ctx context.Context, repo storage.Repository, now time.Time) (int, error) {
	entries, err := Load()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, e := range entries {
		_, err := repo.GetAchievement(ctx, e.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return created, fmt.Errorf("check achievement %s: %w", e.ID, err)
		}
		if err := repo.CreateAchievement(ctx, storage.Achievement{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Metric:      e.Metric,
			Requirement: e.Requirement,
			Tier:        e.Tier,
			Points:      e.Points,
			Hidden:      e.Hidden,
			CreatedAt:   now,
		}); err != nil {
			return created, fmt.Errorf("seed achievement %s: %w", e.ID, err)
		}
		created++
	}
	return created, nil
}
