package repository

import (
	"fmt"
	"sort"
	"strconv"

	"tpm-hub/internal/models"
	"tpm-hub/internal/store"
)

func levelSchema() store.Schema {
	return store.Schema{
		Name: "level_settings",
		Columns: []store.Column{
			{Name: "badge"},
			{Name: "name"},
			{Name: "threshold", Default: "0"},
		},
	}
}

// DefaultLadder is the tier ladder seeded on first use.
func DefaultLadder() []models.LevelTier {
	return []models.LevelTier{
		{Badge: "🌱", Name: "Sprout", Threshold: 0},
		{Badge: "🥉", Name: "Bronze", Threshold: 50},
		{Badge: "🥈", Name: "Silver", Threshold: 200},
		{Badge: "🥇", Name: "Gold", Threshold: 500},
		{Badge: "👑", Name: "Master", Threshold: 1000},
	}
}

// LevelRepository maps the level settings table to the tier ladder.
type LevelRepository struct {
	store store.Store
}

// NewLevelRepository creates a new level repository.
func NewLevelRepository(s store.Store) *LevelRepository {
	return &LevelRepository{store: s}
}

// Ladder returns the tiers sorted ascending by threshold. An empty
// table is seeded with the default ladder so a floor tier always
// exists.
func (r *LevelRepository) Ladder() ([]models.LevelTier, error) {
	t, err := r.store.Load(levelSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load level settings: %w", err)
	}
	if len(t.Rows) == 0 {
		ladder := DefaultLadder()
		if err := r.Save(ladder); err != nil {
			return nil, err
		}
		return ladder, nil
	}

	ladder := make([]models.LevelTier, 0, len(t.Rows))
	for _, row := range t.Rows {
		ladder = append(ladder, models.LevelTier{
			Badge:     row.Get("badge"),
			Name:      row.Get("name"),
			Threshold: store.AsInt(row.Get("threshold")),
		})
	}
	sortLadder(ladder)
	return ladder, nil
}

// Save persists the ladder, re-sorted ascending so the ascending
// threshold invariant holds no matter what order the caller sent.
func (r *LevelRepository) Save(ladder []models.LevelTier) error {
	sorted := append([]models.LevelTier(nil), ladder...)
	sortLadder(sorted)

	schema := levelSchema()
	t := schema.Empty()
	for _, tier := range sorted {
		t.Append(store.Row{
			"badge":     tier.Badge,
			"name":      tier.Name,
			"threshold": strconv.Itoa(tier.Threshold),
		})
	}
	if err := r.store.Save(schema, t); err != nil {
		return fmt.Errorf("failed to save level settings: %w", err)
	}
	return nil
}

func sortLadder(ladder []models.LevelTier) {
	sort.SliceStable(ladder, func(i, j int) bool {
		return ladder[i].Threshold < ladder[j].Threshold
	})
}
