package repository

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/store"
)

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	return s
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	repo := NewUserRepository(newTestStore(t))

	u := &models.User{ID: "alice", PasswordHash: "hash", Name: "Alice", Role: models.RoleMember, Department: "Engineering"}
	if err := repo.Create(u); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.Create(u); !errors.Is(err, ErrUserExists) {
		t.Errorf("Duplicate create should return ErrUserExists, got %v", err)
	}

	got, err := repo.Get("alice")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Alice" || got.Department != "Engineering" {
		t.Errorf("Unexpected user: %+v", got)
	}

	if _, err := repo.Get("bob"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Missing user should return ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryDeleteByIDAndIndex(t *testing.T) {
	repo := NewUserRepository(newTestStore(t))
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := repo.Create(&models.User{ID: id, Name: id}); err != nil {
			t.Fatalf("Create %s failed: %v", id, err)
		}
	}

	// Delete "b" by id, then rows 0 and 2 of the remaining table
	// (a and d). Index deletes must run descending so the first does
	// not shift the second.
	if err := repo.Delete([]string{"b"}, []int{0, 2}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	users, err := repo.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(users) != 2 || users[0].ID != "c" || users[1].ID != "e" {
		t.Errorf("Expected [c e] to remain, got %+v", users)
	}
}

func TestSuggestionRepositoryCreateAssignsTimestampID(t *testing.T) {
	repo := NewSuggestionRepository(newTestStore(t))
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	first := &models.Suggestion{AuthorID: "alice", Title: "one", Status: models.StatusDraft}
	if err := repo.Create(first, now); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if first.ID != "20260314150926" {
		t.Errorf("Expected timestamp id, got %s", first.ID)
	}

	// Same-second collision bumps to the next free second.
	second := &models.Suggestion{AuthorID: "bob", Title: "two", Status: models.StatusDraft}
	if err := repo.Create(second, now); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if second.ID != "20260314150927" {
		t.Errorf("Expected bumped id, got %s", second.ID)
	}
}

func TestSuggestionRepositoryNormalizesLegacyRows(t *testing.T) {
	dir := t.TempDir()
	// Legacy headers and labels: date for created_on, score for points,
	// tier-style grades and the returned status.
	legacy := "id,author_id,author_name,date,title,body,attachment,status,grade,score,score_total\n" +
		"20240101000000,alice,Alice,2024-01-01,old,body,,returned,gold,20,95\n" +
		"20240102000000,bob,Bob,2024-01-02,older,body,,approved,participation,1,30\n"
	if err := os.WriteFile(filepath.Join(dir, "suggestions.csv"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("Failed to create file store: %v", err)
	}
	repo := NewSuggestionRepository(fs)

	all, err := repo.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(all))
	}
	if all[0].Status != models.StatusRejected {
		t.Errorf("Legacy returned status should read as rejected, got %s", all[0].Status)
	}
	if all[0].Grade != models.GradeS {
		t.Errorf("Legacy gold grade should read as S, got %s", all[0].Grade)
	}
	if all[0].Points != 20 || all[0].CreatedOn != "2024-01-01" {
		t.Errorf("Legacy columns not normalized: %+v", all[0])
	}
	if all[1].Grade != models.GradeC {
		t.Errorf("Legacy participation grade should read as C, got %s", all[1].Grade)
	}
}

func TestSuggestionRepositoryMutate(t *testing.T) {
	repo := NewSuggestionRepository(newTestStore(t))
	s := &models.Suggestion{AuthorID: "alice", Title: "t", Status: models.StatusSubmitted}
	if err := repo.Create(s, time.Now()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err := repo.Mutate(s.ID, func(m *models.Suggestion) error {
		m.Status = models.StatusApproved
		m.Grade = models.GradeA
		m.Points = 10
		m.ScoreTotal = 75
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	got, err := repo.Get(s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusApproved || got.Grade != models.GradeA || got.Points != 10 || got.ScoreTotal != 75 {
		t.Errorf("Mutation not persisted: %+v", got)
	}

	// A failing mutation must leave the record untouched.
	boom := errors.New("boom")
	err = repo.Mutate(s.ID, func(m *models.Suggestion) error {
		m.Status = models.StatusRejected
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected mutation error, got %v", err)
	}
	got, _ = repo.Get(s.ID)
	if got.Status != models.StatusApproved {
		t.Errorf("Failed mutation should not persist, status = %s", got.Status)
	}

	if err := repo.Mutate("missing", func(*models.Suggestion) error { return nil }); !errors.Is(err, ErrSuggestionNotFound) {
		t.Errorf("Missing id should return ErrSuggestionNotFound, got %v", err)
	}
}

func TestNormalizeGrade(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"gold":          "S",
		"🥇 gold":        "S",
		"silver":        "A",
		"bronze":        "B",
		"participation": "C",
		"S":             "S",
		"B":             "B",
		"weird":         "weird",
	}
	for in, want := range cases {
		if got := NormalizeGrade(in); got != want {
			t.Errorf("NormalizeGrade(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLevelRepositorySeedsDefaultLadder(t *testing.T) {
	fs := newTestStore(t)
	repo := NewLevelRepository(fs)

	ladder, err := repo.Ladder()
	if err != nil {
		t.Fatalf("Ladder failed: %v", err)
	}
	if len(ladder) != 5 {
		t.Fatalf("Expected 5 default tiers, got %d", len(ladder))
	}
	if ladder[0].Threshold != 0 || ladder[0].Name != "Sprout" {
		t.Errorf("Floor tier wrong: %+v", ladder[0])
	}
	if ladder[4].Name != "Master" || ladder[4].Threshold != 1000 {
		t.Errorf("Top tier wrong: %+v", ladder[4])
	}

	// Seeding persisted: a second repository over the same store reads
	// the same ladder without reseeding.
	again, err := NewLevelRepository(fs).Ladder()
	if err != nil {
		t.Fatalf("Second Ladder failed: %v", err)
	}
	if len(again) != 5 {
		t.Errorf("Expected persisted ladder of 5, got %d", len(again))
	}
}

func TestLevelRepositorySaveSortsAscending(t *testing.T) {
	repo := NewLevelRepository(newTestStore(t))
	err := repo.Save([]models.LevelTier{
		{Badge: "👑", Name: "Master", Threshold: 1000},
		{Badge: "🌱", Name: "Sprout", Threshold: 0},
		{Badge: "🥈", Name: "Silver", Threshold: 200},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	ladder, err := repo.Ladder()
	if err != nil {
		t.Fatalf("Ladder failed: %v", err)
	}
	for i := 1; i < len(ladder); i++ {
		if ladder[i].Threshold < ladder[i-1].Threshold {
			t.Fatalf("Ladder not ascending: %+v", ladder)
		}
	}
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	repo := NewSessionRepository(newTestStore(t))
	now := time.Now().UTC().Truncate(time.Second)

	live := &models.Session{JTI: "live", UserID: "alice", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := &models.Session{JTI: "stale", UserID: "alice", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	other := &models.Session{JTI: "other", UserID: "bob", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []*models.Session{live, stale, other} {
		if err := repo.Create(s); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := repo.GetByJTI("live")
	if err != nil {
		t.Fatalf("GetByJTI failed: %v", err)
	}
	if got.UserID != "alice" || !got.ExpiresAt.Equal(live.ExpiresAt) {
		t.Errorf("Unexpected session: %+v", got)
	}

	removed, err := repo.DeleteExpired(now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 expired session removed, got %d", removed)
	}
	if _, err := repo.GetByJTI("stale"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expired session should be gone, got %v", err)
	}

	if err := repo.DeleteForUser("alice"); err != nil {
		t.Fatalf("DeleteForUser failed: %v", err)
	}
	if _, err := repo.GetByJTI("live"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("User sessions should be revoked, got %v", err)
	}
	if _, err := repo.GetByJTI("other"); err != nil {
		t.Errorf("Other user's session should survive: %v", err)
	}
}

func TestAuditRepositoryAppend(t *testing.T) {
	repo := NewAuditRepository(newTestStore(t))
	now := time.Now().UTC().Truncate(time.Second)

	err := repo.Append(&models.AuditEntry{
		CreatedAt: now,
		ActorID:   "administrator",
		Action:    "bulk_delete",
		Resource:  "users",
		Details:   "2 accounts removed",
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := repo.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Action != "bulk_delete" || !entries[0].CreatedAt.Equal(now) {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
}
