package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenCreatesParentDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "deeper", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("parent directory not created: %v", err)
	}
}

func TestResetCreatesTable(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	// Verify the table exists by querying it
	_, err := db.conn.ExecContext(ctx, "SELECT 1 FROM keyword_popularity LIMIT 1")
	if err != nil {
		t.Errorf("keyword_popularity table not created: %v", err)
	}
}

func TestResetWipesExistingCounts(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.Increment(ctx, 14, "meme"); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	_, err := db.Get(ctx, 14, "meme")
	if err != ErrNotFound {
		t.Errorf("Get after Reset should return ErrNotFound, got: %v", err)
	}
}

func TestResetIsRepeatable(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.Reset(ctx); err != nil {
		t.Fatalf("second Reset failed: %v", err)
	}
	if err := db.Reset(ctx); err != nil {
		t.Fatalf("third Reset failed: %v", err)
	}
}

func TestIncrementCreatesThenBumps(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.Increment(ctx, 14, "meme"); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	row, err := db.Get(ctx, 14, "meme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Count != 1 {
		t.Errorf("count after first mention = %d, want 1", row.Count)
	}

	if err := db.Increment(ctx, 14, "meme"); err != nil {
		t.Fatalf("Increment (second) failed: %v", err)
	}

	row, err = db.Get(ctx, 14, "meme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.Count != 2 {
		t.Errorf("count after second mention = %d, want 2", row.Count)
	}
}

func TestIncrementKeepsKeysIndependent(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	// Same keyword in two hours, two keywords in one hour
	for _, key := range []struct {
		hour    int
		keyword string
	}{
		{14, "meme"},
		{14, "meme"},
		{14, "ai"},
		{9, "meme"},
	} {
		if err := db.Increment(ctx, key.hour, key.keyword); err != nil {
			t.Fatalf("Increment(%d, %q) failed: %v", key.hour, key.keyword, err)
		}
	}

	tests := []struct {
		hour    int
		keyword string
		want    int64
	}{
		{14, "meme", 2},
		{14, "ai", 1},
		{9, "meme", 1},
	}
	for _, tt := range tests {
		row, err := db.Get(ctx, tt.hour, tt.keyword)
		if err != nil {
			t.Fatalf("Get(%d, %q) failed: %v", tt.hour, tt.keyword, err)
		}
		if row.Count != tt.want {
			t.Errorf("count for (%d, %q) = %d, want %d", tt.hour, tt.keyword, row.Count, tt.want)
		}
	}
}

func TestIncrementSetsParseableLastUpdated(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.Increment(ctx, 14, "meme"); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	row, err := db.Get(ctx, 14, "meme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	first := row.LastUpdated
	if _, err := time.Parse(timeLayout, first); err != nil {
		t.Errorf("last_updated %q does not parse with %q: %v", first, timeLayout, err)
	}

	if err := db.Increment(ctx, 14, "meme"); err != nil {
		t.Fatalf("Increment (second) failed: %v", err)
	}

	row, _ = db.Get(ctx, 14, "meme")
	// The layout sorts lexically, so the string comparison is valid
	if row.LastUpdated < first {
		t.Errorf("last_updated went backwards: %q then %q", first, row.LastUpdated)
	}
}

func TestGetNotFound(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	_, err := db.Get(ctx, 3, "unseen")
	if err != ErrNotFound {
		t.Errorf("Get for missing pair should return ErrNotFound, got: %v", err)
	}
}

func TestTopKeywords(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seed := []struct {
		hour    int
		keyword string
		times   int
	}{
		{14, "meme", 3},
		{9, "ai", 5},
		{23, "crypto", 1},
		{7, "golang", 3},
	}
	for _, s := range seed {
		for i := 0; i < s.times; i++ {
			if err := db.Increment(ctx, s.hour, s.keyword); err != nil {
				t.Fatalf("Increment failed: %v", err)
			}
		}
	}

	top, err := db.TopKeywords(ctx, 3)
	if err != nil {
		t.Fatalf("TopKeywords failed: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("got %d rows, want 3", len(top))
	}

	if top[0].Keyword != "ai" || top[0].Count != 5 {
		t.Errorf("top[0] = %q (%d), want ai (5)", top[0].Keyword, top[0].Count)
	}
	// Equal counts order alphabetically
	if top[1].Keyword != "golang" {
		t.Errorf("top[1] = %q, want golang", top[1].Keyword)
	}
	if top[2].Keyword != "meme" {
		t.Errorf("top[2] = %q, want meme", top[2].Keyword)
	}
}

func TestPeakHours(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seed := []struct {
		hour    int
		keyword string
		times   int
	}{
		{9, "meme", 1},
		{14, "meme", 3},
		{23, "meme", 2},
		{2, "ai", 2},
	}
	for _, s := range seed {
		for i := 0; i < s.times; i++ {
			if err := db.Increment(ctx, s.hour, s.keyword); err != nil {
				t.Fatalf("Increment failed: %v", err)
			}
		}
	}

	peaks, err := db.PeakHours(ctx)
	if err != nil {
		t.Fatalf("PeakHours failed: %v", err)
	}
	if len(peaks) != 2 {
		t.Fatalf("got %d rows, want 2", len(peaks))
	}

	// Ordered by keyword
	if peaks[0].Keyword != "ai" || peaks[0].Hour != 2 || peaks[0].Count != 2 {
		t.Errorf("peaks[0] = %+v, want ai at hour 2 with count 2", peaks[0])
	}
	if peaks[1].Keyword != "meme" || peaks[1].Hour != 14 || peaks[1].Count != 3 {
		t.Errorf("peaks[1] = %+v, want meme at hour 14 with count 3", peaks[1])
	}
}

func TestTopKeywordsEmpty(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	top, err := db.TopKeywords(ctx, 10)
	if err != nil {
		t.Fatalf("TopKeywords failed: %v", err)
	}
	if len(top) != 0 {
		t.Errorf("got %d rows, want 0", len(top))
	}
}

// Helper functions

func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	return db
}
