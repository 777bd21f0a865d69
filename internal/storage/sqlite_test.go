package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vovakirdan/netpong/internal/game"
	"github.com/vovakirdan/netpong/internal/multiplayer"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreInMemory(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer store.Close()

	if _, err := store.SaveScore(game.ModeVsAI, "p", 3); err != nil {
		t.Fatalf("SaveScore() failed: %v", err)
	}
	high, err := store.HighScore(game.ModeVsAI)
	if err != nil || high != 3 {
		t.Errorf("HighScore() = %d, %v; want 3", high, err)
	}
}

func TestStoreScores(t *testing.T) {
	store := openTestStore(t)

	for _, s := range []int{3, 1, 5} {
		if _, err := store.SaveScore(game.ModeVsAI, "alice", s); err != nil {
			t.Fatalf("SaveScore() failed: %v", err)
		}
	}
	if _, err := store.SaveScore(game.Mode1v1Local, "bob", 4); err != nil {
		t.Fatalf("SaveScore() failed: %v", err)
	}

	scores, err := store.TopScores(game.ModeVsAI, 10)
	if err != nil {
		t.Fatalf("TopScores() failed: %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("Expected 3 scores, got %d", len(scores))
	}
	for i, want := range []int{5, 3, 1} {
		if scores[i].Score != want {
			t.Errorf("scores[%d] = %d, want %d", i, scores[i].Score, want)
		}
	}
	if scores[0].Player != "alice" || scores[0].Mode != game.ModeVsAI {
		t.Errorf("unexpected entry %+v", scores[0])
	}

	limited, err := store.TopScores(game.ModeVsAI, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("TopScores(limit 2) = %d entries, %v", len(limited), err)
	}

	high, err := store.HighScore(game.Mode2v2Local)
	if err != nil || high != 0 {
		t.Errorf("HighScore() on empty mode = %d, %v", high, err)
	}
}

func TestStoreSaveMatchResult(t *testing.T) {
	store := openTestStore(t)
	ended := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := store.SaveMatchResult(multiplayer.MatchResultData{
		MatchID:     "m-1",
		Mode:        game.Mode1v1Online,
		Player1Name: "alice",
		Player2Name: "bob",
		Score1:      5,
		Score2:      2,
		WinnerName:  "alice",
		EndReason:   "completed",
		Duration:    93500 * time.Millisecond,
		EndedAt:     ended,
	})
	if err != nil {
		t.Fatalf("SaveMatchResult() failed: %v", err)
	}

	got, err := store.OnlineMatchByID("m-1")
	if err != nil {
		t.Fatalf("OnlineMatchByID() failed: %v", err)
	}
	if got == nil {
		t.Fatal("match not found")
	}
	if got.Mode != game.Mode1v1Online || got.WinnerName != "alice" || got.Score1 != 5 || got.Score2 != 2 {
		t.Errorf("unexpected match %+v", got)
	}
	if got.Duration != 93500*time.Millisecond {
		t.Errorf("Duration = %v", got.Duration)
	}
	if !got.CreatedAt.Equal(ended) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, ended)
	}

	missing, err := store.OnlineMatchByID("nope")
	if err != nil || missing != nil {
		t.Errorf("OnlineMatchByID(unknown) = %v, %v", missing, err)
	}
}

func TestStoreDuplicateMatchID(t *testing.T) {
	store := openTestStore(t)
	r := OnlineMatchResult{MatchID: "dup", Mode: game.Mode1v1Online, Player1Name: "a", Player2Name: "b", EndReason: "cancelled"}
	if _, err := store.SaveOnlineMatch(r); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if _, err := store.SaveOnlineMatch(r); err == nil {
		t.Error("expected unique constraint violation")
	}
}

func TestStoreRecentAndHistory(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	results := []OnlineMatchResult{
		{MatchID: "1", Mode: game.Mode1v1Online, Player1Name: "alice", Player2Name: "bob", EndReason: "completed", WinnerName: "alice"},
		{MatchID: "2", Mode: game.Mode2v2Online, Player1Name: "carol", Player2Name: "dave", EndReason: "forfeit", WinnerName: "dave"},
		{MatchID: "3", Mode: game.Mode1v1Online, Player1Name: "bob", Player2Name: "carol", EndReason: "cancelled"},
	}
	for i, r := range results {
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := store.SaveOnlineMatch(r); err != nil {
			t.Fatalf("SaveOnlineMatch() failed: %v", err)
		}
	}

	recent, err := store.RecentOnlineMatches(2)
	if err != nil {
		t.Fatalf("RecentOnlineMatches() failed: %v", err)
	}
	if len(recent) != 2 || recent[0].MatchID != "3" || recent[1].MatchID != "2" {
		t.Errorf("unexpected recent order: %+v", recent)
	}
	if recent[0].WinnerName != "" {
		t.Errorf("cancelled match has winner %q", recent[0].WinnerName)
	}

	history, err := store.PlayerMatchHistory("bob", 0)
	if err != nil {
		t.Fatalf("PlayerMatchHistory() failed: %v", err)
	}
	if len(history) != 2 || history[0].MatchID != "3" || history[1].MatchID != "1" {
		t.Errorf("unexpected history: %+v", history)
	}

	stats, err := store.GetMatchStats()
	if err != nil {
		t.Fatalf("GetMatchStats() failed: %v", err)
	}
	if stats.Total != 3 || stats.ByReason["forfeit"] != 1 || stats.ByMode["1v1_online"] != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
