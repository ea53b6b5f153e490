package services

import (
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"leaderbox-server/models"
	"leaderbox-server/store"
)

func TestLeaderboardRanksByWins(t *testing.T) {
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	for openID, wins := range map[string]int{"a": 3, "b": 9, "c": 5} {
		w := wins
		if _, err := st.Upsert(openID, models.ProfilePatch{Wins: &w}); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewLeaderboardService(st)
	if err := svc.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	app := fiber.New()
	app.Get("/leaderboard", svc.GetLeaderboard)

	resp, body := doJSON(t, app, "GET", "/leaderboard", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	entries := body["leaderboard"].([]interface{})
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	wantOrder := []string{"b", "c", "a"}
	for i, want := range wantOrder {
		entry := entries[i].(map[string]interface{})
		if entry["open_id"] != want {
			t.Errorf("rank %d = %v, want %s", i+1, entry["open_id"], want)
		}
		if int(entry["rank"].(float64)) != i+1 {
			t.Errorf("rank field = %v, want %d", entry["rank"], i+1)
		}
	}

	// The snapshot is read-only until the next refresh.
	w := 100
	if _, err := st.Upsert("a", models.ProfilePatch{Wins: &w}); err != nil {
		t.Fatal(err)
	}
	_, body = doJSON(t, app, "GET", "/leaderboard", "")
	first := body["leaderboard"].([]interface{})[0].(map[string]interface{})
	if first["open_id"] != "b" {
		t.Errorf("stale snapshot expected before refresh, got leader %v", first["open_id"])
	}

	if err := svc.Refresh(); err != nil {
		t.Fatal(err)
	}
	_, body = doJSON(t, app, "GET", "/leaderboard?limit=1", "")
	entries = body["leaderboard"].([]interface{})
	if len(entries) != 1 || entries[0].(map[string]interface{})["open_id"] != "a" {
		t.Errorf("after refresh want [a], got %v", entries)
	}
}
