package workers

import (
	"path/filepath"
	"testing"
	"time"

	"leaderbox-server/models"
	"leaderbox-server/store"
)

func TestAuditRepairsLevelDrift(t *testing.T) {
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	// A client is free to POST any level; the audit pulls it back in line
	// with the win count.
	bogus := 6
	if _, err := st.Upsert("drifter", models.ProfilePatch{Level: &bogus}); err != nil {
		t.Fatal(err)
	}
	wins := 20
	if _, err := st.Upsert("honest", models.ProfilePatch{Wins: &wins}); err != nil {
		t.Fatal(err)
	}

	w := NewLevelAuditWorker(st, time.Minute)
	w.auditOnce()

	drifter, _ := st.Get("drifter")
	if drifter.Level != models.LevelForWins(0) {
		t.Errorf("drifter level = %d, want %d", drifter.Level, models.LevelForWins(0))
	}
	honest, _ := st.Get("honest")
	if honest.Level != models.LevelForWins(20) {
		t.Errorf("honest level = %d, want %d (untouched)", honest.Level, models.LevelForWins(20))
	}
}
