// workers/level_audit_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"leaderbox-server/models"
	"leaderbox-server/store"
)

// LevelAuditWorker periodically re-derives every profile's level from its win
// count and repairs drift. Levels are display attributes recomputed from wins;
// a client is free to POST an arbitrary level, so the audit keeps stored
// values honest without blocking the write path.
type LevelAuditWorker struct {
	store    store.ProfileStore
	interval time.Duration
}

func NewLevelAuditWorker(st store.ProfileStore, interval time.Duration) *LevelAuditWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &LevelAuditWorker{store: st, interval: interval}
}

func (w *LevelAuditWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Level Audit Worker (wins → level repair)…")
	go w.run(ctx)
}

func (w *LevelAuditWorker) run(ctx context.Context) {
	// One pass at boot, then on the ticker.
	w.auditOnce()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.auditOnce()
		case <-ctx.Done():
			log.Println("⏹️ Level Audit Worker stopped")
			return
		}
	}
}

func (w *LevelAuditWorker) auditOnce() {
	profiles, err := w.store.List(0)
	if err != nil {
		log.Printf("❌ [LEVEL_AUDIT] List failed: %v", err)
		return
	}

	repaired := 0
	for _, p := range profiles {
		want := models.LevelForWins(p.Wins)
		if p.Level == want {
			continue
		}
		level := want
		if _, err := w.store.Upsert(p.OpenID, models.ProfilePatch{Level: &level}); err != nil {
			log.Printf("⚠️ [LEVEL_AUDIT] Failed to repair %s: %v", p.OpenID, err)
			continue
		}
		repaired++
	}
	if repaired > 0 {
		log.Printf("🛠️ [LEVEL_AUDIT] Repaired level drift on %d profile(s)", repaired)
	}
}
