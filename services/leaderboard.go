package services

import (
	"log"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"

	"leaderbox-server/models"
	"leaderbox-server/store"
)

// leaderboardSize caps how many rows a snapshot keeps.
const leaderboardSize = 100

// LeaderboardService serves a periodically rebuilt ranking of profiles by
// wins. Reads never touch the store — they hit an atomically swapped
// snapshot maintained by Refresh.
type LeaderboardService struct {
	Store    store.ProfileStore
	snapshot atomic.Value // []models.LeaderboardEntry
}

func NewLeaderboardService(st store.ProfileStore) *LeaderboardService {
	s := &LeaderboardService{Store: st}
	s.snapshot.Store([]models.LeaderboardEntry{})
	return s
}

// Refresh rebuilds the snapshot from the store. Called at boot and from the
// scheduler; safe to call concurrently with reads.
func (s *LeaderboardService) Refresh() error {
	profiles, err := s.Store.List(0)
	if err != nil {
		return err
	}

	sort.Slice(profiles, func(a, b int) bool {
		if profiles[a].Wins != profiles[b].Wins {
			return profiles[a].Wins > profiles[b].Wins
		}
		return profiles[a].Nickname < profiles[b].Nickname
	})
	if len(profiles) > leaderboardSize {
		profiles = profiles[:leaderboardSize]
	}

	entries := make([]models.LeaderboardEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = models.LeaderboardEntry{
			Rank:     i + 1,
			OpenID:   p.OpenID,
			Nickname: p.Nickname,
			Avatar:   p.Avatar,
			Wins:     p.Wins,
			Losses:   p.Losses,
			Level:    p.Level,
		}
	}
	s.snapshot.Store(entries)
	return nil
}

// GetLeaderboard answers GET /leaderboard?limit=N from the snapshot.
func (s *LeaderboardService) GetLeaderboard(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 || limit > leaderboardSize {
		limit = 20
	}

	entries := s.snapshot.Load().([]models.LeaderboardEntry)
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return c.JSON(fiber.Map{"ok": true, "leaderboard": entries})
}

// logRefreshError keeps scheduler call sites terse.
func (s *LeaderboardService) logRefreshError(err error) {
	if err != nil {
		log.Printf("❌ [LEADERBOARD] Snapshot refresh failed: %v", err)
	}
}
