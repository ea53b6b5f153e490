package services

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"leaderbox-server/models"
	"leaderbox-server/scoring"
	"leaderbox-server/store"
)

// DuelService adjudicates duels server-side and keeps the legacy
// client-reported result endpoint alive for old clients.
type DuelService struct {
	Store store.ProfileStore
}

func NewDuelService(st store.ProfileStore) *DuelService {
	return &DuelService{Store: st}
}

// DuelSide is one participant's share of an adjudicated duel.
type DuelSide struct {
	OpenID       string            `json:"open_id"`
	Nickname     string            `json:"nickname"`
	Stats        scoring.DeckStats `json:"stats"`
	AttackPoints []int             `json:"attack_points"`
}

// DuelOutcome is the server-computed result. Outcome is "challenger",
// "opponent" or "draw"; Winner is empty on a draw.
type DuelOutcome struct {
	DuelID     string   `json:"duel_id"`
	Challenger DuelSide `json:"challenger"`
	Opponent   DuelSide `json:"opponent"`
	Outcome    string   `json:"outcome"`
	Winner     string   `json:"winner,omitempty"`
}

// RunDuel answers POST /duels. Both decks are loaded and scored here — the
// client never supplies the outcome and never learns the opponent's live
// score ahead of the verdict.
func (s *DuelService) RunDuel(c *fiber.Ctx) error {
	var req models.DuelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "invalid JSON body"})
	}
	if strings.TrimSpace(req.Challenger) == "" || strings.TrimSpace(req.Opponent) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "challenger and opponent are required"})
	}
	if req.Challenger == req.Opponent {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "a profile cannot duel itself"})
	}

	challenger, err := s.Store.Get(req.Challenger)
	if err != nil {
		return duelLookupError(c, err)
	}
	opponent, err := s.Store.Get(req.Opponent)
	if err != nil {
		return duelLookupError(c, err)
	}

	outcome := DuelOutcome{
		DuelID:     uuid.NewString(),
		Challenger: sideFor(challenger),
		Opponent:   sideFor(opponent),
	}

	switch {
	case outcome.Challenger.Stats.Total > outcome.Opponent.Stats.Total:
		outcome.Outcome = "challenger"
		outcome.Winner = challenger.OpenID
		err = s.Store.RecordDuelResult(challenger.OpenID, opponent.OpenID)
	case outcome.Opponent.Stats.Total > outcome.Challenger.Stats.Total:
		outcome.Outcome = "opponent"
		outcome.Winner = opponent.OpenID
		err = s.Store.RecordDuelResult(opponent.OpenID, challenger.OpenID)
	default:
		outcome.Outcome = "draw"
		err = s.Store.RecordDraw(challenger.OpenID, opponent.OpenID)
	}
	if err != nil {
		log.Printf("❌ [DUEL] Failed to persist outcome %s: %v", outcome.DuelID, err)
		return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
	}

	log.Printf("⚔️ [DUEL] %s: %s (%d) vs %s (%d) → %s",
		outcome.DuelID, challenger.Nickname, outcome.Challenger.Stats.Total,
		opponent.Nickname, outcome.Opponent.Stats.Total, outcome.Outcome)
	return c.JSON(fiber.Map{"ok": true, "duel": outcome})
}

// ReportResult answers POST /duels/result, the legacy client-reported path.
// The caller is trusted to have computed the outcome; the only guarantee kept
// is that the increments land atomically.
func (s *DuelService) ReportResult(c *fiber.Ctx) error {
	var req models.DuelResultRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "invalid JSON body"})
	}
	if req.Winner == "" || req.Loser == "" {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "winner and loser are required"})
	}
	if req.Winner == req.Loser {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "winner and loser must differ"})
	}

	if err := s.Store.RecordDuelResult(req.Winner, req.Loser); err != nil {
		return duelLookupError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func sideFor(p *models.Profile) DuelSide {
	stats := scoring.ComputeDeckStats(p.Deck)
	return DuelSide{
		OpenID:       p.OpenID,
		Nickname:     p.Nickname,
		Stats:        stats,
		AttackPoints: scoring.AllocateAttackPoints(p.Deck, stats.Total),
	}
}

func duelLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "not_found"})
	}
	log.Printf("❌ [DUEL] Store error: %v", err)
	return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
}
