// store holds the profile persistence contract and its two backends: a flat
// JSON file for local runs and postgres for deployed instances.
package store

import (
	"errors"
	"strings"
	"time"

	"leaderbox-server/models"
)

// ErrNotFound is returned for any lookup, delete or duel write that names an
// unknown open_id.
var ErrNotFound = errors.New("profile not found")

// ProfileStore is the durable key-value contract for profiles.
//
// Upsert creates with defaults when the open_id is absent and otherwise
// merges only the fields the patch explicitly provides, always refreshing
// updated_at. RecordDuelResult and RecordDraw must apply their counter
// increments atomically — concurrent duel reports must never lose updates.
type ProfileStore interface {
	Get(openID string) (*models.Profile, error)
	GetByNickname(nickname string) (*models.Profile, error)
	List(limit int) ([]models.Profile, error)
	Upsert(openID string, patch models.ProfilePatch) (*models.Profile, error)
	Delete(openID string) error
	RecordDuelResult(winnerID, loserID string) error
	RecordDraw(aID, bID string) error
}

// newProfile builds the default record for a first-time open_id.
func newProfile(openID string, now int64) *models.Profile {
	return &models.Profile{
		OpenID:    openID,
		Nickname:  "@" + strings.TrimPrefix(openID, "@"),
		Wins:      0,
		Losses:    0,
		Draws:     0,
		Level:     1,
		Deck:      []models.Movie{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// applyPatch merges the provided fields into p. A patched win count always
// recomputes the stored level; an explicit level only sticks when wins are
// untouched (level is derived from wins, see DESIGN.md).
func applyPatch(p *models.Profile, patch models.ProfilePatch, now int64) {
	if patch.Nickname != nil {
		p.Nickname = *patch.Nickname
	}
	if patch.Avatar != nil {
		p.Avatar = patch.Avatar
	}
	if patch.Losses != nil {
		p.Losses = *patch.Losses
	}
	if patch.Draws != nil {
		p.Draws = *patch.Draws
	}
	if patch.Level != nil {
		p.Level = *patch.Level
	}
	if patch.Wins != nil {
		p.Wins = *patch.Wins
		p.Level = models.LevelForWins(p.Wins)
	}
	if patch.Deck != nil {
		deck := *patch.Deck
		if deck == nil {
			deck = []models.Movie{}
		}
		p.Deck = deck
	}
	p.UpdatedAt = now
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// normalizeNickname makes nickname lookups insensitive to the display "@".
func normalizeNickname(nickname string) string {
	return strings.ToLower(strings.TrimPrefix(nickname, "@"))
}
