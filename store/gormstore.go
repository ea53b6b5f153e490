package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leaderbox-server/models"
)

// ProfileRecord is the postgres row shape. The deck is serialized into a
// JSONB column — movies are embedded documents, not rows of their own.
type ProfileRecord struct {
	OpenID    string  `gorm:"primaryKey;column:open_id"`
	Nickname  string  `gorm:"index;not null"`
	Avatar    *string
	Wins      int     `gorm:"default:0"`
	Losses    int     `gorm:"default:0"`
	Draws     int     `gorm:"default:0"`
	Level     int     `gorm:"default:1"`
	DeckJSON  string  `gorm:"column:deck;type:jsonb;default:'[]'"`
	CreatedAt int64   `gorm:"not null"` // ms since epoch
	UpdatedAt int64   `gorm:"not null"` // ms since epoch
}

func (ProfileRecord) TableName() string { return "profiles" }

// GormStore is the postgres-backed ProfileStore. Duel writes run inside a
// transaction with row locks so concurrent reports never drop an increment.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore migrates the profiles table and wraps the connection.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&ProfileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate profiles table: %w", err)
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Get(openID string) (*models.Profile, error) {
	var rec ProfileRecord
	err := s.DB.First(&rec, "open_id = ?", openID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toProfile()
}

func (s *GormStore) GetByNickname(nickname string) (*models.Profile, error) {
	want := normalizeNickname(nickname)

	var rec ProfileRecord
	err := s.DB.First(&rec, "LOWER(LTRIM(nickname, '@')) = ?", want).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toProfile()
}

func (s *GormStore) List(limit int) ([]models.Profile, error) {
	q := s.DB.Model(&ProfileRecord{}).Order("open_id")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var recs []ProfileRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]models.Profile, 0, len(recs))
	for _, rec := range recs {
		p, err := rec.toProfile()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *GormStore) Upsert(openID string, patch models.ProfilePatch) (*models.Profile, error) {
	var result *models.Profile
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := nowMillis()

		var rec ProfileRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "open_id = ?", openID).Error

		var p *models.Profile
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			p = newProfile(openID, now)
		case err != nil:
			return err
		default:
			if p, err = rec.toProfile(); err != nil {
				return err
			}
		}

		applyPatch(p, patch, now)

		row, err := recordFromProfile(p)
		if err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "open_id"}},
			UpdateAll: true,
		}).Create(row).Error; err != nil {
			return err
		}

		result = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *GormStore) Delete(openID string) error {
	res := s.DB.Delete(&ProfileRecord{}, "open_id = ?", openID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) RecordDuelResult(winnerID, loserID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		now := nowMillis()

		var winner ProfileRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&winner, "open_id = ?", winnerID).Error; err != nil {
			return notFoundOr(err)
		}
		var loser ProfileRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&loser, "open_id = ?", loserID).Error; err != nil {
			return notFoundOr(err)
		}

		if err := tx.Model(&winner).UpdateColumns(map[string]interface{}{
			"wins":       gorm.Expr("wins + 1"),
			"level":      models.LevelForWins(winner.Wins + 1),
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&loser).UpdateColumns(map[string]interface{}{
			"losses":     gorm.Expr("losses + 1"),
			"updated_at": now,
		}).Error
	})
}

func (s *GormStore) RecordDraw(aID, bID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		now := nowMillis()
		for _, openID := range []string{aID, bID} {
			res := tx.Model(&ProfileRecord{}).Where("open_id = ?", openID).
				UpdateColumns(map[string]interface{}{
					"draws":      gorm.Expr("draws + 1"),
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

func (rec *ProfileRecord) toProfile() (*models.Profile, error) {
	deck := []models.Movie{}
	if rec.DeckJSON != "" {
		if err := json.Unmarshal([]byte(rec.DeckJSON), &deck); err != nil {
			return nil, fmt.Errorf("corrupt deck for %s: %w", rec.OpenID, err)
		}
	}
	return &models.Profile{
		OpenID:    rec.OpenID,
		Nickname:  rec.Nickname,
		Avatar:    rec.Avatar,
		Wins:      rec.Wins,
		Losses:    rec.Losses,
		Draws:     rec.Draws,
		Level:     rec.Level,
		Deck:      deck,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func recordFromProfile(p *models.Profile) (*ProfileRecord, error) {
	deck, err := json.Marshal(p.Deck)
	if err != nil {
		return nil, fmt.Errorf("failed to encode deck for %s: %w", p.OpenID, err)
	}
	return &ProfileRecord{
		OpenID:    p.OpenID,
		Nickname:  p.Nickname,
		Avatar:    p.Avatar,
		Wins:      p.Wins,
		Losses:    p.Losses,
		Draws:     p.Draws,
		Level:     p.Level,
		DeckJSON:  string(deck),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
