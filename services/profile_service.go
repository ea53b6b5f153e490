package services

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"leaderbox-server/models"
	"leaderbox-server/store"
	"leaderbox-server/utils"
)

// ProfileService serves the profile CRUD surface on top of a ProfileStore.
// Uploader may be nil when no R2 credentials are configured — avatar uploads
// then answer 500 misconfiguration instead of crashing at boot.
type ProfileService struct {
	Store    store.ProfileStore
	Uploader *utils.R2Uploader
}

func NewProfileService(st store.ProfileStore, uploader *utils.R2Uploader) *ProfileService {
	return &ProfileService{Store: st, Uploader: uploader}
}

type upsertProfileRequest struct {
	OpenID   string          `json:"open_id"`
	Nickname *string         `json:"nickname"`
	Avatar   *string         `json:"avatar"`
	Wins     *int            `json:"wins"`
	Losses   *int            `json:"losses"`
	Draws    *int            `json:"draws"`
	Level    *int            `json:"level"`
	Deck     *[]models.Movie `json:"deck"`
}

// GetProfiles answers GET /profiles for all three query shapes:
// ?open_id=ID, ?nickname=NAME and ?limit=N.
func (s *ProfileService) GetProfiles(c *fiber.Ctx) error {
	if openID := c.Query("open_id"); openID != "" {
		p, err := s.Store.Get(openID)
		if err != nil {
			return profileLookupError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "profile": p})
	}

	if nickname := c.Query("nickname"); nickname != "" {
		p, err := s.Store.GetByNickname(nickname)
		if err != nil {
			return profileLookupError(c, err)
		}
		return c.JSON(fiber.Map{"ok": true, "profile": p})
	}

	limitStr := c.Query("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	profiles, err := s.Store.List(limit)
	if err != nil {
		log.Printf("❌ [PROFILE] List failed: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"ok": true, "profiles": profiles})
}

// CreateOrUpdateProfile answers POST /profiles. Creation is idempotent: a
// POST with an existing open_id merges instead of duplicating.
func (s *ProfileService) CreateOrUpdateProfile(c *fiber.Ctx) error {
	var req upsertProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "invalid JSON body"})
	}
	if strings.TrimSpace(req.OpenID) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "open_id is required"})
	}

	patch := models.ProfilePatch{
		Avatar: req.Avatar,
		Wins:   req.Wins,
		Losses: req.Losses,
		Draws:  req.Draws,
		Level:  req.Level,
	}

	if req.Nickname != nil {
		nickname, err := sanitizeNickname(*req.Nickname)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": err.Error()})
		}
		patch.Nickname = &nickname
	}

	if req.Deck != nil {
		deck := *req.Deck
		if len(deck) > models.MaxDeckSize {
			return c.Status(400).JSON(fiber.Map{
				"error":   "validation_error",
				"details": fmt.Sprintf("deck holds at most %d movies", models.MaxDeckSize),
			})
		}
		patch.Deck = &deck
	}

	p, err := s.Store.Upsert(req.OpenID, patch)
	if err != nil {
		log.Printf("❌ [PROFILE] Upsert failed for %s: %v", req.OpenID, err)
		return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
	}
	return c.JSON(fiber.Map{"ok": true, "profile": p})
}

// DeleteProfile answers DELETE /profiles?open_id=ID. Hard delete, no
// tombstone.
func (s *ProfileService) DeleteProfile(c *fiber.Ctx) error {
	openID := c.Query("open_id")
	if openID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "open_id is required"})
	}

	if err := s.Store.Delete(openID); err != nil {
		return profileLookupError(c, err)
	}
	log.Printf("🗑️ [PROFILE] Deleted %s", openID)
	return c.JSON(fiber.Map{"ok": true})
}

// UploadAvatar answers POST /profiles/avatar: multipart upload into R2,
// responds with the public CDN URL. The caller attaches the URL to their
// profile with a follow-up POST /profiles.
func (s *ProfileService) UploadAvatar(c *fiber.Ctx) error {
	if s.Uploader == nil {
		return c.Status(500).JSON(fiber.Map{"error": "misconfiguration", "details": "avatar storage not configured"})
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "avatar file is required"})
	}

	key := "avatars/" + uuid.NewString() + filepath.Ext(fileHeader.Filename)
	url, err := s.Uploader.UploadFile(fileHeader, key)
	if err != nil {
		log.Printf("❌ [PROFILE] Avatar upload failed: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "upstream_error"})
	}
	return c.JSON(fiber.Map{"ok": true, "url": url})
}

// Me answers GET /me for a session-authenticated caller.
func (s *ProfileService) Me(c *fiber.Ctx) error {
	openID, _ := c.Locals("open_id").(string)
	if openID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "unauthorized"})
	}

	p, err := s.Store.Get(openID)
	if err != nil {
		return profileLookupError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "profile": p})
}

// sanitizeNickname strips the display "@", validates length and makes sure
// the name still carries usable characters. Returns the display form.
func sanitizeNickname(raw string) (string, error) {
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
	if len(name) < 3 || len(name) > 30 {
		return "", errors.New("nickname must be 3-30 characters")
	}
	if slug.Make(name) == "" {
		return "", errors.New("nickname has no usable characters")
	}
	return "@" + name, nil
}

func profileLookupError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(404).JSON(fiber.Map{"error": "not_found"})
	}
	log.Printf("❌ [PROFILE] Store error: %v", err)
	return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
}
