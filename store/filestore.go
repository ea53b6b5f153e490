package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"leaderbox-server/models"
)

// FileStore keeps every profile in one JSON file. The whole map is held in
// memory and flushed with a write-temp-then-rename so a crash mid-write never
// leaves a truncated file behind. The mutex serializes writes to the same
// open_id, which is all the concurrency the contract asks for.
type FileStore struct {
	path string

	mu       sync.RWMutex
	profiles map[string]*models.Profile
}

// NewFileStore loads (or creates) the profile file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		profiles: make(map[string]*models.Profile),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create profile dir: %w", err)
		}
		log.Printf("📁 [STORE] No profile file at %s, starting empty", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var profiles []*models.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("profile file %s is corrupt: %w", path, err)
	}
	for _, p := range profiles {
		s.profiles[p.OpenID] = p
	}
	log.Printf("📁 [STORE] Loaded %d profile(s) from %s", len(profiles), path)
	return s, nil
}

func (s *FileStore) Get(openID string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[openID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(p), nil
}

func (s *FileStore) GetByNickname(nickname string) (*models.Profile, error) {
	want := normalizeNickname(nickname)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if normalizeNickname(p.Nickname) == want {
			return clone(p), nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) List(limit int) ([]models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, *clone(p))
	}
	// Stable order so repeated lists don't shuffle under the client.
	sort.Slice(out, func(a, b int) bool { return out[a].OpenID < out[b].OpenID })

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *FileStore) Upsert(openID string, patch models.ProfilePatch) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowMillis()
	p, ok := s.profiles[openID]
	if !ok {
		p = newProfile(openID, now)
		s.profiles[openID] = p
	}
	applyPatch(p, patch, now)

	if err := s.persist(); err != nil {
		return nil, err
	}
	return clone(p), nil
}

func (s *FileStore) Delete(openID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[openID]; !ok {
		return ErrNotFound
	}
	delete(s.profiles, openID)
	return s.persist()
}

func (s *FileStore) RecordDuelResult(winnerID, loserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	winner, ok := s.profiles[winnerID]
	if !ok {
		return ErrNotFound
	}
	loser, ok := s.profiles[loserID]
	if !ok {
		return ErrNotFound
	}

	now := nowMillis()
	winner.Wins++
	winner.Level = models.LevelForWins(winner.Wins)
	winner.UpdatedAt = now
	loser.Losses++
	loser.UpdatedAt = now
	return s.persist()
}

func (s *FileStore) RecordDraw(aID, bID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.profiles[aID]
	if !ok {
		return ErrNotFound
	}
	b, ok := s.profiles[bID]
	if !ok {
		return ErrNotFound
	}

	now := nowMillis()
	a.Draws++
	a.UpdatedAt = now
	b.Draws++
	b.UpdatedAt = now
	return s.persist()
}

// persist writes the full profile set to a temp file and renames it over the
// real one. Callers must hold the write lock.
func (s *FileStore) persist() error {
	profiles := make([]*models.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(a, b int) bool { return profiles[a].OpenID < profiles[b].OpenID })

	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

func clone(p *models.Profile) *models.Profile {
	cp := *p
	// Non-nil deck so empty decks render as [] rather than null.
	cp.Deck = make([]models.Movie, len(p.Deck))
	copy(cp.Deck, p.Deck)
	if p.Avatar != nil {
		avatar := *p.Avatar
		cp.Avatar = &avatar
	}
	return &cp
}
