package models

// Movie is a single deck slot. Movies are embedded in the owning profile,
// they are not standalone entities — the TMDB id is kept only so the client
// can re-fetch posters.
type Movie struct {
	TMDBID      int64    `json:"tmdb_id,omitempty"`
	Title       string   `json:"title"`
	PosterPath  string   `json:"poster_path,omitempty"`
	VoteAverage float64  `json:"vote_average"` // 0–10
	Popularity  float64  `json:"popularity"`   // unbounded, non-negative
	Genres      []string `json:"genres,omitempty"`
}

// MaxDeckSize is the number of deck slots a profile can fill.
const MaxDeckSize = 4

// Profile is one registered user, keyed by the identity provider's open_id.
// Nicknames are stored in display form (leading "@").
type Profile struct {
	OpenID    string  `json:"open_id"`
	Nickname  string  `json:"nickname"`
	Avatar    *string `json:"avatar"`
	Wins      int     `json:"wins"`
	Losses    int     `json:"losses"`
	Draws     int     `json:"draws"`
	Level     int     `json:"level"`
	Deck      []Movie `json:"deck"`
	CreatedAt int64   `json:"created_at"` // ms since epoch
	UpdatedAt int64   `json:"updated_at"` // ms since epoch
}

// ProfilePatch carries only the fields a caller explicitly provided.
// Nil means "leave as is".
type ProfilePatch struct {
	Nickname *string
	Avatar   *string
	Wins     *int
	Losses   *int
	Draws    *int
	Level    *int
	Deck     *[]Movie
}

// levelThresholds maps index → wins required to hold level index+1.
var levelThresholds = []int{0, 5, 15, 30, 50, 75, 100}

// LevelForWins recomputes the display level from a win count against the
// fixed threshold table. Level is derived, never independently authoritative.
func LevelForWins(wins int) int {
	level := 1
	for i, min := range levelThresholds {
		if wins >= min {
			level = i + 1
		}
	}
	return level
}
