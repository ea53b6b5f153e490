package models

// DuelRequest asks the server to adjudicate a duel between two decks.
type DuelRequest struct {
	Challenger string `json:"challenger"`
	Opponent   string `json:"opponent"`
}

// DuelResultRequest is the legacy client-reported outcome. The server trusts
// the caller here; server-side adjudication lives on POST /duels.
type DuelResultRequest struct {
	Winner string `json:"winner"`
	Loser  string `json:"loser"`
}

// LeaderboardEntry is one row of the periodically rebuilt ranking snapshot.
type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	OpenID   string  `json:"open_id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Level    int     `json:"level"`
}
