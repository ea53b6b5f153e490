// handlers/duel_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"leaderbox-server/services"
)

func SetupDuelRoutes(app *fiber.App, duelService *services.DuelService, leaderboardService *services.LeaderboardService) {
	// Server-adjudicated duels — the canonical path.
	app.Post("/duels", duelService.RunDuel)

	// Legacy client-reported outcome, kept for old clients.
	app.Post("/duels/result", duelService.ReportResult)

	app.Get("/leaderboard", leaderboardService.GetLeaderboard)
}
