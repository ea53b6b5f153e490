// handlers/auth_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"leaderbox-server/services"
)

func SetupAuthRoutes(app *fiber.App, authService *services.AuthService) {
	app.Post("/auth/:provider/exchange", authService.Exchange)
}
