// handlers/profile_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"leaderbox-server/middleware"
	"leaderbox-server/services"
)

func SetupProfileRoutes(app *fiber.App, profileService *services.ProfileService, sessionSecret string) {
	app.Get("/profiles", profileService.GetProfiles)
	app.Post("/profiles", profileService.CreateOrUpdateProfile)
	app.Delete("/profiles", profileService.DeleteProfile)
	app.Post("/profiles/avatar", profileService.UploadAvatar)

	// Session-gated: identifies the caller by the JWT minted at exchange.
	app.Get("/me", middleware.SessionAuth(sessionSecret), profileService.Me)
}
