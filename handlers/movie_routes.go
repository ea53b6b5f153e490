// handlers/movie_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"leaderbox-server/services"
)

func SetupMovieRoutes(app *fiber.App, movieService *services.MovieService) {
	app.Get("/movies/search", movieService.SearchMovies)
	app.Get("/movies/popular", movieService.PopularMovies)
}
