package services

import (
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

const tmdbBaseURL = "https://api.themoviedb.org/3"

// MovieService is a plain passthrough to the TMDB catalog for deck building.
// No caching, no rate limiting — every request goes upstream as-is.
type MovieService struct {
	Bearer  string
	BaseURL string
	Client  *http.Client
}

func NewMovieService(bearer string, client *http.Client) *MovieService {
	return &MovieService{Bearer: bearer, BaseURL: tmdbBaseURL, Client: client}
}

// SearchMovies answers GET /movies/search?q=TEXT.
func (s *MovieService) SearchMovies(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "q is required"})
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("language", "en-US")
	params.Set("include_adult", "false")
	return s.proxy(c, "/search/movie?"+params.Encode())
}

// PopularMovies answers GET /movies/popular for the deck-building browse view.
func (s *MovieService) PopularMovies(c *fiber.Ctx) error {
	page := c.Query("page", "1")

	params := url.Values{}
	params.Set("language", "en-US")
	params.Set("page", page)
	return s.proxy(c, "/movie/popular?"+params.Encode())
}

// proxy forwards one GET to TMDB and copies status and body straight back.
func (s *MovieService) proxy(c *fiber.Ctx, path string) error {
	if s.Bearer == "" {
		return c.Status(500).JSON(fiber.Map{"error": "misconfiguration", "details": "movie catalog credentials not configured"})
	}

	req, err := http.NewRequestWithContext(c.Context(), "GET", s.BaseURL+path, nil)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
	}
	req.Header.Set("Authorization", "Bearer "+s.Bearer)
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		log.Printf("❌ [MOVIES] TMDB request failed: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "upstream_error"})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("❌ [MOVIES] Failed to read TMDB response: %v", err)
		return c.Status(502).JSON(fiber.Map{"error": "upstream_error"})
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ [MOVIES] TMDB returned %d: %.200s", resp.StatusCode, string(body))
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.StatusCode).Send(body)
}
