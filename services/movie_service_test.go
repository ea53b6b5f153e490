package services

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newMovieApp(t *testing.T, bearer, baseURL string) *fiber.App {
	t.Helper()
	svc := NewMovieService(bearer, http.DefaultClient)
	if baseURL != "" {
		svc.BaseURL = baseURL
	}

	app := fiber.New()
	app.Get("/movies/search", svc.SearchMovies)
	app.Get("/movies/popular", svc.PopularMovies)
	return app
}

func TestSearchRequiresQuery(t *testing.T) {
	app := newMovieApp(t, "bearer", "")

	resp, body := doJSON(t, app, "GET", "/movies/search", "")
	if resp.StatusCode != 400 || body["error"] != "validation_error" {
		t.Fatalf("status %d error %v, want 400 validation_error", resp.StatusCode, body["error"])
	}
}

func TestSearchWithoutCredentials(t *testing.T) {
	app := newMovieApp(t, "", "")

	resp, body := doJSON(t, app, "GET", "/movies/search?q=stalker", "")
	if resp.StatusCode != 500 || body["error"] != "misconfiguration" {
		t.Fatalf("status %d error %v, want 500 misconfiguration", resp.StatusCode, body["error"])
	}
}

func TestSearchPassesThroughCatalog(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"title":"Stalker","vote_average":8.1,"popularity":24.5}]}`))
	}))
	t.Cleanup(srv.Close)

	app := newMovieApp(t, "tmdb-token", srv.URL)
	resp, body := doJSON(t, app, "GET", "/movies/search?q=stalker", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if gotAuth != "Bearer tmdb-token" {
		t.Errorf("upstream Authorization = %q", gotAuth)
	}
	if gotQuery != "stalker" {
		t.Errorf("upstream query = %q, want stalker", gotQuery)
	}
	if results, ok := body["results"].([]interface{}); !ok || len(results) != 1 {
		t.Errorf("results = %v, want passthrough of one movie", body["results"])
	}
}

func TestSearchPropagatesUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(429)
		w.Write([]byte(`{"status_message":"rate limited"}`))
	}))
	t.Cleanup(srv.Close)

	app := newMovieApp(t, "tmdb-token", srv.URL)
	resp, _ := doJSON(t, app, "GET", "/movies/search?q=stalker", "")
	if resp.StatusCode != 429 {
		t.Fatalf("status = %d, want upstream's 429", resp.StatusCode)
	}
}

func TestPopularDefaultsPage(t *testing.T) {
	var gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	t.Cleanup(srv.Close)

	app := newMovieApp(t, "tmdb-token", srv.URL)
	resp, _ := doJSON(t, app, "GET", "/movies/popular", "")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotPage != "1" {
		t.Errorf("page = %q, want default 1", gotPage)
	}
}
