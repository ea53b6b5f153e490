package services

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"

	"leaderbox-server/models"
	"leaderbox-server/store"
)

func newAuthApp(t *testing.T, provider Provider) (*fiber.App, store.ProfileStore) {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	svc := NewAuthService(st, map[string]Provider{"tiktok": provider}, "test-secret", http.DefaultClient)
	app := fiber.New()
	app.Post("/auth/:provider/exchange", svc.Exchange)
	return app, st
}

func fakeTikTok(t *testing.T, tokenStatus int, tokenBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token/", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("token form parse: %v", err)
		}
		if r.Form.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		if r.Form.Get("code_verifier") == "" {
			t.Error("code_verifier missing from token request")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		w.Write([]byte(tokenBody))
	})
	mux.HandleFunc("/user/info/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"user":{"display_name":"Film Buff","avatar_url":"https://cdn.example/a.png"}}}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func tiktokProvider(srv *httptest.Server) Provider {
	return Provider{
		Kind:         "tiktok",
		TokenURL:     srv.URL + "/oauth/token/",
		UserInfoURL:  srv.URL + "/user/info/",
		ClientKey:    "key",
		ClientSecret: "secret",
	}
}

func TestExchangeFirstLoginRedirectsToCompletion(t *testing.T) {
	srv := fakeTikTok(t, 200, `{"access_token":"at","open_id":"tiktok-123"}`)
	app, _ := newAuthApp(t, tiktokProvider(srv))

	resp, body := doJSON(t, app, "POST", "/auth/tiktok/exchange",
		`{"code":"abc","code_verifier":"ver","redirect_uri":"https://app/callback"}`)
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200: %v", resp.StatusCode, body)
	}

	if body["redirectUrl"] != "/complete-profile" {
		t.Errorf("redirectUrl = %v, want /complete-profile", body["redirectUrl"])
	}
	identity := body["identity"].(map[string]interface{})
	if identity["open_id"] != "tiktok-123" {
		t.Errorf("open_id = %v, want tiktok-123", identity["open_id"])
	}
	if identity["nickname"] != "Film Buff" {
		t.Errorf("nickname = %v, want Film Buff", identity["nickname"])
	}
	if body["session_token"] == "" || body["session_token"] == nil {
		t.Error("session_token missing")
	}
	if _, ok := body["tokens"].(map[string]interface{}); !ok {
		t.Error("raw token payload missing")
	}
}

func TestExchangeKnownProfileRedirectsHome(t *testing.T) {
	srv := fakeTikTok(t, 200, `{"access_token":"at","open_id":"tiktok-123"}`)
	app, st := newAuthApp(t, tiktokProvider(srv))
	if _, err := st.Upsert("tiktok-123", models.ProfilePatch{}); err != nil {
		t.Fatal(err)
	}

	_, body := doJSON(t, app, "POST", "/auth/tiktok/exchange",
		`{"code":"abc","code_verifier":"ver"}`)
	if body["redirectUrl"] != "/" {
		t.Errorf("redirectUrl = %v, want /", body["redirectUrl"])
	}
}

func TestExchangeRequiresCode(t *testing.T) {
	srv := fakeTikTok(t, 200, `{}`)
	app, _ := newAuthApp(t, tiktokProvider(srv))

	resp, body := doJSON(t, app, "POST", "/auth/tiktok/exchange", `{"code_verifier":"ver"}`)
	if resp.StatusCode != 400 || body["error"] != "validation_error" {
		t.Fatalf("status %d error %v, want 400 validation_error", resp.StatusCode, body["error"])
	}
}

func TestExchangePropagatesProviderStatus(t *testing.T) {
	srv := fakeTikTok(t, 401, `{"error":"invalid_grant"}`)
	app, _ := newAuthApp(t, tiktokProvider(srv))

	resp, body := doJSON(t, app, "POST", "/auth/tiktok/exchange",
		`{"code":"bad","code_verifier":"ver"}`)
	if resp.StatusCode != 401 {
		t.Fatalf("status = %d, want provider's 401", resp.StatusCode)
	}
	if body["error"] != "upstream_error" {
		t.Errorf("error = %v, want upstream_error", body["error"])
	}
}

func TestExchangeNonJSONUpstreamIsBadGateway(t *testing.T) {
	srv := fakeTikTok(t, 200, `<html>maintenance</html>`)
	app, _ := newAuthApp(t, tiktokProvider(srv))

	resp, body := doJSON(t, app, "POST", "/auth/tiktok/exchange",
		`{"code":"abc","code_verifier":"ver"}`)
	if resp.StatusCode != 502 || body["error"] != "upstream_error" {
		t.Fatalf("status %d error %v, want 502 upstream_error", resp.StatusCode, body["error"])
	}
}

func TestExchangeUnknownProvider(t *testing.T) {
	srv := fakeTikTok(t, 200, `{}`)
	app, _ := newAuthApp(t, tiktokProvider(srv))

	resp, body := doJSON(t, app, "POST", "/auth/mastodon/exchange", `{"code":"abc"}`)
	if resp.StatusCode != 404 || body["error"] != "not_found" {
		t.Fatalf("status %d error %v, want 404 not_found", resp.StatusCode, body["error"])
	}
}

func TestExchangeMissingCredentialsIsMisconfiguration(t *testing.T) {
	srv := fakeTikTok(t, 200, `{}`)
	provider := tiktokProvider(srv)
	provider.ClientSecret = ""
	app, _ := newAuthApp(t, provider)

	resp, body := doJSON(t, app, "POST", "/auth/tiktok/exchange", `{"code":"abc"}`)
	if resp.StatusCode != 500 || body["error"] != "misconfiguration" {
		t.Fatalf("status %d error %v, want 500 misconfiguration", resp.StatusCode, body["error"])
	}
}
