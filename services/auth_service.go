package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"leaderbox-server/store"
)

// Provider describes one identity provider's token exchange. Kind selects
// how the normalized identity is extracted from the provider responses.
type Provider struct {
	Kind         string // "tiktok" or "auth0"
	TokenURL     string
	UserInfoURL  string
	ClientKey    string
	ClientSecret string
}

// Identity is the normalized result of a successful exchange.
type Identity struct {
	OpenID   string  `json:"open_id"`
	Nickname string  `json:"nickname"`
	Avatar   *string `json:"avatar"`
}

// AuthService exchanges an authorization code (plus PKCE verifier) for tokens
// against one of the configured providers, normalizes the identity and mints
// a short-lived session JWT. Tokens are single-use for identity lookup — they
// are returned for audit but never persisted.
type AuthService struct {
	Store         store.ProfileStore
	Providers     map[string]Provider
	SessionSecret string
	Client        *http.Client
}

func NewAuthService(st store.ProfileStore, providers map[string]Provider, sessionSecret string, client *http.Client) *AuthService {
	return &AuthService{
		Store:         st,
		Providers:     providers,
		SessionSecret: sessionSecret,
		Client:        client,
	}
}

type exchangeRequest struct {
	Code         string `json:"code"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

// Exchange answers POST /auth/:provider/exchange. Provider errors are logged
// with their status and body, then surfaced to the caller without leaking
// credentials. No retries anywhere.
func (s *AuthService) Exchange(c *fiber.Ctx) error {
	providerName := c.Params("provider")
	provider, ok := s.Providers[providerName]
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "not_found", "details": "unknown provider"})
	}

	var req exchangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "invalid JSON body"})
	}
	if strings.TrimSpace(req.Code) == "" {
		return c.Status(400).JSON(fiber.Map{"error": "validation_error", "details": "code is required"})
	}
	if provider.ClientKey == "" || provider.ClientSecret == "" {
		return c.Status(500).JSON(fiber.Map{"error": "misconfiguration", "details": providerName + " credentials not configured"})
	}

	tokens, status, err := s.exchangeCode(provider, req)
	if err != nil {
		log.Printf("❌ [AUTH] %s token exchange failed (%d): %v", providerName, status, err)
		if status >= 400 && status < 600 {
			return c.Status(status).JSON(fiber.Map{"error": "upstream_error"})
		}
		return c.Status(502).JSON(fiber.Map{"error": "upstream_error"})
	}

	identity, err := s.resolveIdentity(provider, tokens)
	if err != nil {
		log.Printf("❌ [AUTH] %s identity lookup failed: %v", providerName, err)
		return c.Status(502).JSON(fiber.Map{"error": "upstream_error"})
	}

	// First login goes to profile completion; returning users go home.
	redirectURL := "/"
	if _, err := s.Store.Get(identity.OpenID); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("❌ [AUTH] Profile lookup failed for %s: %v", identity.OpenID, err)
			return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
		}
		redirectURL = "/complete-profile"
	}

	sessionToken, err := s.mintSessionToken(identity.OpenID)
	if err != nil {
		log.Printf("❌ [AUTH] Failed to sign session token: %v", err)
		return c.Status(500).JSON(fiber.Map{"error": "internal_error"})
	}

	log.Printf("🔑 [AUTH] %s exchange ok for %s → %s", providerName, identity.OpenID, redirectURL)
	return c.JSON(fiber.Map{
		"ok":            true,
		"identity":      identity,
		"tokens":        tokens,
		"redirectUrl":   redirectURL,
		"session_token": sessionToken,
	})
}

// exchangeCode posts the authorization code to the provider's token endpoint.
// Returns the decoded token payload, or the upstream status with an error.
func (s *AuthService) exchangeCode(provider Provider, req exchangeRequest) (map[string]interface{}, int, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", req.Code)
	if req.RedirectURI != "" {
		form.Set("redirect_uri", req.RedirectURI)
	}
	if req.CodeVerifier != "" {
		form.Set("code_verifier", req.CodeVerifier)
	}
	switch provider.Kind {
	case "tiktok":
		form.Set("client_key", provider.ClientKey)
		form.Set("client_secret", provider.ClientSecret)
	default:
		form.Set("client_id", provider.ClientKey)
		form.Set("client_secret", provider.ClientSecret)
	}

	httpReq, err := http.NewRequest("POST", provider.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("token endpoint returned %d — %.200s", resp.StatusCode, string(body))
	}

	var tokens map[string]interface{}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("token endpoint sent non-JSON body: %w", err)
	}
	if errVal, ok := tokens["error"].(string); ok && errVal != "" {
		return nil, resp.StatusCode, fmt.Errorf("token endpoint error: %s", errVal)
	}
	return tokens, resp.StatusCode, nil
}

// resolveIdentity normalizes {open_id, nickname, avatar} out of the provider
// responses. TikTok carries open_id in the token payload and user info is
// best-effort enrichment; Auth0 identities only exist in /userinfo.
func (s *AuthService) resolveIdentity(provider Provider, tokens map[string]interface{}) (*Identity, error) {
	accessToken, _ := tokens["access_token"].(string)

	if provider.Kind == "tiktok" {
		openID, _ := tokens["open_id"].(string)
		if openID == "" {
			return nil, errors.New("token payload missing open_id")
		}
		identity := &Identity{OpenID: openID, Nickname: openID}
		info, err := s.fetchUserInfo(provider, accessToken)
		if err != nil {
			log.Printf("⚠️ [AUTH] TikTok user info fetch failed, continuing with open_id only: %v", err)
			return identity, nil
		}
		if data, ok := info["data"].(map[string]interface{}); ok {
			if user, ok := data["user"].(map[string]interface{}); ok {
				info = user
			}
		}
		if name, _ := info["display_name"].(string); name != "" {
			identity.Nickname = name
		}
		if avatar, _ := info["avatar_url"].(string); avatar != "" {
			identity.Avatar = &avatar
		}
		return identity, nil
	}

	if accessToken == "" {
		return nil, errors.New("token payload missing access_token")
	}
	info, err := s.fetchUserInfo(provider, accessToken)
	if err != nil {
		return nil, err
	}
	sub, _ := info["sub"].(string)
	if sub == "" {
		return nil, errors.New("userinfo missing sub")
	}
	identity := &Identity{OpenID: sub, Nickname: sub}
	if name, _ := info["nickname"].(string); name != "" {
		identity.Nickname = name
	}
	if picture, _ := info["picture"].(string); picture != "" {
		identity.Avatar = &picture
	}
	return identity, nil
}

func (s *AuthService) fetchUserInfo(provider Provider, accessToken string) (map[string]interface{}, error) {
	req, err := http.NewRequest("GET", provider.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read userinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d — %.200s", resp.StatusCode, string(body))
	}

	var info map[string]interface{}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("userinfo sent non-JSON body: %w", err)
	}
	return info, nil
}

func (s *AuthService) mintSessionToken(openID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"open_id": openID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(s.SessionSecret))
}

// DefaultProviders wires the two supported providers from their env creds.
// auth0Domain is the tenant domain, e.g. "leaderbox.eu.auth0.com".
func DefaultProviders(tiktokKey, tiktokSecret, auth0Domain, auth0ClientID, auth0Secret string) map[string]Provider {
	providers := map[string]Provider{
		"tiktok": {
			Kind:         "tiktok",
			TokenURL:     "https://open.tiktokapis.com/v2/oauth/token/",
			UserInfoURL:  "https://open.tiktokapis.com/v2/user/info/?fields=open_id,display_name,avatar_url",
			ClientKey:    tiktokKey,
			ClientSecret: tiktokSecret,
		},
	}
	if auth0Domain != "" {
		providers["letterboxd"] = Provider{
			Kind:         "auth0",
			TokenURL:     fmt.Sprintf("https://%s/oauth/token", auth0Domain),
			UserInfoURL:  fmt.Sprintf("https://%s/userinfo", auth0Domain),
			ClientKey:    auth0ClientID,
			ClientSecret: auth0Secret,
		}
	}
	return providers
}
