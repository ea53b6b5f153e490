package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

func sessionApp(secret string) *fiber.App {
	app := fiber.New()
	app.Get("/me", SessionAuth(secret), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"open_id": c.Locals("open_id")})
	})
	return app
}

func mintToken(t *testing.T, secret, openID string, exp time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"open_id": openID,
		"exp":     time.Now().Add(exp).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestSessionAuthAcceptsValidToken(t *testing.T) {
	app := sessionApp("secret")

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "secret", "u1", time.Hour))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSessionAuthRejections(t *testing.T) {
	app := sessionApp("secret")

	cases := map[string]string{
		"missing header": "",
		"wrong secret":   "Bearer " + mintToken(t, "other-secret", "u1", time.Hour),
		"expired":        "Bearer " + mintToken(t, "secret", "u1", -time.Hour),
		"garbage":        "Bearer not.a.token",
	}
	for name, header := range cases {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if resp.StatusCode != 401 {
			t.Errorf("%s: status = %d, want 401", name, resp.StatusCode)
		}
	}
}
