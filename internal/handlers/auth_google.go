package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/utils"
)

// GoogleOAuthHandler signs users in with Google. New accounts get the client
// capability, the same as password registration.
type GoogleOAuthHandler struct {
	DB              *gorm.DB
	JWTSecret       string
	Expires         int
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string
	Log             zerolog.Logger
}

func (h *GoogleOAuthHandler) oauthCfg() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.GoogleClientID,
		ClientSecret: h.GoogleSecret,
		RedirectURL:  h.GoogleRedirect,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func randomState(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (h *GoogleOAuthHandler) GoogleStart(c *fiber.Ctx) error {
	st := randomState(32)

	c.Cookie(&fiber.Cookie{
		Name:     "oauth_state",
		Value:    st,
		Path:     "/",
		HTTPOnly: true,
		SameSite: "Lax",
		MaxAge:   10 * 60,
	})

	return c.Redirect(h.oauthCfg().AuthCodeURL(st, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

type googleUserInfo struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

func (h *GoogleOAuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		return apperr.Validation("missing code or state")
	}
	if st := c.Cookies("oauth_state"); st == "" || st != state {
		return apperr.Validation("invalid oauth state")
	}

	tok, err := h.oauthCfg().Exchange(c.Context(), code)
	if err != nil {
		return apperr.Validation("failed to exchange authorization code")
	}

	client := h.oauthCfg().Client(c.Context(), tok)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return apperr.Internal("failed to fetch userinfo", err)
	}
	defer resp.Body.Close()

	var gu googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return apperr.Internal("failed to decode userinfo", err)
	}

	email := strings.ToLower(strings.TrimSpace(gu.Email))
	if email == "" {
		return apperr.Validation("email not provided by Google")
	}

	var user models.User
	err = h.DB.Where("email = ?", email).First(&user).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return apperr.Internal("failed to look up account", err)
	}

	if err == gorm.ErrRecordNotFound {
		// Password is required by schema but never used for OAuth accounts.
		hashed, _ := utils.HashPassword(randomState(24))
		user = models.User{
			FirstName: strings.TrimSpace(gu.GivenName),
			LastName:  strings.TrimSpace(gu.FamilyName),
			Email:     email,
			Password:  hashed,
			Roles:     models.RoleSet{models.RoleClient},
			Active:    true,
		}
		if err := h.DB.Create(&user).Error; err != nil {
			return apperr.Internal("failed to create account", err)
		}
		h.Log.Info().Str("user", user.ID.String()).Msg("user registered via google")
	}

	if !user.Active {
		return c.Redirect(h.FrontendBaseURL+"/login?err="+url.QueryEscape("account is deactivated"), http.StatusTemporaryRedirect)
	}

	jwtToken, err := utils.SignJWT(h.JWTSecret, user.ID.String(), user.Roles.Strings(), h.Expires)
	if err != nil {
		return apperr.Internal("failed to sign token", err)
	}

	c.Cookie(&fiber.Cookie{Name: "oauth_state", Value: "", Path: "/", MaxAge: -1, HTTPOnly: true, SameSite: "Lax"})

	return c.Redirect(h.FrontendBaseURL+"/auth/callback#token="+url.QueryEscape(jwtToken), http.StatusTemporaryRedirect)
}
