package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"quickbite-api/apperr"
	"quickbite-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie  = "oauth_state"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// NewGoogleOAuth returns nil when no client id is configured.
func NewGoogleOAuth(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleLogin starts the OAuth2 flow
func (h *Handler) GoogleLogin(c *gin.Context) {
	if h.OAuth == nil {
		h.respondError(c, apperr.NotFound("google sign-in is not configured"))
		return
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		h.respondError(c, apperr.Internal(err, "failed to start google sign-in"))
		return
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusTemporaryRedirect, h.OAuth.AuthCodeURL(state))
}

// GoogleCallback finishes the flow and hands the token to the frontend
func (h *Handler) GoogleCallback(c *gin.Context) {
	if h.OAuth == nil {
		h.respondError(c, apperr.NotFound("google sign-in is not configured"))
		return
	}
	state, err := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	if err != nil || state == "" || state != c.Query("state") {
		h.redirectFailure(c, "invalid_state")
		return
	}
	if c.Query("code") == "" {
		h.redirectFailure(c, "no_user")
		return
	}

	ctx := c.Request.Context()
	profile, err := h.fetchGoogleProfile(ctx, c.Query("code"))
	if err != nil {
		h.Log.Warn("google sign-in failed", zap.Error(err))
		h.redirectFailure(c, "auth_failed")
		return
	}
	user, err := h.Users.FederatedLogin(ctx, profile)
	if err != nil {
		h.Log.Warn("google sign-in failed", zap.Error(err))
		h.redirectFailure(c, "auth_failed")
		return
	}
	token, err := h.Tokens.GenerateToken(user)
	if err != nil {
		h.Log.Error("failed to generate token", zap.Error(err))
		h.redirectFailure(c, "auth_failed")
		return
	}

	summary, _ := json.Marshal(userSummary(user))
	q := url.Values{}
	q.Set("token", token)
	q.Set("user", string(summary))
	c.Redirect(http.StatusFound, h.FrontendURL+"/auth/google/success?"+q.Encode())
}

func (h *Handler) fetchGoogleProfile(ctx context.Context, code string) (services.FederatedProfile, error) {
	tok, err := h.OAuth.Exchange(ctx, code)
	if err != nil {
		return services.FederatedProfile{}, fmt.Errorf("exchange code: %w", err)
	}

	infoURL := h.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return services.FederatedProfile{}, err
	}
	resp, err := h.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return services.FederatedProfile{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return services.FederatedProfile{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return services.FederatedProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return services.FederatedProfile{
		ID:            gu.Sub,
		Email:         gu.Email,
		EmailVerified: gu.EmailVerified,
		Name:          gu.Name,
	}, nil
}

func (h *Handler) redirectFailure(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, h.FrontendURL+"/login?error="+url.QueryEscape(reason))
}
