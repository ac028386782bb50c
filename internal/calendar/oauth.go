package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"booking-service/internal/config"
	"booking-service/internal/models"
	"booking-service/pkg/response"
)

type oauthEndpoints struct {
	authorizeURL string
	tokenURL     string
	scope        string
	client       config.OAuthClient
}

func googleOAuth(c config.OAuthClient) oauthEndpoints {
	return oauthEndpoints{
		authorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
		tokenURL:     "https://oauth2.googleapis.com/token",
		scope:        "https://www.googleapis.com/auth/calendar https://www.googleapis.com/auth/userinfo.email",
		client:       c,
	}
}

func microsoftOAuth(c config.OAuthClient) oauthEndpoints {
	return oauthEndpoints{
		authorizeURL: "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		tokenURL:     "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		scope:        "offline_access User.Read Calendars.ReadWrite",
		client:       c,
	}
}

type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// AuthorizeURL builds the platform consent URL carrying the opaque state.
func (r *Registry) AuthorizeURL(platform models.CalendarPlatform, state string) (string, error) {
	const op = "calendar.Registry.AuthorizeURL"

	ep, ok := r.oauth[platform]
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrUnsupportedPlatform)
	}

	q := url.Values{}
	q.Set("client_id", ep.client.ClientID)
	q.Set("redirect_uri", ep.client.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", ep.scope)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)

	return ep.authorizeURL + "?" + q.Encode(), nil
}

// ExchangeCode swaps an authorization code for tokens.
func (r *Registry) ExchangeCode(ctx context.Context, platform models.CalendarPlatform, code string) (*Token, error) {
	const op = "calendar.Registry.ExchangeCode"

	ep, ok := r.oauth[platform]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnsupportedPlatform)
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", ep.client.ClientID)
	form.Set("client_secret", ep.client.ClientSecret)
	form.Set("redirect_uri", ep.client.RedirectURL)

	token, err := r.postTokenForm(ctx, ep.tokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// EnsureFresh refreshes the connection's access token when it is within a
// minute of expiry. It reports whether the tokens changed so the caller can
// persist them. A failed refresh surfaces as ErrNeedsReauth: calendar calls
// must never proceed on a stale token.
func (r *Registry) EnsureFresh(ctx context.Context, conn *models.CalendarConnection) (bool, error) {
	const op = "calendar.Registry.EnsureFresh"

	if conn.Platform == models.PlatformApple {
		// app-specific password, nothing to refresh
		return false, nil
	}

	if time.Until(conn.TokenExpiresAt) > time.Minute {
		return false, nil
	}

	ep, ok := r.oauth[conn.Platform]
	if !ok {
		return false, fmt.Errorf("%s: %w", op, ErrUnsupportedPlatform)
	}

	if conn.RefreshToken == "" {
		return false, fmt.Errorf("%s: %w", op, response.ErrNeedsReauth)
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", conn.RefreshToken)
	form.Set("client_id", ep.client.ClientID)
	form.Set("client_secret", ep.client.ClientSecret)

	token, err := r.postTokenForm(ctx, ep.tokenURL, form)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, response.ErrNeedsReauth)
	}

	conn.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}
	conn.TokenExpiresAt = token.ExpiresAt

	return true, nil
}

func (r *Registry) postTokenForm(ctx context.Context, tokenURL string, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned empty access token")
	}

	return &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
