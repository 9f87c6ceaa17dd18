package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mkobayashi/stream-herald/telemetry"
)

const defaultTokenURL = "https://id.twitch.tv/oauth2/token"

// refreshMargin is how long before recorded expiry a cached token stops being
// handed out.
const refreshMargin = 60 * time.Second

// UserTokenSource exchanges a long-lived refresh token for user access tokens
// and caches the result. Twitch may rotate the refresh token on each grant;
// the rotated value is kept in memory and logged so the operator can update
// the stored credential.
type UserTokenSource struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string // defaults to the Twitch token endpoint
	HTTPClient   *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// Get returns a cached token with at least a one-minute margin left, or
// performs a single refresh. Concurrent callers serialize on the mutex, so an
// in-flight refresh is shared rather than duplicated.
func (ts *UserTokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.token != "" && time.Until(ts.expiresAt) > refreshMargin {
		return ts.token, nil
	}
	if err := ts.refreshLocked(ctx); err != nil {
		return "", err
	}
	return ts.token, nil
}

func (ts *UserTokenSource) refreshLocked(ctx context.Context) error {
	if ts.ClientID == "" || ts.ClientSecret == "" || ts.RefreshToken == "" {
		return errors.New("missing client id/secret/refresh token for twitch user token")
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", ts.RefreshToken)
	form.Set("client_id", ts.ClientID)
	form.Set("client_secret", ts.ClientSecret)
	endpoint := ts.TokenURL
	if endpoint == "" {
		endpoint = defaultTokenURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if telemetry.TokenRefreshes != nil {
		telemetry.TokenRefreshes.Inc()
	}
	hc := ts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitch token refresh failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if body.AccessToken == "" {
		return errors.New("empty access_token in twitch refresh response")
	}
	if body.RefreshToken != "" && body.RefreshToken != ts.RefreshToken {
		ts.RefreshToken = body.RefreshToken
		slog.Warn("twitch refresh token rotated; persist the new value in the environment")
	}
	expiresIn := body.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	ts.token = body.AccessToken
	ts.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return nil
}
