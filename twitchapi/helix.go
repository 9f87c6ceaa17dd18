// Package twitchapi contains the Twitch user token lifecycle and minimal Helix
// helpers for login resolution and live-stream lookup.
package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StreamInfo is the normalized shape of one live Helix stream entry.
type StreamInfo struct {
	ID          string
	StartedAt   time.Time
	ViewerCount int
	Title       string
}

// HelixClient provides the two Helix calls the service needs.
type HelixClient struct {
	Tokens     *UserTokenSource
	ClientID   string
	BaseURL    string // defaults to https://api.twitch.tv/helix
	HTTPClient *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return "https://api.twitch.tv/helix"
}

func (hc *HelixClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	tok, err := hc.Tokens.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+path, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("helix %s failed: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetSelfLogin resolves the login name of the user the token belongs to.
func (hc *HelixClient) GetSelfLogin(ctx context.Context) (string, error) {
	var body struct {
		Data []struct {
			Login string `json:"login"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/users", nil, &body); err != nil {
		return "", err
	}
	if len(body.Data) == 0 || body.Data[0].Login == "" {
		return "", fmt.Errorf("no user in helix response")
	}
	return body.Data[0].Login, nil
}

// GetStream returns the live stream for a login, or nil when offline.
// Malformed fields degrade instead of failing: a bad started_at falls back to
// now, a bad viewer count to zero.
func (hc *HelixClient) GetStream(ctx context.Context, login string) (*StreamInfo, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	var body struct {
		Data []struct {
			ID          string `json:"id"`
			ViewerCount int    `json:"viewer_count"`
			StartedAt   string `json:"started_at"`
			Title       string `json:"title"`
		} `json:"data"`
	}
	if err := hc.get(ctx, "/streams", map[string]string{"user_login": login}, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, nil
	}
	d := body.Data[0]
	if d.ID == "" {
		return nil, fmt.Errorf("stream entry missing id")
	}
	started, err := time.Parse(time.RFC3339, d.StartedAt)
	if err != nil {
		started = time.Now()
	}
	viewers := d.ViewerCount
	if viewers < 0 {
		viewers = 0
	}
	return &StreamInfo{ID: d.ID, StartedAt: started, ViewerCount: viewers, Title: d.Title}, nil
}
