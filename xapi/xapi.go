// Package xapi posts to X using OAuth 1.0a user-context credentials. Text
// posts go through the v2 tweets endpoint; image attachments go through the
// v1.1 media upload endpoint first.
package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dghubble/oauth1"
)

const (
	defaultAPIBase    = "https://api.x.com"
	defaultUploadBase = "https://upload.twitter.com"
)

// Client signs every request with the configured user tokens.
type Client struct {
	// APIBase and UploadBase are overridable for tests.
	APIBase      string
	UploadBase   string
	ReplySetting string // "" or "everyone" omits the field

	httpClient *http.Client
}

// New builds a client from the four OAuth 1.0a credentials.
func New(apiKey, apiSecret, accessToken, accessSecret string) *Client {
	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	return &Client{
		APIBase:    defaultAPIBase,
		UploadBase: defaultUploadBase,
		httpClient: config.Client(oauth1.NoContext, token),
	}
}

type tweetRequest struct {
	Text          string      `json:"text"`
	ReplySettings string      `json:"reply_settings,omitempty"`
	Media         *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Publish posts a text-only tweet.
func (c *Client) Publish(ctx context.Context, text string) error {
	return c.createPost(ctx, text, nil)
}

// PublishMedia uploads the image at mediaPath and posts a tweet with it
// attached.
func (c *Client) PublishMedia(ctx context.Context, text, mediaPath string) error {
	mediaID, err := c.uploadMedia(ctx, mediaPath)
	if err != nil {
		return fmt.Errorf("upload media: %w", err)
	}
	return c.createPost(ctx, text, []string{mediaID})
}

func (c *Client) createPost(ctx context.Context, text string, mediaIDs []string) error {
	payload := tweetRequest{Text: text}
	if c.ReplySetting != "" && c.ReplySetting != "everyone" {
		payload.ReplySettings = c.ReplySetting
	}
	if len(mediaIDs) > 0 {
		payload.Media = &tweetMedia{MediaIDs: mediaIDs}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBase+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post tweet: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("post tweet: status %d: %s", resp.StatusCode, detail)
	}

	var out tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode tweet response: %w", err)
	}
	if out.Data.ID == "" {
		return fmt.Errorf("post tweet: response missing id")
	}
	return nil
}

func (c *Client) uploadMedia(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadBase+"/1.1/media/upload.json", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, detail)
	}

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if out.MediaIDString == "" {
		return "", fmt.Errorf("upload response missing media_id_string")
	}
	return out.MediaIDString, nil
}
