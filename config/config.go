// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup; required
// credentials are checked by Load and reported together with the variable name.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Reply settings accepted by the X API.
var validReplySettings = map[string]bool{
	"everyone":       true,
	"mentionedUsers": true,
	"following":      true,
}

type Config struct {
	// Twitch chat
	TwitchChannel  string
	TwitchNick     string // optional; resolved via Helix when empty
	TargetUser     string
	IRCHost        string
	IRCPort        int
	IRCUseTLS      bool
	ReconnectDelay time.Duration

	// Twitch credentials
	TwitchClientID     string
	TwitchClientSecret string
	TwitchRefreshToken string

	// X
	XAPIKey          string
	XAPISecret       string
	XAccessToken     string
	XAccessSecret    string
	XReplySetting    string
	XReplyMentions   []string
	PostInterval     time.Duration
	PostQueueSize    int
	PostHashtag      string

	// Stream monitoring
	TwitchPollInterval   time.Duration
	TwitchSampleCap      int
	YouTubeAPIKey        string
	YouTubeChannelIDs    []string
	YouTubePollInterval  time.Duration
	YouTubeSampleCap     int
	UpcomingPollInterval time.Duration

	// Storage / HTTP
	DataDir  string
	HTTPAddr string
}

// Load reads environment variables, applies defaults and validates required credentials.
func Load() (*Config, error) {
	cfg := &Config{}

	var err error
	if cfg.TwitchChannel, err = require("TWITCH_CHANNEL"); err != nil {
		return nil, err
	}
	cfg.TwitchChannel = NormalizeChannel(cfg.TwitchChannel)
	if cfg.TargetUser, err = require("TARGET_USER"); err != nil {
		return nil, err
	}
	cfg.TargetUser = strings.ToLower(strings.TrimSpace(cfg.TargetUser))
	cfg.TwitchNick = strings.TrimSpace(os.Getenv("TWITCH_NICK"))

	cfg.IRCHost = os.Getenv("TWITCH_IRC_HOST")
	if cfg.IRCHost == "" {
		cfg.IRCHost = "irc.chat.twitch.tv"
	}
	cfg.IRCUseTLS = os.Getenv("TWITCH_IRC_TLS") != "0"
	if cfg.IRCPort, err = positiveInt("TWITCH_IRC_PORT", 6697); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = positiveSeconds("TWITCH_RECONNECT_DELAY_SECONDS", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.TwitchClientID, err = require("TWITCH_CLIENT_ID"); err != nil {
		return nil, err
	}
	if cfg.TwitchClientSecret, err = require("TWITCH_CLIENT_SECRET"); err != nil {
		return nil, err
	}
	if cfg.TwitchRefreshToken, err = require("TWITCH_REFRESH_TOKEN"); err != nil {
		return nil, err
	}

	if cfg.XAPIKey, err = require("X_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.XAPISecret, err = require("X_API_SECRET"); err != nil {
		return nil, err
	}
	if cfg.XAccessToken, err = require("X_ACCESS_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.XAccessSecret, err = require("X_ACCESS_SECRET"); err != nil {
		return nil, err
	}
	cfg.XReplySetting = os.Getenv("X_REPLY_SETTING")
	if cfg.XReplySetting == "" {
		cfg.XReplySetting = "everyone"
	}
	if !validReplySettings[cfg.XReplySetting] {
		return nil, fmt.Errorf("X_REPLY_SETTING must be one of everyone, following, mentionedUsers")
	}
	cfg.XReplyMentions = parseMentions(os.Getenv("X_REPLY_MENTION_USERS"))

	if cfg.PostInterval, err = positiveSeconds("X_POST_INTERVAL_SECONDS", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PostQueueSize, err = positiveInt("X_QUEUE_SIZE", 200); err != nil {
		return nil, err
	}
	cfg.PostHashtag = os.Getenv("POST_HASHTAG")
	if cfg.PostHashtag == "" {
		cfg.PostHashtag = "#ヒカキン"
	}

	if cfg.TwitchPollInterval, err = positiveSeconds("TWITCH_STREAM_POLL_INTERVAL_SECONDS", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.TwitchSampleCap, err = positiveInt("TWITCH_STREAM_SAMPLE_MAX_POINTS", 5000); err != nil {
		return nil, err
	}
	cfg.YouTubeAPIKey = strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY"))
	cfg.YouTubeChannelIDs = parseCSV(os.Getenv("YOUTUBE_CHANNEL_IDS"))
	if cfg.YouTubePollInterval, err = positiveSeconds("YOUTUBE_POLL_INTERVAL_SECONDS", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.YouTubeSampleCap, err = positiveInt("YOUTUBE_SAMPLE_MAX_POINTS", 5000); err != nil {
		return nil, err
	}
	if cfg.UpcomingPollInterval, err = positiveSeconds("YOUTUBE_UPCOMING_POLL_INTERVAL_SECONDS", 300*time.Second); err != nil {
		return nil, err
	}

	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// YouTubeEnabled reports whether secondary-platform polling is configured.
func (c *Config) YouTubeEnabled() bool {
	return c.YouTubeAPIKey != "" && len(c.YouTubeChannelIDs) > 0
}

// NormalizeChannel lowercases a Twitch channel name and strips a leading '#'.
func NormalizeChannel(channel string) string {
	channel = strings.TrimSpace(channel)
	channel = strings.TrimPrefix(channel, "#")
	return strings.ToLower(channel)
}

func require(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("missing required env %s", name)
	}
	return v, nil
}

func positiveInt(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func positiveSeconds(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number of seconds: %w", name, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("%s must be a positive number of seconds", name)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func parseCSV(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseMentions splits a comma-separated account list, stripping any '@' prefix
// and dropping duplicates while preserving order.
func parseMentions(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimPrefix(strings.TrimSpace(item), "@")
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
