// Command stream-herald is the main entrypoint for the repost bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Refreshes the Twitch user token and resolves the bot's login.
//   - Starts the publish queue, chat listener, and stream monitor.
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkobayashi/stream-herald/chart"
	"github.com/mkobayashi/stream-herald/chat"
	"github.com/mkobayashi/stream-herald/config"
	"github.com/mkobayashi/stream-herald/monitor"
	"github.com/mkobayashi/stream-herald/post"
	"github.com/mkobayashi/stream-herald/server"
	"github.com/mkobayashi/stream-herald/telemetry"
	"github.com/mkobayashi/stream-herald/twitchapi"
	"github.com/mkobayashi/stream-herald/xapi"
	"github.com/mkobayashi/stream-herald/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("stream-herald", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens := &twitchapi.UserTokenSource{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
		RefreshToken: cfg.TwitchRefreshToken,
	}
	helix := &twitchapi.HelixClient{Tokens: tokens, ClientID: cfg.TwitchClientID}

	nick := cfg.TwitchNick
	if nick == "" {
		startupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		nick, err = helix.GetSelfLogin(startupCtx)
		cancel()
		if err != nil {
			slog.Error("failed to resolve bot login", slog.Any("err", err))
			os.Exit(1)
		}
	}
	slog.Info("authenticated", slog.String("login", nick))

	publisher := xapi.New(cfg.XAPIKey, cfg.XAPISecret, cfg.XAccessToken, cfg.XAccessSecret)
	publisher.ReplySetting = cfg.XReplySetting

	decorator := post.Decorator{
		ReplySetting: cfg.XReplySetting,
		Mentions:     cfg.XReplyMentions,
		Hashtag:      cfg.PostHashtag,
	}
	queue := post.NewQueue(publisher, cfg.PostInterval, cfg.PostQueueSize, decorator.Apply)
	queue.Start(ctx)

	var secondary monitor.SecondaryFetcher
	if cfg.YouTubeEnabled() {
		yt, err := youtubeapi.New(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			slog.Error("youtube client init failed", slog.Any("err", err))
			os.Exit(1)
		}
		secondary = yt
	} else {
		slog.Info("youtube polling disabled")
	}

	mon := monitor.New(monitor.Options{
		Login:             cfg.TwitchChannel,
		Primary:           helix,
		Secondary:         secondary,
		ChannelIDs:        cfg.YouTubeChannelIDs,
		Renderer:          chart.Renderer{},
		Sink:              queue,
		Store:             &monitor.Store{Dir: cfg.DataDir},
		PollInterval:      cfg.TwitchPollInterval,
		SampleCap:         cfg.TwitchSampleCap,
		SecondaryInterval: cfg.YouTubePollInterval,
		SecondaryCap:      cfg.YouTubeSampleCap,
		UpcomingInterval:  cfg.UpcomingPollInterval,
		ChartDir:          os.TempDir(),
	})

	listener := &chat.Listener{
		Host:           cfg.IRCHost,
		Port:           cfg.IRCPort,
		UseTLS:         cfg.IRCUseTLS,
		Channel:        cfg.TwitchChannel,
		Nick:           nick,
		TargetUser:     cfg.TargetUser,
		ReconnectDelay: cfg.ReconnectDelay,
		Tokens:         tokens,
		Sink:           queue,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		mon.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		listener.Run(ctx)
	}()
	status := func() map[string]any {
		st := mon.Status()
		st["queue_depth"] = queue.Depth()
		st["channel"] = cfg.TwitchChannel
		return st
	}
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, status); err != nil {
			slog.Error("http server failed", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	wg.Wait()
	// Drain whatever the workers enqueued on their way out before exiting.
	queue.Close()
	slog.Info("shutdown complete")
}
