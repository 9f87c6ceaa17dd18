// Package chat maintains a Twitch IRC connection and forwards messages from
// one watched author to the publish queue.
package chat

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/mkobayashi/stream-herald/post"
	"github.com/mkobayashi/stream-herald/telemetry"
)

// TokenSource yields a current Twitch user access token.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// Sink receives composed posts for publishing.
type Sink interface {
	EnqueueText(text string)
}

// Listener connects to the Twitch IRC gateway, joins one channel, and
// enqueues a post for every message the target user sends there. It
// reconnects after a fixed delay on any connection failure and stops only
// when its context is cancelled.
type Listener struct {
	Host           string
	Port           int
	UseTLS         bool
	Channel        string // lowercase, no leading '#'
	Nick           string
	TargetUser     string // lowercase
	ReconnectDelay time.Duration
	Tokens         TokenSource
	Sink           Sink
}

// Run drives the connect/listen/reconnect loop until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.connectAndListen(ctx); err != nil {
			slog.Error("chat connection ended", slog.Any("err", err))
		}
		select {
		case <-ctx.Done():
			slog.Info("chat listener stopped")
			return
		case <-time.After(l.ReconnectDelay):
		}
		if telemetry.ChatReconnects != nil {
			telemetry.ChatReconnects.Inc()
		}
		slog.Info("reconnecting to twitch chat")
	}
}

func (l *Listener) connectAndListen(ctx context.Context) error {
	token, err := l.Tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("get access token: %w", err)
	}

	addr := net.JoinHostPort(l.Host, fmt.Sprintf("%d", l.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	var conn net.Conn
	if l.UseTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, nil)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	// Unblock the reader when the context is cancelled.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	for _, line := range []string{
		"PASS oauth:" + token,
		"NICK " + l.Nick,
		"JOIN #" + l.Channel,
	} {
		if _, err := fmt.Fprintf(conn, "%s\r\n", line); err != nil {
			return fmt.Errorf("handshake write: %w", err)
		}
	}
	slog.Info("connected to twitch chat",
		slog.String("channel", l.Channel), slog.String("nick", l.Nick))

	reader := bufio.NewReader(conn)
	for {
		raw, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		l.handleLine(conn, strings.TrimRight(raw, "\r\n"))
	}
}

func (l *Listener) handleLine(conn net.Conn, line string) {
	if telemetry.ChatLines != nil {
		telemetry.ChatLines.Inc()
	}
	// The payload may be absent; the reply echoes whatever followed PING.
	if rest, found := strings.CutPrefix(line, "PING"); found && (rest == "" || rest[0] == ' ') {
		if _, err := fmt.Fprintf(conn, "PONG%s\r\n", rest); err != nil {
			slog.Warn("pong write failed", slog.Any("err", err))
		}
		return
	}

	author, channel, body, ok := parsePrivmsg(stripTags(line))
	if !ok {
		return
	}
	if !strings.EqualFold(channel, l.Channel) || !strings.EqualFold(author, l.TargetUser) {
		return
	}
	msg := post.NormalizeMessage(body)
	if msg == "" {
		return
	}
	if telemetry.ChatMatched != nil {
		telemetry.ChatMatched.Inc()
	}
	slog.Info("matched chat message", slog.String("author", author))
	l.Sink.EnqueueText(post.BuildChatPost(msg))
}
