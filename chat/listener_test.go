package chat

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

type staticTokens struct{ token string }

func (s staticTokens) Get(ctx context.Context) (string, error) { return s.token, nil }

type chanSink struct{ ch chan string }

func (c chanSink) EnqueueText(text string) { c.ch <- text }

// fakeIRC is a minimal in-process IRC server for one connection at a time.
type fakeIRC struct {
	ln net.Listener

	mu    sync.Mutex
	conns []net.Conn
}

func newFakeIRC(t *testing.T) *fakeIRC {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	return &fakeIRC{ln: ln}
}

func (f *fakeIRC) port() int { return f.ln.Addr().(*net.TCPAddr).Port }

// accept waits for the next client, reads the three handshake lines, and
// returns the connection plus the handshake.
func (f *fakeIRC) accept(t *testing.T) (net.Conn, []string) {
	t.Helper()
	conn, err := f.ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()
	t.Cleanup(func() { conn.Close() })

	r := bufio.NewReader(conn)
	var handshake []string
	for i := 0; i < 3; i++ {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("handshake read: %v", err)
		}
		handshake = append(handshake, strings.TrimRight(line, "\r\n"))
	}
	return conn, handshake
}

func newTestListener(f *fakeIRC, sink Sink) *Listener {
	return &Listener{
		Host:           "127.0.0.1",
		Port:           f.port(),
		UseTLS:         false,
		Channel:        "somechan",
		Nick:           "heraldbot",
		TargetUser:     "alice",
		ReconnectDelay: 20 * time.Millisecond,
		Tokens:         staticTokens{token: "tok123"},
		Sink:           chanSinkOrNil(sink),
	}
}

func chanSinkOrNil(s Sink) Sink {
	if s == nil {
		return chanSink{ch: make(chan string, 16)}
	}
	return s
}

func TestListenerHandshakeAndMessage(t *testing.T) {
	f := newFakeIRC(t)
	sink := chanSink{ch: make(chan string, 16)}
	l := newTestListener(f, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	conn, handshake := f.accept(t)
	want := []string{"PASS oauth:tok123", "NICK heraldbot", "JOIN #somechan"}
	for i, w := range want {
		if handshake[i] != w {
			t.Errorf("handshake[%d] = %q, want %q", i, handshake[i], w)
		}
	}

	conn.Write([]byte(":alice!alice@alice.tmi.twitch.tv PRIVMSG #somechan :hi   there\r\n"))
	select {
	case got := <-sink.ch:
		if !strings.Contains(got, "hi there") {
			t.Errorf("enqueued post = %q, want normalized body", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no post enqueued for matching message")
	}
}

func TestListenerFiltersAndPong(t *testing.T) {
	f := newFakeIRC(t)
	sink := chanSink{ch: make(chan string, 16)}
	l := newTestListener(f, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	conn, _ := f.accept(t)
	r := bufio.NewReader(conn)

	// Wrong author, wrong channel, and non-PRIVMSG lines are all ignored.
	conn.Write([]byte(":bob!bob@h PRIVMSG #somechan :from bob\r\n"))
	conn.Write([]byte(":alice!alice@h PRIVMSG #otherchan :wrong room\r\n"))
	conn.Write([]byte(":tmi.twitch.tv 001 heraldbot :Welcome, GLHF!\r\n"))

	// PING must be answered with the payload echoed back.
	conn.Write([]byte("PING :tmi.twitch.tv\r\n"))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	pong, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if got := strings.TrimRight(pong, "\r\n"); got != "PONG :tmi.twitch.tv" {
		t.Errorf("pong = %q", got)
	}

	// A bare PING with no payload still gets a reply.
	conn.Write([]byte("PING\r\n"))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	pong, err = r.ReadString('\n')
	if err != nil {
		t.Fatalf("read bare pong: %v", err)
	}
	if got := strings.TrimRight(pong, "\r\n"); got != "PONG" {
		t.Errorf("bare pong = %q", got)
	}

	// Case-insensitive match still goes through, tags stripped.
	conn.Write([]byte("@color=#FF0000;mod=0 :Alice!alice@h PRIVMSG #SomeChan :cased\r\n"))
	select {
	case got := <-sink.ch:
		if !strings.Contains(got, "cased") {
			t.Errorf("enqueued post = %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("case-insensitive match not enqueued")
	}
	if len(sink.ch) != 0 {
		t.Errorf("filtered lines produced %d extra posts", len(sink.ch))
	}
}

func TestListenerReconnects(t *testing.T) {
	f := newFakeIRC(t)
	sink := chanSink{ch: make(chan string, 16)}
	l := newTestListener(f, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	conn, _ := f.accept(t)
	conn.Close()

	// A second connection with a fresh handshake must arrive after the delay.
	_, handshake := f.accept(t)
	if handshake[0] != "PASS oauth:tok123" {
		t.Errorf("reconnect handshake = %v", handshake)
	}
}

func TestListenerStopsOnCancel(t *testing.T) {
	f := newFakeIRC(t)
	l := newTestListener(f, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(stopped)
	}()

	f.accept(t)
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop on context cancel")
	}
}
