package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// wsTestServer upgrades every request and hands the server side of each
// connection to the caller.
type wsTestServer struct {
	srv   *httptest.Server
	conns chan *websocket.Conn
}

func newWSTestServer(t *testing.T) *wsTestServer {
	t.Helper()

	ts := &wsTestServer{conns: make(chan *websocket.Conn, 4)}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ts.conns <- conn
	}))
	t.Cleanup(ts.srv.Close)

	return ts
}

// dial opens a fresh connection and returns its server side.
func (ts *wsTestServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	conn := <-ts.conns
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func hubClient(conn *websocket.Conn, id string, buffer int) *Client {
	return &Client{
		conn:        conn,
		send:        make(chan any, buffer),
		participant: player(id),
	}
}

func TestHubSecondConnectionSupersedesFirst(t *testing.T) {
	ts := newWSTestServer(t)
	hub := newSessionHub()

	first := hubClient(ts.dial(t), "p", 8)
	second := hubClient(ts.dial(t), "p", 8)

	hub.register(first)
	hub.register(second)

	// The superseded connection's send channel is closed, which ends its
	// write pump.
	if _, open := <-first.send; open {
		t.Fatal("superseded connection's send channel still open")
	}

	hub.ToPlayer("p", ErrorMessage{Type: "error", Message: "ping"})
	select {
	case msg := <-second.send:
		if m, ok := msg.(ErrorMessage); !ok || m.Message != "ping" {
			t.Fatalf("current connection received %+v", msg)
		}
	default:
		t.Fatal("current connection received nothing")
	}

	// The stale connection's deferred unregister must not evict the
	// current one or close its channel a second time.
	hub.unregister(first)

	hub.ToPlayer("p", ErrorMessage{Type: "error", Message: "pong"})
	select {
	case <-second.send:
	default:
		t.Fatal("player unreachable after the stale connection unregistered")
	}

	hub.unregister(second)
	if _, open := <-second.send; open {
		t.Fatal("send channel still open after unregister")
	}
}

func TestHubDropsClientWithFullSendBuffer(t *testing.T) {
	ts := newWSTestServer(t)
	hub := newSessionHub()

	c := hubClient(ts.dial(t), "slow", 1)
	hub.register(c)

	hub.ToPlayer("slow", ErrorMessage{Type: "error", Message: "first"})
	hub.ToPlayer("slow", ErrorMessage{Type: "error", Message: "second"}) // buffer full

	if msg := <-c.send; msg.(ErrorMessage).Message != "first" {
		t.Fatalf("buffered message = %+v", msg)
	}
	if _, open := <-c.send; open {
		t.Fatal("send channel still open after overflow drop")
	}

	hub.mu.Lock()
	_, registered := hub.clients["slow"]
	hub.mu.Unlock()
	if registered {
		t.Fatal("client still registered after overflow drop")
	}
}
