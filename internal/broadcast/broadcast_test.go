package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingSink struct {
	mu  sync.Mutex
	got []Announcement
}

func (r *recordingSink) Deliver(_ context.Context, a Announcement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, a)
	return nil
}

func (r *recordingSink) kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, 0, len(r.got))
	for _, a := range r.got {
		out = append(out, a.Kind)
	}
	return out
}

func TestDispatcherDeliversInOrderAndDrainsOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, LogSink{})

	d.Announce(Announcement{Kind: KindContractNew, Message: "new"})
	d.Announce(Announcement{Kind: KindContractCompleted, Message: "done"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	kinds := sink.kinds()
	if len(kinds) != 2 || kinds[0] != KindContractNew || kinds[1] != KindContractCompleted {
		t.Fatalf("delivered kinds = %v", kinds)
	}
	if sink.got[0].At.IsZero() {
		t.Fatal("announcement timestamp should be filled in")
	}
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher()
	for i := 0; i < queueSize+10; i++ {
		d.Announce(Announcement{Kind: KindEventStarted})
	}
	if len(d.queue) != queueSize {
		t.Fatalf("queue length = %d, want %d", len(d.queue), queueSize)
	}
}

func TestHubStreamsAnnouncements(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "alice", nil)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Count() != 1 {
		t.Fatalf("hub clients = %d", hub.Count())
	}

	if err := hub.Deliver(context.Background(), Announcement{Kind: KindSeasonalRotation, Message: "farming is hot"}); err != nil {
		t.Fatalf("Deliver error: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	var a Announcement
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if a.Kind != KindSeasonalRotation || a.Message != "farming is hot" {
		t.Fatalf("unexpected announcement %+v", a)
	}
}

func TestHubRunsOnCloseAfterDisconnect(t *testing.T) {
	hub := NewHub()
	closed := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "bob", func() { closed <- "bob" })
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	select {
	case <-closed:
		t.Fatal("onClose ran while connected")
	case <-time.After(50 * time.Millisecond):
	}

	conn.Close()
	select {
	case who := <-closed:
		if who != "bob" {
			t.Fatalf("onClose for %q", who)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("onClose not called after disconnect")
	}
	if hub.Count() != 0 {
		t.Fatalf("hub clients = %d after disconnect", hub.Count())
	}
}
