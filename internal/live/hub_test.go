package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/coder/websocket"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, meetingID int64) *Client {
	return &Client{
		hub:       hub,
		meetingID: meetingID,
		send:      make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	var counts []int
	hub.OnCountChange = func(n int) { counts = append(counts, n) }

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 2)
	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}
	if got := hub.Subscribers(1); got != 1 {
		t.Fatalf("expected 1 subscriber of meeting 1, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c1) // Should not panic
	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
	want := []int{1, 2, 1, 1, 0}
	if len(counts) != len(want) {
		t.Fatalf("count callbacks = %v, want %v", counts, want)
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("count callbacks = %v, want %v", counts, want)
			break
		}
	}
}

func TestPublishIsScopedToMeeting(t *testing.T) {
	hub := NewHub(slog.Default())
	a := mockClient(hub, 1)
	b := mockClient(hub, 2)
	hub.Register(a)
	hub.Register(b)
	defer hub.Unregister(a)
	defer hub.Unregister(b)

	hub.Publish(NewEvent(1, "payment", "created", 42))

	select {
	case data := <-a.send:
		var got Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != "payment_created" || got.MeetingID != 1 || got.ID != 42 {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}

	select {
	case data := <-b.send:
		t.Errorf("meeting 2 received meeting 1 event: %s", data)
	default:
	}
}

func TestPublishFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	defer hub.Unregister(c)

	for i := 0; i < sendBufferSize+5; i++ {
		hub.Publish(NewEvent(1, "member", "updated", int64(i)))
	}
	if got := len(c.send); got != sendBufferSize {
		t.Errorf("expected full buffer of %d, got %d", sendBufferSize, got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(meetingID int64) {
			defer wg.Done()
			c := mockClient(hub, meetingID)
			hub.Register(c)
			hub.Publish(NewEvent(meetingID, "member", "created", 0))
			hub.Unregister(c)
		}(int64(i % 3))
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

func TestServe(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, 7, nil)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// Registration happens on the server goroutine after the handshake.
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers(7) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(NewEvent(7, "payment", "deleted", 3))

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "payment_deleted" || got.ID != 3 {
		t.Errorf("unexpected event %+v", got)
	}
}
