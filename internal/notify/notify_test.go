package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/logger"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"luckydraw/internal/models"
)

func TestMain(m *testing.M) {
	defer logger.Init("notify-test", false, false, io.Discard).Close()
	os.Exit(m.Run())
}

var testResult = &models.DrawResult{
	PrizeID:    "gold",
	PrizeName:  "Gold",
	PrizeLevel: 1,
	DrawTime:   time.Date(2026, 1, 23, 20, 0, 0, 0, time.UTC),
	Winners:    []models.Winner{{ID: "p1", Name: "Alice"}},
}

type recorder struct{ got []*models.DrawResult }

func (r *recorder) PublishResult(result *models.DrawResult) { r.got = append(r.got, result) }

func TestFanout(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Fanout{a, b}.PublishResult(testResult)
	if len(a.got) != 1 || len(b.got) != 1 || a.got[0] != testResult {
		t.Errorf("Expected both publishers to receive the result, got %d and %d", len(a.got), len(b.got))
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer(t *testing.T) {
	t.Run("Test message is keyed by prize", func(t *testing.T) {
		w := &fakeWriter{}
		p := &Producer{writer: w}
		if err := p.SendResult(context.Background(), testResult); err != nil {
			t.Fatalf("SendResult error: %v", err)
		}
		if len(w.msgs) != 1 {
			t.Fatalf("Expected 1 message, got %d", len(w.msgs))
		}
		msg := w.msgs[0]
		if string(msg.Key) != "gold" || !msg.Time.Equal(testResult.DrawTime) {
			t.Errorf("Unexpected message metadata: key=%s time=%v", msg.Key, msg.Time)
		}
		var decoded models.DrawResult
		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			t.Fatalf("Unmarshal error: %v", err)
		}
		if decoded.PrizeName != "Gold" || len(decoded.Winners) != 1 {
			t.Errorf("Unexpected payload: %+v", decoded)
		}
	})

	t.Run("Test write failure is reported", func(t *testing.T) {
		p := &Producer{writer: &fakeWriter{err: errors.New("broker down")}}
		err := p.SendResult(context.Background(), testResult)
		if err == nil || !strings.Contains(err.Error(), "broker down") {
			t.Errorf("Expected write error, got %v", err)
		}
		// PublishResult only logs.
		p.PublishResult(testResult)
	})

	t.Run("Test close", func(t *testing.T) {
		w := &fakeWriter{}
		if err := (&Producer{writer: w}).Close(); err != nil || !w.closed {
			t.Errorf("Close = %v, closed = %v", err, w.closed)
		}
	})

	t.Run("Test configuration is required", func(t *testing.T) {
		if _, err := NewProducer(nil, "lottery-results"); err == nil {
			t.Error("Expected an error without brokers")
		}
		if _, err := NewProducer([]string{"localhost:9092"}, ""); err == nil {
			t.Error("Expected an error without topic")
		}
	})
}

func TestHub(t *testing.T) {
	hub := NewHub(time.Second)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddConnection(conn)
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Len() != 1 {
		t.Fatalf("Expected 1 connection, got %d", hub.Len())
	}

	hub.PublishResult(testResult)

	client.SetReadDeadline(time.Now().Add(time.Second))
	var msg struct {
		Type string            `json:"type"`
		Data models.DrawResult `json:"data"`
	}
	if err := client.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON error: %v", err)
	}
	if msg.Type != TypeLotteryResult || msg.Data.PrizeID != "gold" {
		t.Errorf("Unexpected message: %+v", msg)
	}

	if dropped := hub.Ping(time.Second); dropped != 0 {
		t.Errorf("Expected no dropped clients, got %d", dropped)
	}
}

func TestHubStalledClient(t *testing.T) {
	hub := NewHub(200 * time.Millisecond)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.AddConnection(conn)
	}))
	defer server.Close()

	// The client never reads, so the socket buffers fill up.
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.Len() != 1 {
		t.Fatalf("Expected 1 connection, got %d", hub.Len())
	}

	payload := strings.Repeat("x", 1<<20)
	deadline = time.Now().Add(10 * time.Second)
	for hub.Len() > 0 && time.Now().Before(deadline) {
		start := time.Now()
		hub.Broadcast(Message{Type: TypeCommandResult, Data: payload})
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Fatalf("Broadcast blocked for %v", elapsed)
		}
	}
	if hub.Len() != 0 {
		t.Errorf("Expected the stalled client to be dropped, %d left", hub.Len())
	}
}
