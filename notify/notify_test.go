package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	gate  chan struct{}
	err   error
	delay time.Duration
}

func (s *recordingSender) SendVerification(ctx context.Context, email, token string) error {
	if s.gate != nil {
		<-s.gate
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.sent = append(s.sent, email+"|"+token)
	s.mu.Unlock()
	return s.err
}

func (s *recordingSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVerificationLink(t *testing.T) {
	if got := VerificationLink("", "a.b+c"); got != DefaultVerificationBase+"a.b%2Bc" {
		t.Fatalf("unexpected link %q", got)
	}
	if got := VerificationLink("https://x/verify?t=", "tok"); got != "https://x/verify?t=tok" {
		t.Fatalf("unexpected link %q", got)
	}
}

func TestLogSenderWritesLink(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)), "")
	if err := s.SendVerification(context.Background(), "a@example.com", "tok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), DefaultVerificationBase+"tok") {
		t.Fatalf("expected link in log output, got %s", buf.String())
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, Config{BufferSize: 8}, quietLogger())

	for _, email := range []string{"a@x", "b@x", "c@x"} {
		if !d.Enqueue(email, "t") {
			t.Fatalf("expected %s to be queued", email)
		}
	}
	d.Close()
	d.Close()

	if got := sender.Sent(); len(got) != 3 || got[0] != "a@x|t" {
		t.Fatalf("expected 3 ordered deliveries, got %v", got)
	}
	if d.Enqueue("late@x", "t") {
		t.Fatal("expected enqueue after close to be rejected")
	}
	if len(sender.Sent()) != 3 {
		t.Fatal("expected send after close to be ignored")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sender := &recordingSender{gate: make(chan struct{})}
	d := NewDispatcher(sender, Config{BufferSize: 1}, quietLogger())

	d.Enqueue("1@x", "t")
	// Give the worker time to pick up the first message and block on the gate.
	time.Sleep(50 * time.Millisecond)
	d.Enqueue("2@x", "t")

	start := time.Now()
	if d.Enqueue("3@x", "t") {
		t.Fatal("expected full queue to reject the message")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking send on a full queue")
	}
	if d.Dropped() != 1 {
		t.Fatalf("expected 1 dropped message, got %d", d.Dropped())
	}

	close(sender.gate)
	d.Close()
	if len(sender.Sent()) != 2 {
		t.Fatalf("expected 2 deliveries, got %v", sender.Sent())
	}
}

func TestDispatcherCountsFailuresAndTimeouts(t *testing.T) {
	failing := &recordingSender{err: errors.New("smtp down")}
	d := NewDispatcher(failing, Config{BufferSize: 4}, quietLogger())
	d.Enqueue("a@x", "t")
	d.Close()
	if d.Failed() != 1 {
		t.Fatalf("expected 1 failure, got %d", d.Failed())
	}

	slow := &recordingSender{delay: time.Second}
	d = NewDispatcher(slow, Config{BufferSize: 4, Timeout: 20 * time.Millisecond}, quietLogger())
	d.Enqueue("b@x", "t")
	d.Close()
	if d.Failed() != 1 {
		t.Fatalf("expected timed-out delivery to count as failure, got %d", d.Failed())
	}
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	if d.Enqueue("a@x", "t") {
		t.Fatal("expected nil dispatcher to reject messages")
	}
	d.Close()
	if d.Dropped() != 0 || d.Failed() != 0 {
		t.Fatal("expected zero counters on nil dispatcher")
	}
}
