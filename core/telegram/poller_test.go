package telegram

import (
	"errors"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPollerModes(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "webhook", Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://example.org/hook"}})
	wh, ok := p.(*tele.Webhook)
	if !ok {
		t.Fatalf("expected webhook poller, got %T", p)
	}
	if wh.Listen != "0.0.0.0:8443" {
		t.Fatalf("listen = %q", wh.Listen)
	}

	p = BuildPoller(PollerOptions{RunMode: "longpoll"})
	bp, ok := p.(*BackoffPoller)
	if !ok {
		t.Fatalf("expected backoff poller, got %T", p)
	}
	if bp.Timeout != 10*time.Second {
		t.Fatalf("timeout = %s", bp.Timeout)
	}
}

func TestBackoffPollerSurvivesFailures(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []int
		calls   int
		stamps  []time.Time
	)
	p := &BackoffPoller{
		MinBackoff: 5 * time.Millisecond,
		MaxBackoff: 12 * time.Millisecond,
	}
	p.fetch = func(offset int) ([]tele.Update, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		offsets = append(offsets, offset)
		stamps = append(stamps, time.Now())
		switch calls {
		case 1, 2, 3:
			return nil, errors.New("Post \"https://api.telegram.org/bot123:ABC/getUpdates\": i/o timeout")
		case 4:
			return []tele.Update{{ID: 10}, {ID: 11}}, nil
		default:
			time.Sleep(time.Millisecond)
			return nil, nil
		}
	}

	dest := make(chan tele.Update, 4)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		p.Poll(nil, dest, stop)
		close(done)
	}()

	for _, want := range []int{10, 11} {
		select {
		case upd := <-dest:
			if upd.ID != want {
				t.Fatalf("update id = %d, want %d", upd.ID, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("poller did not deliver updates after failures")
		}
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if offsets[0] != 1 || offsets[3] != 1 {
		t.Fatalf("offset must not advance on failure: %v", offsets)
	}
	if len(offsets) > 4 && offsets[4] != 12 {
		t.Fatalf("offset after delivery = %d, want 12", offsets[4])
	}
	// third retry waits the capped delay, not 20ms
	if gap := stamps[3].Sub(stamps[2]); gap < 12*time.Millisecond {
		t.Fatalf("backoff gap = %s, want >= 12ms", gap)
	}
}

func TestBackoffPollerBounds(t *testing.T) {
	p := &BackoffPoller{}
	lo, hi := p.bounds()
	if lo != time.Second || hi != 30*time.Second {
		t.Fatalf("bounds = %s/%s", lo, hi)
	}
}

func TestClientTimeoutExceedsLongPoll(t *testing.T) {
	cases := map[int]time.Duration{
		0:  30 * time.Second,
		10: 30 * time.Second,
		50: 60 * time.Second,
	}
	for in, want := range cases {
		if got := clientTimeout(in); got != want {
			t.Fatalf("clientTimeout(%d) = %v, want %v", in, got, want)
		}
	}
	logBotError(nil, nil)
}
