package insight

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"coindeck/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAsker resolves requests through per-prompt channels so tests control
// completion order.
type fakeAsker struct {
	gates   map[string]chan struct{}
	outputs map[string]string
	errs    map[string]error
}

func newFakeAsker() *fakeAsker {
	return &fakeAsker{
		gates:   make(map[string]chan struct{}),
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (f *fakeAsker) PostInsight(_ context.Context, prompt, _ string) (string, error) {
	if gate, ok := f.gates[prompt]; ok {
		<-gate
	}
	return f.outputs[prompt], f.errs[prompt]
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestAskSuccess(t *testing.T) {
	f := newFakeAsker()
	f.outputs["p"] = "stay bullish"
	c := New(f, "", testLogger())

	c.Ask(context.Background(), "p")
	waitFor(t, time.Second, func() bool { return !c.Snapshot().Loading })

	s := c.Snapshot()
	if s.Output != "stay bullish" || s.Err != "" {
		t.Errorf("state = %+v, want output only", s)
	}
}

func TestAskError(t *testing.T) {
	f := newFakeAsker()
	f.errs["p"] = errors.New("model unavailable")
	c := New(f, "", testLogger())

	c.Ask(context.Background(), "p")
	waitFor(t, time.Second, func() bool { return !c.Snapshot().Loading })

	s := c.Snapshot()
	if s.Err != "model unavailable" || s.Output != "" {
		t.Errorf("state = %+v, want error only", s)
	}
}

func TestAskClearsPriorState(t *testing.T) {
	f := newFakeAsker()
	f.outputs["first"] = "old insight"
	c := New(f, "", testLogger())

	c.Ask(context.Background(), "first")
	waitFor(t, time.Second, func() bool { return c.Snapshot().Output != "" })

	f.gates["second"] = make(chan struct{})
	c.Ask(context.Background(), "second")

	s := c.Snapshot()
	if !s.Loading || s.Output != "" || s.Err != "" {
		t.Errorf("state after second Ask = %+v, want loading with cleared output", s)
	}
	close(f.gates["second"])
}

func TestLatestInvocationWins(t *testing.T) {
	f := newFakeAsker()
	f.gates["A"] = make(chan struct{})
	f.outputs["A"] = "answer A"
	f.outputs["B"] = "answer B"
	c := New(f, "", testLogger())

	c.Ask(context.Background(), "A")
	c.Ask(context.Background(), "B")

	// B resolves first.
	waitFor(t, time.Second, func() bool { return c.Snapshot().Output == "answer B" })

	// A resolves afterwards; its late arrival must not overwrite B's outcome.
	close(f.gates["A"])
	time.Sleep(30 * time.Millisecond)

	if s := c.Snapshot(); s.Output != "answer B" {
		t.Errorf("final output = %q, want %q (late A must be discarded)", s.Output, "answer B")
	}
}

func TestSubscriberSeesLoadingThenResult(t *testing.T) {
	f := newFakeAsker()
	f.outputs["p"] = "out"
	c := New(f, "", testLogger())

	states := make(chan State, 8)
	c.Subscribe(func(s State) { states <- s })

	c.Ask(context.Background(), "p")
	first := <-states
	if !first.Loading {
		t.Errorf("first notification = %+v, want loading", first)
	}
	select {
	case s := <-states:
		if s.Output != "out" || s.Loading {
			t.Errorf("second notification = %+v, want settled output", s)
		}
	case <-time.After(time.Second):
		t.Fatal("settled notification did not arrive")
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt(&domain.Preferences{InvestorType: "HODLer", Currencies: []string{"BTC", "SOL"}})
	if !strings.Contains(p, "HODLer") || !strings.Contains(p, "BTC, SOL") {
		t.Errorf("prompt = %q, want investor type and coin list included", p)
	}

	p = Prompt(nil)
	if !strings.Contains(p, "crypto investor") || !strings.Contains(p, "BTC, ETH") {
		t.Errorf("fallback prompt = %q", p)
	}
}
