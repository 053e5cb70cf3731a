package registry

import (
	"sync"
	"testing"
)

type testObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *testObserver) OnRegistryEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() { d.drops++ }

func TestRegistry_Basic(t *testing.T) {
	r := New()

	tok, err := r.Register("state")
	if err != nil {
		t.Fatal(err)
	}
	if tok == 0 {
		t.Fatal("expected non-zero token")
	}

	val, ok := r.Lookup(tok)
	if !ok || val != "state" {
		t.Fatalf("Lookup = %v, %v", val, ok)
	}

	if !r.Unregister(tok) {
		t.Fatal("Unregister should report removal")
	}
	if _, ok := r.Lookup(tok); ok {
		t.Fatal("lookup after unregister must fail")
	}
	if r.Unregister(tok) {
		t.Fatal("second Unregister should be a no-op")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}

func TestRegistry_ZeroTokenNeverValid(t *testing.T) {
	r := New()
	if _, ok := r.Lookup(0); ok {
		t.Fatal("token 0 must not resolve")
	}
	if r.Unregister(0) {
		t.Fatal("token 0 cannot be unregistered")
	}
}

func TestRegistry_NilState(t *testing.T) {
	r := New()
	if _, err := r.Register(nil); err == nil {
		t.Fatal("nil state should be rejected")
	}
}

func TestRegistry_TokensNeverReused(t *testing.T) {
	r := New()
	seen := make(map[Token]bool)

	// interleave register and unregister; every token must be new
	var live []Token
	for i := 0; i < 200; i++ {
		tok, err := r.Register(i)
		if err != nil {
			t.Fatal(err)
		}
		if seen[tok] {
			t.Fatalf("token %d issued twice", tok)
		}
		seen[tok] = true
		live = append(live, tok)
		if i%3 == 0 {
			r.Unregister(live[0])
			live = live[1:]
		}
	}

	for tok := range seen {
		_, ok := r.Lookup(tok)
		stillLive := false
		for _, l := range live {
			if l == tok {
				stillLive = true
			}
		}
		if ok != stillLive {
			t.Fatalf("token %d: lookup ok=%v, live=%v", tok, ok, stillLive)
		}
	}
}

func TestRegistry_Observer(t *testing.T) {
	r := New()
	obs := &testObserver{}
	r.Subscribe(obs)

	tok, _ := r.Register("x")
	r.Unregister(tok)
	r.Unregister(tok)

	if len(obs.events) != 2 {
		t.Fatalf("got %d events, want 2", len(obs.events))
	}
	if obs.events[0].Type != EventRegistered || obs.events[1].Type != EventUnregistered {
		t.Errorf("unexpected event order: %+v", obs.events)
	}
	if obs.events[1].Token != tok {
		t.Errorf("event token = %d, want %d", obs.events[1].Token, tok)
	}

	r.Unsubscribe(obs)
	r.Register("y")
	if len(obs.events) != 2 {
		t.Error("unsubscribed observer still notified")
	}
}

func TestRegistry_DropperRunsOnce(t *testing.T) {
	r := New()
	d := &dropCounter{}
	tok, _ := r.Register(d)

	r.Unregister(tok)
	r.Unregister(tok)

	if d.drops != 1 {
		t.Fatalf("Drop ran %d times, want 1", d.drops)
	}
}

func TestRegistry_ObserverMayReenter(t *testing.T) {
	r := New()
	r.Subscribe(reentrant{r})

	done := make(chan struct{})
	go func() {
		defer close(done)
		tok, _ := r.Register("a")
		r.Unregister(tok)
	}()
	<-done
}

type reentrant struct{ r *Registry }

func (o reentrant) OnRegistryEvent(e Event) {
	o.r.Lookup(e.Token)
	o.r.Len()
}

func TestScope_CloseReleasesInReverseOrder(t *testing.T) {
	r := New()
	obs := &testObserver{}
	r.Subscribe(obs)

	s := r.NewScope()
	var tokens []Token
	for i := 0; i < 3; i++ {
		tok, err := s.Register(i)
		if err != nil {
			t.Fatal(err)
		}
		tokens = append(tokens, tok)
	}
	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	s.Close()
	s.Close()

	if r.Len() != 0 {
		t.Fatalf("Len() = %d after Close, want 0", r.Len())
	}

	var order []Token
	for _, e := range obs.events {
		if e.Type == EventUnregistered {
			order = append(order, e.Token)
		}
	}
	want := []Token{tokens[2], tokens[1], tokens[0]}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Errorf("unregister order = %v, want %v", order, want)
	}

	if _, err := s.Register("late"); err == nil {
		t.Error("closed scope should refuse registrations")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := r.NewScope()
			defer s.Close()
			for i := 0; i < 100; i++ {
				tok, err := s.Register(i)
				if err != nil {
					t.Error(err)
					return
				}
				if v, ok := r.Lookup(tok); !ok || v != i {
					t.Errorf("lookup(%d) = %v, %v", tok, v, ok)
					return
				}
			}
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", r.Len())
	}
}
