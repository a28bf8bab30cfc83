package quiz

import "testing"

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()
	a := algebraQuiz()

	built := 0
	build := func() *Session {
		built++
		return NewSession(a, 0, frozenTimer)
	}

	s1 := r.GetOrCreate(a.ID, 7, build)
	s2 := r.GetOrCreate(a.ID, 7, build)
	if s1 != s2 {
		t.Fatal("same assignment-student pair must share one session")
	}
	if built != 1 {
		t.Fatalf("build must run once, ran %d times", built)
	}

	other := r.GetOrCreate(a.ID, 8, build)
	if other == s1 {
		t.Fatal("different students must not share sessions")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 live sessions, got %d", r.Len())
	}
}

func TestRegistryRemoveClosesSession(t *testing.T) {
	r := NewRegistry()
	a := algebraQuiz()

	s := r.GetOrCreate(a.ID, 7, func() *Session { return NewSession(a, 0, frozenTimer) })
	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	r.Remove(a.ID, 7)
	if _, ok := r.Get(a.ID, 7); ok {
		t.Fatal("removed session must be gone")
	}
	if err := s.Submit(true); err != ErrClosed {
		t.Fatalf("removed session must be closed, got %v", err)
	}

	r.Remove(a.ID, 7) // idempotent
}
