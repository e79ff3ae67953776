package session

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/datadash/internal/frame"
)

func table(t *testing.T, csv string) *frame.Table {
	t.Helper()
	tbl, err := frame.Read(strings.NewReader(csv), frame.ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return tbl
}

func TestSessionSetReplacesTable(t *testing.T) {
	s := newSession("id", time.Now())
	s.Set(table(t, "a,b,c\n1,2,3\n"), "first.csv")
	s.SelectFile("first.csv")
	s.Set(table(t, "z\n9\n8\n"), "second.csv")

	st := s.Snapshot()
	if !st.Loaded() {
		t.Fatal("expected a loaded table")
	}
	if got := st.Table.Names(); len(got) != 1 || got[0] != "z" {
		t.Errorf("columns = %v, want [z]", got)
	}
	if st.Table.NumRows() != 2 {
		t.Errorf("rows = %d, want 2", st.Table.NumRows())
	}
	if st.Filename != "second.csv" || st.Selected != "first.csv" {
		t.Errorf("state = %+v", st)
	}
}

func TestSessionClear(t *testing.T) {
	s := newSession("id", time.Now())
	s.Set(table(t, "a\n1\n"), "a.csv")
	s.SelectFile("a.csv")
	s.Clear()

	st := s.Snapshot()
	if st.Loaded() || st.Filename != "" || st.Selected != "" {
		t.Errorf("state after Clear = %+v", st)
	}
}

func TestStoreGetOrCreate(t *testing.T) {
	st := NewStore()

	s, created := st.GetOrCreate("")
	if !created || s.ID == "" {
		t.Fatalf("expected new session, got %v %v", s, created)
	}
	again, created := st.GetOrCreate(s.ID)
	if created || again != s {
		t.Error("expected the existing session")
	}
	other, created := st.GetOrCreate("unknown-id")
	if !created || other.ID == "unknown-id" {
		t.Error("unknown ids must not be adopted")
	}
	if st.Len() != 2 {
		t.Errorf("Len = %d, want 2", st.Len())
	}

	st.Delete(s.ID)
	if _, ok := st.Get(s.ID); ok {
		t.Error("session still present after Delete")
	}
}

func TestStoreReap(t *testing.T) {
	st := NewStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	idle, _ := st.GetOrCreate("")
	now = now.Add(90 * time.Minute)
	fresh, _ := st.GetOrCreate("")
	now = now.Add(45 * time.Minute)

	if n := st.Reap(2 * time.Hour); n != 1 {
		t.Fatalf("reaped %d, want 1", n)
	}
	if _, ok := st.Get(idle.ID); ok {
		t.Error("idle session survived")
	}
	if _, ok := st.Get(fresh.ID); !ok {
		t.Error("fresh session was reaped")
	}
}

func TestRunReaperStops(t *testing.T) {
	st := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.RunReaper(ctx, time.Hour, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after cancel")
	}
}

func TestSessionConcurrentAccess(t *testing.T) {
	s := newSession("id", time.Now())
	tbl := table(t, "a\n1\n")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set(tbl, "a.csv")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	if s.Table() != tbl {
		t.Error("expected table to be set")
	}
}

func TestSessionFlashes(t *testing.T) {
	s := newSession("id", time.Now())
	if got := s.TakeFlashes(); got != nil {
		t.Fatalf("new session flashes = %v", got)
	}
	for i := 0; i < maxFlashes+2; i++ {
		s.AddFlash(Flash{Kind: FlashInfo, Message: string(rune('a' + i))})
	}
	got := s.TakeFlashes()
	if len(got) != maxFlashes {
		t.Fatalf("len = %d, want %d", len(got), maxFlashes)
	}
	if got[0].Message != "c" {
		t.Errorf("oldest kept = %q, want c", got[0].Message)
	}
	if again := s.TakeFlashes(); len(again) != 0 {
		t.Errorf("flashes not cleared: %v", again)
	}
}
