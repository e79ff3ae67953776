package activity

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// exerciseStore runs the shared contract against a Store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{SessionID: "s1", Action: ActionDownload, Target: "blastchar/telco-customer-churn", At: base},
		{SessionID: "s1", Action: ActionLoad, Target: "telco.csv", Rows: 7043, Cols: 21, At: base.Add(time.Minute)},
		{SessionID: "s2", Action: ActionUpload, Target: "bad.csv", Error: "cannot parse tabular data", At: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	if got[0].Action != ActionUpload || !got[0].Failed() {
		t.Errorf("newest entry = %+v", got[0])
	}
	if got[1].Action != ActionLoad || got[1].Rows != 7043 || got[1].Cols != 21 {
		t.Errorf("second entry = %+v", got[1])
	}
	if got[0].ID == "" || got[1].ID == got[0].ID {
		t.Errorf("ids not assigned: %q %q", got[0].ID, got[1].ID)
	}
	if !got[1].At.Equal(base.Add(time.Minute)) {
		t.Errorf("time = %v", got[1].At)
	}

	all, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Recent(0) returned %d, want 3", len(all))
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreWraps(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()
	for _, target := range []string{"a", "b", "c", "d", "e"} {
		_ = s.Record(ctx, Entry{Action: ActionLoad, Target: target})
	}
	got, _ := s.Recent(ctx, 10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	want := []string{"e", "d", "c"}
	for i, e := range got {
		if e.Target != want[i] {
			t.Errorf("entry %d target = %q, want %q", i, e.Target, want[i])
		}
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "activity.db")
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	exerciseStore(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Entries survive reopening.
	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("after reopen: %d entries, want 3", len(got))
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ACTIVITY_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ACTIVITY_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer s.Close()
	if _, err := s.pool.Exec(ctx, "TRUNCATE activity_log"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		driver  string
		dsn     string
		wantErr bool
	}{
		{"", "", false},
		{"memory", "", false},
		{"sqlite", filepath.Join(t.TempDir(), "a.db"), false},
		{"sqlite", "", true},
		{"postgres", "", true},
		{"mongo", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s, err := Open(ctx, tt.driver, tt.dsn)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			_ = s.Close()
		})
	}
}
