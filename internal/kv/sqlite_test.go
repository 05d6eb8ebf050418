package kv

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteRoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "logged_in", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "logged_in"); !ok || v != "true" {
		t.Fatalf("get = %q ok=%v", v, ok)
	}

	// Set on an existing key overwrites in place.
	if err := s.Set(ctx, "logged_in", "false"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, _, _ := s.Get(ctx, "logged_in"); v != "false" {
		t.Fatalf("after overwrite = %q", v)
	}

	if err := s.Delete(ctx, "logged_in"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "logged_in"); ok {
		t.Fatalf("key survived delete")
	}
	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "logged_in"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, "login_attempts", "3"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if v, ok, _ := s.Get(ctx, "login_attempts"); !ok || v != "3" {
		t.Fatalf("after reopen = %q ok=%v", v, ok)
	}
}
