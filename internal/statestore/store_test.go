package statestore

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/anchor/internal/bundle"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestStore_PutGetDelete(t *testing.T) {
	s, _ := openTemp(t)

	if _, ok, err := s.Get("counter"); err != nil || ok {
		t.Fatalf("Get on empty store = %v, %v, want miss", ok, err)
	}

	want := bundle.Bundle{bundle.KeyPresenterID: "id-1"}
	if err := s.Put("counter", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := s.Get("counter")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bundle mismatch (-want +got):\n%s", diff)
	}

	if err := s.Delete("counter"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("counter"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, ok, _ := s.Get("counter"); ok {
		t.Fatalf("bundle survived Delete")
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	s, path := openTemp(t)
	if err := s.Put("a", bundle.Bundle{"k": "v"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("b", bundle.Bundle{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get("a")
	if err != nil || !ok || got["k"] != "v" {
		t.Fatalf("Get after reopen = %v, %v, %v", got, ok, err)
	}
	names, err := reopened.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_CloseTwice(t *testing.T) {
	s, _ := openTemp(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
