package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStorePutGetAll(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	docs := []StoredDocument{
		{Document: Document{ID: "b", Text: "beta", Metadata: map[string]string{"lang": "en"}}, Model: "m1", Vector: []float32{0.5, -1.25}},
		{Document: Document{ID: "a", Text: "alpha"}, Model: "m1", Vector: []float32{1, 2}},
		{Document: Document{ID: "c", Text: "gamma"}, Model: "m2", Vector: []float32{3}},
	}
	if err := s.Put(ctx, docs); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, ok, err := s.Get(ctx, "b")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if diff := cmp.Diff(docs[0], got, cmpopts.IgnoreFields(StoredDocument{}, "UpdatedAt")); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}
	if time.Since(got.UpdatedAt) > time.Minute {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}

	if _, ok, err := s.Get(ctx, "missing"); ok || err != nil {
		t.Errorf("Get(missing) = %v, %v", ok, err)
	}

	m1, err := s.All(ctx, "m1")
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(m1) != 2 || m1[0].ID != "a" || m1[1].ID != "b" {
		t.Errorf("All(m1) = %v", m1)
	}
	all, _ := s.All(ctx, "")
	if len(all) != 3 {
		t.Errorf("All() = %d docs, want 3", len(all))
	}
}

func TestStoreUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_ = s.Put(ctx, []StoredDocument{{Document: Document{ID: "a", Text: "old"}, Model: "m", Vector: []float32{1}}})
	_ = s.Put(ctx, []StoredDocument{{Document: Document{ID: "a", Text: "new"}, Model: "m", Vector: []float32{2, 3}}})

	got, _, _ := s.Get(ctx, "a")
	if got.Text != "new" || len(got.Vector) != 2 {
		t.Errorf("upsert = %+v", got)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	n, err := s.Delete(ctx, "a", "missing")
	if err != nil || n != 1 {
		t.Errorf("Delete() = %d, %v", n, err)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count() after delete = %d", n)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Put(ctx, []StoredDocument{{Document: Document{ID: "a", Text: "kept"}, Model: "m", Vector: []float32{1, 2}}})
	_ = s.Close()

	s, err = OpenStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, ok, _ := s.Get(ctx, "a")
	if !ok || got.Text != "kept" {
		t.Errorf("after reopen = %+v, %v", got, ok)
	}
}

func TestVectorSerialization(t *testing.T) {
	v := []float32{0, 1.5, -2.25, 3.4028235e38}
	if diff := cmp.Diff(v, deserializeVector(serializeVector(v))); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}
}
