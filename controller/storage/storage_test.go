package storage

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

type rec struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

func testStore(t *testing.T) Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreCRUD(t *testing.T) {
	s := testStore(t)
	if err := s.CreateBucket("samples"); err != nil {
		t.Fatal(err)
	}
	var created rec
	if err := s.Create("samples", func(id string) interface{} {
		created = rec{ID: id, Value: 7.8}
		return &created
	}); err != nil {
		t.Fatal(err)
	}
	var got rec
	if err := s.Get("samples", created.ID, &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 7.8 {
		t.Errorf("expected 7.8, got %v", got.Value)
	}
	got.Value = 8.1
	if err := s.Update("samples", created.ID, &got); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := s.List("samples", func(id string, v []byte) error {
		var r rec
		if err := json.Unmarshal(v, &r); err != nil {
			return err
		}
		if r.Value != 8.1 {
			t.Errorf("expected updated value, got %v", r.Value)
		}
		n++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one record, got %d", n)
	}
	if err := s.Delete("samples", created.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Get("samples", created.ID, &got); err == nil {
		t.Error("expected error for deleted record")
	}
}

func TestStoreCreateWithID(t *testing.T) {
	s := testStore(t)
	if err := s.CreateBucket("configs"); err != nil {
		t.Fatal(err)
	}
	r := rec{ID: "default", Value: 1}
	if err := s.CreateWithID("configs", "default", &r); err != nil {
		t.Fatal(err)
	}
	r.Value = 2
	if err := s.CreateWithID("configs", "default", &r); err != nil {
		t.Fatal(err)
	}
	var got rec
	if err := s.Get("configs", "default", &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 2 {
		t.Errorf("expected overwrite, got %v", got.Value)
	}
}

func TestStoreMissingBucket(t *testing.T) {
	s := testStore(t)
	var got rec
	if err := s.Get("nope", "1", &got); err == nil {
		t.Error("expected error for missing bucket")
	}
	if err := s.Update("nope", "1", &got); err == nil {
		t.Error("expected error for missing bucket")
	}
}
