package health

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"

	"github.com/openreef/aquamon/controller"
	"github.com/openreef/aquamon/controller/storage"
)

func testHealth(t *testing.T) *Controller {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	m := New(controller.NewTestController(store))
	if err := m.Setup(); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestCheckRecordsUsage(t *testing.T) {
	m := testHealth(t)
	m.check()
	m.check()
	usage := m.UsageHistory()
	if len(usage) != 2 {
		t.Fatalf("expected 2 usage samples, got %d", len(usage))
	}
	if usage[0].Ts == 0 {
		t.Error("usage sample must be timestamped")
	}
}

func TestUsageHistoryCapped(t *testing.T) {
	m := testHealth(t)
	for i := 0; i < maxUsage+10; i++ {
		m.check()
	}
	if n := len(m.UsageHistory()); n != maxUsage {
		t.Errorf("expected history capped at %d, got %d", maxUsage, n)
	}
}

func TestUsageAPI(t *testing.T) {
	m := testHealth(t)
	m.check()
	r := mux.NewRouter()
	m.LoadAPI(r)
	req := httptest.NewRequest("GET", "/api/health/usage", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var usage []Usage
	if err := json.Unmarshal(w.Body.Bytes(), &usage); err != nil {
		t.Fatal(err)
	}
	if len(usage) != 1 {
		t.Errorf("expected one sample, got %d", len(usage))
	}
}
