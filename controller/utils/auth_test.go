package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthFlow(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	a := NewAuth(AuthConfig{
		Enable:       true,
		Username:     "admin",
		PasswordHash: hash,
		CookieSecret: "test-secret",
	})

	ok := false
	protected := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok = true
	}))

	req := httptest.NewRequest("GET", "/api/quality/status", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized || ok {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/auth/signin", strings.NewReader(`{"user":"admin","password":"wrong"}`))
	w = httptest.NewRecorder()
	a.SignIn(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad password, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/auth/signin", strings.NewReader(`{"user":"admin","password":"hunter2"}`))
	w = httptest.NewRecorder()
	a.SignIn(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on signin, got %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected session cookie")
	}

	req = httptest.NewRequest("GET", "/api/quality/status", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !ok {
		t.Fatalf("expected authorized request to pass, got %d", w.Code)
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	a := NewAuth(AuthConfig{})
	ok := false
	h := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { ok = true }))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/probe/raw", nil))
	if !ok {
		t.Error("disabled auth must not block requests")
	}
}
