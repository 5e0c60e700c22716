package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAllowlist_CIDRAndHostPort(t *testing.T) {
	al, err := NewAllowlist([]string{"10.0.0.0/24", "192.168.1.5:8080"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !al.Allowed("10.0.0.42", 9999) {
		t.Fatal("expected cidr match regardless of port")
	}
	if !al.Allowed("192.168.1.5", 8080) {
		t.Fatal("expected exact host:port match")
	}
	if al.Allowed("192.168.1.5", 9999) {
		t.Fatal("expected host:port entry to require exact port")
	}
	if al.Allowed("203.0.113.1", 80) {
		t.Fatal("expected unrelated address denied")
	}
}

func TestAllowlist_InvalidEntries(t *testing.T) {
	if _, err := NewAllowlist([]string{"10.0.0.0/abc"}); err == nil {
		t.Fatal("expected error for invalid cidr")
	}
	if _, err := NewAllowlist([]string{"not-a-hostport"}); err == nil {
		t.Fatal("expected error for malformed host:port")
	}
	if _, err := NewAllowlist([]string{"host:notaport"}); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestAllowlist_IsEmpty(t *testing.T) {
	al, err := NewAllowlist(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !al.IsEmpty() {
		t.Fatal("expected empty allowlist")
	}
}

func TestAllowlist_AllowedAddr(t *testing.T) {
	al, err := NewAllowlist([]string{"127.0.0.1:9000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !al.AllowedAddr("127.0.0.1:9000") {
		t.Fatal("expected matching remote addr allowed")
	}
	if al.AllowedAddr("not-an-addr") {
		t.Fatal("expected malformed addr denied")
	}
}

func TestMiddleware_NilAllowlistAdmitsAll(t *testing.T) {
	var al *Allowlist
	called := false
	h := al.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.1:1234"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("expected nil allowlist to admit the request")
	}
}

func TestMiddleware_RejectsUnlisted(t *testing.T) {
	al, err := NewAllowlist([]string{"127.0.0.1:1234"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	called := false
	h := al.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.1:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if called {
		t.Fatal("expected handler not to be called")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestMiddleware_AdmitsListed(t *testing.T) {
	al, err := NewAllowlist([]string{"203.0.113.1:1234"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	called := false
	h := al.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.1:1234"
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !called {
		t.Fatal("expected handler to be called for listed address")
	}
}
