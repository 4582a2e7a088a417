package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(handler http.HandlerFunc) (*Client, func()) {
	srv := httptest.NewServer(handler)
	c := NewClient(srv.URL, 5*time.Second, "")
	return c, srv.Close
}

func TestFetchBalance_Success(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %q", got)
		}
		w.Write([]byte(`{"code":20000,"data":{"balance":"42.5","status":"active"}}`))
	})
	defer done()

	b, err := c.FetchBalance(context.Background(), "sk-test")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if b.Balance != 42.5 {
		t.Errorf("balance = %v, want 42.5", b.Balance)
	}
	if b.Status != "active" {
		t.Errorf("status = %q, want active", b.Status)
	}
}

func TestFetchBalance_TotalBalanceFallback(t *testing.T) {
	c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":20000,"data":{"totalBalance":7}}`))
	})
	defer done()

	b, err := c.FetchBalance(context.Background(), "sk-test")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if b.Balance != 7 {
		t.Errorf("balance = %v, want 7", b.Balance)
	}
	if b.Status != "active" {
		t.Errorf("missing status should default to active, got %q", b.Status)
	}
}

func TestFetchBalance_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"message":"invalid key"}`},
		{"wrong code", http.StatusOK, `{"code":40001,"data":{}}`},
		{"missing data", http.StatusOK, `{"code":20000}`},
		{"missing balance", http.StatusOK, `{"code":20000,"data":{"status":"active"}}`},
		{"not json", http.StatusOK, `<html>oops</html>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, done := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			})
			defer done()

			if _, err := c.FetchBalance(context.Background(), "sk-test"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestFetchBalance_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"code":20000,"data":{"balance":1}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 20*time.Millisecond, "")
	if _, err := c.FetchBalance(context.Background(), "sk-test"); err == nil {
		t.Error("expected timeout error")
	}
}
