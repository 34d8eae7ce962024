package mcp

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type countingObserver struct {
	reasons []string
}

func (o *countingObserver) MCPRejected(reason string) {
	o.reasons = append(o.reasons, reason)
}

func guarded(cfg HTTPHandlerConfig) (http.Handler, *int) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Body != nil {
			if _, err := io.ReadAll(r.Body); err != nil {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return newGuard(next, cfg), &calls
}

func serve(h http.Handler, method, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://engine.local/mcp", r)
	req.RemoteAddr = "10.0.0.7:5151"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeRPCError(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var body struct {
		JSONRPC string `json:"jsonrpc"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	if body.JSONRPC != "2.0" {
		t.Fatalf("expected a JSON-RPC error, got %q", rec.Body.String())
	}
	return body.Error.Code, body.Error.Message
}

func TestGuardRequiresBearerToken(t *testing.T) {
	obs := &countingObserver{}
	h, calls := guarded(HTTPHandlerConfig{AuthToken: "secret", Observer: obs})

	rec := serve(h, http.MethodPost, "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("WWW-Authenticate"), authRealm) {
		t.Fatalf("expected bearer challenge, got %q", rec.Header().Get("WWW-Authenticate"))
	}
	if code, _ := decodeRPCError(t, rec); code != codeUnauthorized {
		t.Fatalf("expected code %d, got %d", codeUnauthorized, code)
	}

	rec = serve(h, http.MethodPost, "wrong", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = serve(h, http.MethodPost, "secret", "")
	if rec.Code != http.StatusNoContent || *calls != 1 {
		t.Fatalf("expected the engine handler to run once, got %d calls=%d", rec.Code, *calls)
	}
	if strings.Join(obs.reasons, ",") != RejectMissing+","+RejectForbidden {
		t.Fatalf("unexpected rejections: %v", obs.reasons)
	}
}

func TestGuardAcceptsLowercaseScheme(t *testing.T) {
	h, _ := guarded(HTTPHandlerConfig{AuthToken: "secret"})
	req := httptest.NewRequest(http.MethodGet, "http://engine.local/mcp", nil)
	req.Header.Set("Authorization", "bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected lowercase scheme to pass, got %d", rec.Code)
	}
}

func TestGuardRejectsWithoutConfiguredToken(t *testing.T) {
	h, calls := guarded(HTTPHandlerConfig{})
	if rec := serve(h, http.MethodPost, "anything", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when no token is configured, got %d", rec.Code)
	}
	if *calls != 0 {
		t.Fatal("handler must not run")
	}
}

func TestGuardRefusesOtherMethods(t *testing.T) {
	obs := &countingObserver{}
	h, _ := guarded(HTTPHandlerConfig{AuthToken: "secret", Observer: obs})

	rec := serve(h, http.MethodPut, "secret", "{}")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") == "" {
		t.Fatal("expected Allow header")
	}
	if code, _ := decodeRPCError(t, rec); code != codeMethodInvalid {
		t.Fatalf("expected code %d, got %d", codeMethodInvalid, code)
	}
	if len(obs.reasons) != 1 || obs.reasons[0] != RejectMethod {
		t.Fatalf("unexpected rejections: %v", obs.reasons)
	}
}

func TestGuardRateLimitsPerCredential(t *testing.T) {
	obs := &countingObserver{}
	h, _ := guarded(HTTPHandlerConfig{AuthToken: "secret", RateLimitPerMin: 2, Observer: obs})

	for i := 0; i < 2; i++ {
		if rec := serve(h, http.MethodPost, "secret", ""); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected to pass, got %d", i, rec.Code)
		}
	}
	rec := serve(h, http.MethodPost, "secret", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if code, _ := decodeRPCError(t, rec); code != codeRateLimited {
		t.Fatalf("expected code %d, got %d", codeRateLimited, code)
	}
	if obs.reasons[len(obs.reasons)-1] != RejectRate {
		t.Fatalf("unexpected rejections: %v", obs.reasons)
	}

	// Refused requests do not draw from another client's budget.
	req := httptest.NewRequest(http.MethodPost, "http://engine.local/mcp", nil)
	req.RemoteAddr = "10.0.0.8:6000"
	req.Header.Set("Authorization", "Bearer secret")
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	if other.Code != http.StatusNoContent {
		t.Fatalf("expected a separate budget per client address, got %d", other.Code)
	}
}

func TestGuardLimitsBodySize(t *testing.T) {
	h, _ := guarded(HTTPHandlerConfig{AuthToken: "secret", MaxBodyBytes: 8})
	if rec := serve(h, http.MethodPost, "secret", strings.Repeat("x", 64)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected oversized body to fail, got %d", rec.Code)
	}
}

func TestClientKeyHidesToken(t *testing.T) {
	key := clientKey("secret", "192.168.1.4:9000")
	if strings.Contains(key, "secret") {
		t.Fatalf("key leaks the token: %s", key)
	}
	if !strings.HasSuffix(key, "|192.168.1.4") {
		t.Fatalf("expected host suffix, got %s", key)
	}
	if clientKey("secret", "") == clientKey("other", "") {
		t.Fatal("different tokens must map to different keys")
	}
}
