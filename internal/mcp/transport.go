package mcp

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultMaxBodyBytes    int64 = 1 << 20
	defaultRateLimitPerMin       = 60
	authRealm                    = "autotrader-mcp"
)

// JSON-RPC error codes for requests turned away before they reach the server.
const (
	codeUnauthorized  = -32001
	codeForbidden     = -32002
	codeRateLimited   = -32003
	codeMethodInvalid = -32600
)

// Rejection reasons reported to a RejectionObserver.
const (
	RejectMethod    = "method"
	RejectMissing   = "missing_token"
	RejectForbidden = "invalid_token"
	RejectRate      = "rate_limited"
)

// RejectionObserver counts refused HTTP requests. *metrics.Recorder satisfies it.
type RejectionObserver interface {
	MCPRejected(reason string)
}

type HTTPHandlerConfig struct {
	AuthToken       string
	RateLimitPerMin int
	MaxBodyBytes    int64
	Observer        RejectionObserver
}

// guard fronts the streamable HTTP handler. Only the verbs the transport
// uses get through, every request needs the shared bearer token, and each
// credential and client address pair draws from its own rate budget.
type guard struct {
	next     http.Handler
	token    []byte
	maxBody  int64
	perMin   int
	observer RejectionObserver

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newGuard(next http.Handler, cfg HTTPHandlerConfig) *guard {
	g := &guard{
		next:     next,
		token:    []byte(strings.TrimSpace(cfg.AuthToken)),
		maxBody:  cfg.MaxBodyBytes,
		perMin:   cfg.RateLimitPerMin,
		observer: cfg.Observer,
		limiters: make(map[string]*rate.Limiter),
	}
	if g.maxBody <= 0 {
		g.maxBody = defaultMaxBodyBytes
	}
	if g.perMin <= 0 {
		g.perMin = defaultRateLimitPerMin
	}
	return g
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodGet, http.MethodDelete:
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		g.reject(w, r, http.StatusMethodNotAllowed, codeMethodInvalid, RejectMethod, "method not allowed")
		return
	}

	provided, ok := bearerToken(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", `Bearer realm="`+authRealm+`"`)
		g.reject(w, r, http.StatusUnauthorized, codeUnauthorized, RejectMissing, "missing bearer token")
		return
	}
	if len(g.token) == 0 || subtle.ConstantTimeCompare([]byte(provided), g.token) != 1 {
		g.reject(w, r, http.StatusForbidden, codeForbidden, RejectForbidden, "invalid bearer token")
		return
	}

	limiter := g.limiter(clientKey(provided, r.RemoteAddr))
	if res := limiter.Reserve(); !res.OK() || res.Delay() > 0 {
		wait := res.Delay()
		res.Cancel()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		g.reject(w, r, http.StatusTooManyRequests, codeRateLimited, RejectRate, "rate limit exceeded")
		return
	}

	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, g.maxBody)
	}
	g.next.ServeHTTP(w, r)
}

func (g *guard) limiter(key string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(g.perMin)), g.perMin)
		g.limiters[key] = l
	}
	return l
}

func (g *guard) reject(w http.ResponseWriter, r *http.Request, status, code int, reason, message string) {
	log.Debug().Str("reason", reason).Str("remote", r.RemoteAddr).Int("status", status).Msg("mcp request refused")
	if g.observer != nil {
		g.observer.MCPRejected(reason)
	}
	writeRPCError(w, status, code, message)
}

func bearerToken(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// clientKey never holds the raw token.
func clientKey(token, remoteAddr string) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(remoteAddr))
	if err != nil {
		host = strings.TrimSpace(remoteAddr)
	}
	if host == "" {
		host = "unknown"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8]) + "|" + host
}

func writeRPCError(w http.ResponseWriter, status, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      nil,
		"error":   map[string]any{"code": code, "message": message},
	})
}
