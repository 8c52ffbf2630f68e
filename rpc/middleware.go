package rpc

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"learnchain/observability"
)

const (
	requestIDHeader = "X-Request-Id"
	visitorTTL      = 5 * time.Minute

	// ScopeFaucet authorises node_faucet.
	ScopeFaucet = "faucet"
	// ScopeEvents authorises indexer_listEvents.
	ScopeEvents = "events"
)

type contextKey string

const ctxKeyRequestID contextKey = "rpc.request_id"

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, id)))
	})
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// maxForwardedForAddrs bounds the X-Forwarded-For chain inspected per request.
const maxForwardedForAddrs = 16

// rateLimiter applies a token bucket per client address. X-Forwarded-For is
// honoured only when the direct peer is a trusted proxy.
type rateLimiter struct {
	perSecond rate.Limit
	burst     int
	trusted   []*net.IPNet

	mu       sync.Mutex
	visitors map[string]*visitor
	nowFn    func() time.Time
}

func newRateLimiter(requestsPerMinute, burst int, trustedProxies []string) *rateLimiter {
	perSecond := float64(requestsPerMinute) / 60.0
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		trusted:   parseTrustedProxies(trustedProxies),
		visitors:  make(map[string]*visitor),
		nowFn:     time.Now,
	}
}

// parseTrustedProxies accepts bare IPs and CIDR ranges; invalid entries are
// skipped (config validation rejects them first).
func parseTrustedProxies(entries []string) []*net.IPNet {
	var out []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(entry); err == nil {
			out = append(out, network)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			continue
		}
		bits := 8 * net.IPv6len
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 8*net.IPv4len
		}
		out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return out
}

func (l *rateLimiter) allow(id string) bool {
	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
		}
	}
	v, ok := l.visitors[id]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[id] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(l.clientSource(r)) {
			observability.ModuleMetrics().RecordThrottle("rpc", "rate_limit")
			w.Header().Set("Content-Type", "application/json")
			writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *rateLimiter) isTrusted(ip net.IP) bool {
	for _, network := range l.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// clientSource identifies the caller for rate limiting: the direct peer, or
// the first forwarded address when that peer is a trusted proxy.
func (l *rateLimiter) clientSource(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	peerIP := net.ParseIP(peer)
	if peerIP == nil || !l.isTrusted(peerIP) {
		return peer
	}
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return peer
	}
	parts := strings.Split(forwarded, ",")
	if len(parts) > maxForwardedForAddrs {
		return peer
	}
	for _, part := range parts {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		if ip := net.ParseIP(remoteHost(candidate)); ip != nil {
			return ip.String()
		}
		return peer
	}
	return peer
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return strings.Trim(addr, "[]")
	}
	return host
}

// operatorAuth verifies HS256 operator bearer tokens.
type operatorAuth struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func newOperatorAuth(secret, issuer string) *operatorAuth {
	return &operatorAuth{
		secret: []byte(strings.TrimSpace(secret)),
		issuer: strings.TrimSpace(issuer),
		leeway: 2 * time.Minute,
	}
}

var (
	errAuthDisabled = errors.New("operator authentication not configured")
	errMissingToken = errors.New("missing bearer token")
	errBadScope     = errors.New("insufficient scope")
)

func (a *operatorAuth) authorize(r *http.Request, scope string) error {
	if a == nil || len(a.secret) == 0 {
		return errAuthDisabled
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return errMissingToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return errMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(a.leeway),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...); err != nil {
		return err
	}
	if !hasScope(claims["scope"], scope) {
		return errBadScope
	}
	return nil
}

func hasScope(raw interface{}, scope string) bool {
	switch v := raw.(type) {
	case string:
		for _, s := range strings.Fields(v) {
			if s == scope {
				return true
			}
		}
	case []interface{}:
		for _, entry := range v {
			if s, ok := entry.(string); ok && s == scope {
				return true
			}
		}
	}
	return false
}

// IssueOperatorToken mints a token carrying scopes, valid for ttl.
func IssueOperatorToken(secret, issuer string, ttl time.Duration, scopes ...string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errAuthDisabled
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"scope": strings.Join(scopes, " "),
	}
	if issuer = strings.TrimSpace(issuer); issuer != "" {
		claims["iss"] = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(secret)))
}
