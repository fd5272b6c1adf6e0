package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/auth"
	"github.com/Nixend-creator/DynamicEconomy/internal/players"
	"github.com/Nixend-creator/DynamicEconomy/pkg/response"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const sessionKey = "session"

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limits per route family. Zero means unlimited.
var (
	authLimit   = rate.Limit(10.0 / 60.0)  // 10 requests per minute
	tradeLimit  = rate.Limit(120.0 / 60.0) // 120 requests per minute
	browseLimit = rate.Limit(600.0 / 60.0) // 600 requests per minute
)

// RateLimiter keeps one token bucket per caller and route.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func limitFor(method, path string) (rate.Limit, int) {
	switch {
	case strings.HasPrefix(path, "/api/v1/auth"):
		return authLimit, 3
	case strings.HasPrefix(path, "/api/v1/admin"):
		return rate.Inf, 1
	case method != "GET" && (strings.HasPrefix(path, "/api/v1/market") || strings.HasPrefix(path, "/api/v1/auction")):
		return tradeLimit, 5
	case strings.HasPrefix(path, "/api/v1"):
		return browseLimit, 20
	default:
		return rate.Inf, 1
	}
}

func (rl *RateLimiter) getLimiter(method, path, clientID string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := clientID + ":" + method + ":" + path
	v, exists := rl.visitors[key]
	if !exists {
		limit, burst := limitFor(method, path)
		v = &visitor{limiter: rate.NewLimiter(limit, burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Cleanup drops idle visitors every minute until ctx is cancelled.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune(3 * time.Minute)
		}
	}
}

func (rl *RateLimiter) prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	n := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(rl.visitors, key)
			n++
		}
	}
	return n
}

// Middleware limits by player id once authenticated, by client IP before.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetString("playerID")
		if clientID == "" {
			clientID = c.ClientIP()
		}

		limiter := rl.getLimiter(c.Request.Method, c.FullPath(), clientID)
		if !limiter.Allow() {
			response.TooManyRequests(c, "Rate limit exceeded. Please try again later.")
			c.Abort()
			return
		}

		c.Next()
	}
}

// bearerToken reads the token from the Authorization header, falling back to
// the token query parameter for WebSocket upgrades.
func bearerToken(c *gin.Context) string {
	parts := strings.Split(c.GetHeader("Authorization"), " ")
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return c.Query("token")
}

// JWTAuth validates the token and resolves its session. Requests whose
// session has ended are rejected even when the token itself is still valid.
func JWTAuth(svc *auth.Service, registry *players.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Unauthorized(c, "Invalid authorization header")
			c.Abort()
			return
		}

		claims, err := svc.ValidateToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "Invalid token")
			c.Abort()
			return
		}

		session, ok := registry.Session(claims.SessionID)
		if !ok || session.ID() != claims.PlayerID {
			response.Unauthorized(c, "Session expired")
			c.Abort()
			return
		}

		c.Set("claims", claims)
		c.Set("playerID", claims.PlayerID)
		c.Set("sessionID", claims.SessionID)
		c.Set(sessionKey, session)
		c.Next()
	}
}

// RequireAdmin rejects sessions without the admin flag.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok || !session.Admin {
			response.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionFrom returns the session resolved by JWTAuth.
func SessionFrom(c *gin.Context) (*players.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*players.Session)
	return s, ok
}

// WithSession stores a session on the context as JWTAuth would.
func WithSession(c *gin.Context, s *players.Session) {
	c.Set("playerID", s.ID())
	c.Set("sessionID", s.SessionID)
	c.Set(sessionKey, s)
}
