package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/auth"
	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/players"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *auth.Service, *players.Registry) {
	t.Helper()
	registry := players.NewRegistry(config.PlayersConfig{Capacity: 10})
	svc := auth.NewService("secret", "admin", registry)

	r := gin.New()
	api := r.Group("/api/v1", JWTAuth(svc, registry))
	api.GET("/whoami", func(c *gin.Context) {
		s, _ := SessionFrom(c)
		c.String(http.StatusOK, s.ID())
	})
	api.GET("/admin/info", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r, svc, registry
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthResolvesSession(t *testing.T) {
	r, svc, registry := newRouter(t)

	if w := get(r, "/api/v1/whoami", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", w.Code)
	}
	if w := get(r, "/api/v1/whoami", "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", w.Code)
	}

	tok, _ := svc.Login(auth.Credentials{PlayerID: "alice", Secret: "pw"})
	w := get(r, "/api/v1/whoami", tok.Token)
	if w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Fatalf("whoami: %d %q", w.Code, w.Body.String())
	}

	w = get(r, "/api/v1/whoami?token="+tok.Token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("query token: %d", w.Code)
	}

	registry.Close(tok.SessionID)
	if w := get(r, "/api/v1/whoami", tok.Token); w.Code != http.StatusUnauthorized {
		t.Fatalf("closed session: %d", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	r, svc, _ := newRouter(t)

	player, _ := svc.Login(auth.Credentials{PlayerID: "alice", Secret: "pw"})
	if w := get(r, "/api/v1/admin/info", player.Token); w.Code != http.StatusForbidden {
		t.Fatalf("player on admin route: %d", w.Code)
	}
	admin, _ := svc.Login(auth.Credentials{PlayerID: "op", Secret: "admin"})
	if w := get(r, "/api/v1/admin/info", admin.Token); w.Code != http.StatusNoContent {
		t.Fatalf("admin: %d", w.Code)
	}
}

func TestRateLimitPerRoute(t *testing.T) {
	rl := NewRateLimiter()
	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/api/v1/auth/token", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusOK || codes[4] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	rl.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	if n := rl.prune(3 * time.Minute); n != 1 {
		t.Fatalf("pruned %d visitors", n)
	}
}
