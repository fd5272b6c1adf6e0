package auth

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/Nixend-creator/DynamicEconomy/internal/database"
	"github.com/Nixend-creator/DynamicEconomy/internal/players"
)

func newService(t *testing.T) (*Service, *players.Registry) {
	t.Helper()
	registry := players.NewRegistry(config.PlayersConfig{Capacity: 100})
	return NewService("test-secret", "admin-pass", registry), registry
}

func TestLoginOpensSessionAndValidates(t *testing.T) {
	svc, registry := newService(t)

	tok, err := svc.Login(Credentials{PlayerID: "alice", Secret: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tok.Admin {
		t.Fatal("player login granted admin")
	}

	claims, err := svc.ValidateToken(tok.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.PlayerID != "alice" || claims.SessionID != tok.SessionID {
		t.Fatalf("claims = %+v", claims)
	}
	s, ok := registry.Session(tok.SessionID)
	if !ok || s.ID() != "alice" || s.Trusted() {
		t.Fatalf("session = %+v, %v", s, ok)
	}

	svc.Logout(tok.SessionID)
	if _, ok := registry.Session(tok.SessionID); ok {
		t.Fatal("session survived logout")
	}
}

func TestSecretClaimedOnFirstLogin(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Login(Credentials{PlayerID: "bob", Secret: "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(Credentials{PlayerID: "bob", Secret: "two"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.Login(Credentials{PlayerID: "bob", Secret: "one"}); err != nil {
		t.Fatalf("relogin: %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	svc, registry := newService(t)
	tok, err := svc.Login(Credentials{PlayerID: "op", Secret: "admin-pass"})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.ValidateToken(tok.Token)
	if err != nil || !claims.Admin {
		t.Fatalf("claims = %+v err %v", claims, err)
	}
	s, _ := registry.Session(tok.SessionID)
	if !s.Admin || !s.Trusted() {
		t.Fatal("admin session not trusted")
	}
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	svc, _ := newService(t)
	other := NewService("other-secret", "", players.NewRegistry(config.PlayersConfig{}))
	tok, _ := other.Login(Credentials{PlayerID: "eve", Secret: "x"})
	if _, err := svc.ValidateToken(tok.Token); err == nil {
		t.Fatal("token signed with another key accepted")
	}

	mine, _ := svc.Login(Credentials{PlayerID: "alice", Secret: "pw"})
	svc.now = func() time.Time { return time.Now().Add(TokenTTL + time.Minute) }
	if _, err := svc.ValidateToken(mine.Token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestSecretSurvivesRestart(t *testing.T) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close(db)
	accounts := players.NewDatabase(db)

	svc, registry := newService(t)
	if _, err := svc.Login(Credentials{PlayerID: "alice", Secret: "alice-secret"}); err != nil {
		t.Fatal(err)
	}
	registry.Account("alice").Deposit(1000)
	if hash := registry.Account("alice").SecretHash(); hash == "" || hash == "alice-secret" {
		t.Fatalf("stored secret = %q, want a hash", hash)
	}
	if err := registry.Save(accounts); err != nil {
		t.Fatal(err)
	}

	restarted := players.NewRegistry(config.PlayersConfig{Capacity: 100})
	if err := restarted.Load(accounts); err != nil {
		t.Fatal(err)
	}
	svc = NewService("test-secret", "admin-pass", restarted)

	if _, err := svc.Login(Credentials{PlayerID: "alice", Secret: "attacker"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong secret after restart: err = %v", err)
	}
	tok, err := svc.Login(Credentials{PlayerID: "alice", Secret: "alice-secret"})
	if err != nil {
		t.Fatalf("right secret after restart: %v", err)
	}
	s, _ := restarted.Session(tok.SessionID)
	if s.Balance() != 1000 {
		t.Fatalf("balance after restart = %v", s.Balance())
	}
}

func TestStreamLoginMarksSession(t *testing.T) {
	svc, registry := newService(t)
	tok, err := svc.Login(Credentials{PlayerID: "carol", Secret: "pw", Stream: true})
	if err != nil {
		t.Fatal(err)
	}
	s, ok := registry.Session(tok.SessionID)
	if !ok || !s.StreamOnly() || !tok.StreamOnly {
		t.Fatalf("stream login: session %v, response %+v", ok, tok)
	}

	tok, _ = svc.Login(Credentials{PlayerID: "carol", Secret: "pw"})
	if s, _ := registry.Session(tok.SessionID); s.StreamOnly() {
		t.Fatal("regular login marked stream-only")
	}
}
