package players

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Navigation is where a session currently is in the market browser.
type Navigation struct {
	Category    string `json:"category,omitempty"`
	Page        int    `json:"page"`
	SellMode    string `json:"sell_mode,omitempty"` // ONE, STACK, ALL
	AuctionPage int    `json:"auction_page"`
	AuctionMine bool   `json:"auction_mine"`
}

// Session is one login of a player. It is the context object passed into
// market calls; the embedded account supplies balance and holdings.
type Session struct {
	*Account
	SessionID string
	Admin     bool
	CreatedAt time.Time
	ExpiresAt time.Time

	trusted    bool
	streamOnly atomic.Bool
	navMu      sync.Mutex
	nav        Navigation
}

// Trusted reports whether the session bypasses the sell cooldown.
func (s *Session) Trusted() bool {
	return s.trusted
}

// StreamOnly reports whether the session ends when its announcement stream
// disconnects.
func (s *Session) StreamOnly() bool {
	return s.streamOnly.Load()
}

func (s *Session) SetStreamOnly(v bool) {
	s.streamOnly.Store(v)
}

func (s *Session) Navigation() Navigation {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	return s.nav
}

func (s *Session) SetNavigation(n Navigation) {
	s.navMu.Lock()
	s.nav = n
	s.navMu.Unlock()
}

// Registry owns every known account and the open sessions.
type Registry struct {
	mu       sync.RWMutex
	cfg      config.PlayersConfig
	accounts map[string]*Account
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg config.PlayersConfig) *Registry {
	return &Registry{
		cfg:      cfg,
		accounts: make(map[string]*Account),
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Account returns the account for playerID, creating it on first use.
func (r *Registry) Account(playerID string) *Account {
	r.mu.RLock()
	a, ok := r.accounts[playerID]
	r.mu.RUnlock()
	if ok {
		return a
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[playerID]; ok {
		return a
	}
	a = NewAccount(playerID, r.cfg.StartingBalance, r.cfg.Capacity)
	r.accounts[playerID] = a
	log.Debug().Str("service", "players").Str("player_id", playerID).Msg("account created")
	return a
}

// Lookup returns an existing account without creating one.
func (r *Registry) Lookup(playerID string) (*Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[playerID]
	return a, ok
}

// Accounts returns every account ordered by player id.
func (r *Registry) Accounts() []*Account {
	r.mu.RLock()
	out := make([]*Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Open starts a session for playerID that lasts ttl.
func (r *Registry) Open(playerID string, trusted, admin bool, ttl time.Duration) *Session {
	account := r.Account(playerID)
	now := r.now()
	s := &Session{
		Account:   account,
		SessionID: "SES_" + uuid.New().String(),
		Admin:     admin,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		trusted:   trusted,
	}

	r.mu.Lock()
	r.sessions[s.SessionID] = s
	r.mu.Unlock()

	log.Info().
		Str("service", "players").
		Str("player_id", playerID).
		Str("session_id", s.SessionID).
		Bool("admin", admin).
		Msg("session opened")
	return s
}

// Session returns a live session. Expired sessions are closed on access.
func (r *Registry) Session(sessionID string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !r.now().Before(s.ExpiresAt) {
		r.Close(sessionID)
		return nil, false
	}
	return s, true
}

// Close ends a session. Closing an unknown session is a no-op.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if ok {
		log.Info().Str("service", "players").Str("player_id", s.ID()).Str("session_id", sessionID).Msg("session closed")
	}
}

// Connected returns the accounts of players with at least one live session,
// each once, ordered by player id.
func (r *Registry) Connected() []*Account {
	now := r.now()
	r.mu.RLock()
	seen := make(map[string]*Account)
	for _, s := range r.sessions {
		if now.Before(s.ExpiresAt) {
			seen[s.ID()] = s.Account
		}
	}
	r.mu.RUnlock()

	out := make([]*Account, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// SweepSessions drops every expired session and returns how many went.
func (r *Registry) SweepSessions() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Configure swaps the defaults applied to new accounts.
func (r *Registry) Configure(cfg config.PlayersConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}
