// Package players holds player accounts (balance and holdings) and the
// per-login sessions that carry a player's navigation state.
package players

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/Nixend-creator/DynamicEconomy/internal/types"
)

// Account is a player's wallet and goods storage. Every method is atomic.
type Account struct {
	mu       sync.Mutex
	id       string
	balance  float64
	capacity int
	holdings map[string]int
	secret   string // bcrypt hash, empty until the first login
}

// NewAccount creates an empty account.
func NewAccount(id string, balance float64, capacity int) *Account {
	return &Account{
		id:       id,
		balance:  balance,
		capacity: capacity,
		holdings: make(map[string]int),
	}
}

func (a *Account) ID() string {
	return a.id
}

// SecretHash returns the stored login secret hash, empty when unclaimed.
func (a *Account) SecretHash() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.secret
}

// ClaimSecret stores hash if the account has no secret yet. It reports
// whether hash was stored.
func (a *Account) ClaimSecret(hash string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.secret != "" || hash == "" {
		return false
	}
	a.secret = hash
	return true
}

func (a *Account) Balance() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Deposit credits amount; negative amounts are ignored.
func (a *Account) Deposit(amount float64) {
	if amount <= 0 {
		return
	}
	a.mu.Lock()
	a.balance += amount
	a.mu.Unlock()
}

// Withdraw debits amount if the balance covers it.
func (a *Account) Withdraw(amount float64) bool {
	if amount < 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if amount > a.balance {
		return false
	}
	a.balance -= amount
	return true
}

// Count returns how many units of goodKey the account holds.
func (a *Account) Count(goodKey string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holdings[goodKey]
}

func (a *Account) usedLocked() int {
	used := 0
	for _, n := range a.holdings {
		used += n
	}
	return used
}

// FreeSpace returns the number of units that still fit.
func (a *Account) FreeSpace() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return max(0, a.capacity-a.usedLocked())
}

// Add stores n units of goodKey if they all fit.
func (a *Account) Add(goodKey string, n int) bool {
	if n <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.usedLocked()+n > a.capacity {
		return false
	}
	a.holdings[goodKey] += n
	return true
}

// Grant stores n units regardless of capacity. Used for returning withheld
// goods, which must never be lost.
func (a *Account) Grant(goodKey string, n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.holdings[goodKey] += n
	a.mu.Unlock()
}

// Remove takes n units of goodKey if the account holds that many.
func (a *Account) Remove(goodKey string, n int) bool {
	if n <= 0 {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	have := a.holdings[goodKey]
	if have < n {
		return false
	}
	if have == n {
		delete(a.holdings, goodKey)
	} else {
		a.holdings[goodKey] = have - n
	}
	return true
}

// Holding is one line of an account's storage.
type Holding struct {
	GoodKey  string `json:"good_key"`
	Quantity int    `json:"quantity"`
}

// Snapshot is a point-in-time copy of an account.
type Snapshot struct {
	PlayerID  string    `json:"player_id"`
	Balance   float64   `json:"balance"`
	Capacity  int       `json:"capacity"`
	FreeSpace int       `json:"free_space"`
	Holdings  []Holding `json:"holdings"`
}

// Snapshot copies the account, holdings sorted by good key.
func (a *Account) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := Snapshot{
		PlayerID:  a.id,
		Balance:   a.balance,
		Capacity:  a.capacity,
		FreeSpace: max(0, a.capacity-a.usedLocked()),
		Holdings:  make([]Holding, 0, len(a.holdings)),
	}
	for k, n := range a.holdings {
		s.Holdings = append(s.Holdings, Holding{GoodKey: k, Quantity: n})
	}
	sort.Slice(s.Holdings, func(i, j int) bool { return s.Holdings[i].GoodKey < s.Holdings[j].GoodKey })
	return s
}

// State returns the persisted form of the account.
func (a *Account) State() (types.Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	holdings, err := json.Marshal(a.holdings)
	if err != nil {
		return types.Account{}, err
	}
	return types.Account{
		PlayerID:   a.id,
		Balance:    a.balance,
		Capacity:   a.capacity,
		Holdings:   string(holdings),
		SecretHash: a.secret,
	}, nil
}

// accountFromState rebuilds an account from its persisted form. Broken
// holdings decode to an empty storage.
func accountFromState(s types.Account, defaultCapacity int) (*Account, error) {
	capacity := s.Capacity
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	a := NewAccount(s.PlayerID, s.Balance, capacity)
	a.secret = s.SecretHash
	if s.Holdings == "" {
		return a, nil
	}
	if err := json.Unmarshal([]byte(s.Holdings), &a.holdings); err != nil {
		a.holdings = make(map[string]int)
		return a, err
	}
	for k, n := range a.holdings {
		if n <= 0 {
			delete(a.holdings, k)
		}
	}
	return a, nil
}
