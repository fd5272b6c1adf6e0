package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/players"
	"github.com/Nixend-creator/DynamicEconomy/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid player credentials")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

// TokenTTL is how long a token and its session stay valid.
const TokenTTL = 24 * time.Hour

// Credentials identify a player. The secret is claimed by the first login of
// a player id and stored hashed on the account; later logins must repeat it.
// Stream marks the session as stream-only: it closes when the client's
// announcement stream disconnects.
type Credentials struct {
	PlayerID string `json:"player_id" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
	Stream   bool   `json:"stream"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	Token      string    `json:"jwt_token"`
	SessionID  string    `json:"session_id"`
	Admin      bool      `json:"admin"`
	StreamOnly bool      `json:"stream_only"`
	Expiration time.Time `json:"expiration"`
}

// Claims represents the JWT claims structure
type Claims struct {
	jwt.RegisteredClaims
	PlayerID  string `json:"player_id"`
	SessionID string `json:"session_id"`
	Admin     bool   `json:"admin"`
}

// Sessions opens and closes player sessions and owns the accounts that
// carry login secrets.
type Sessions interface {
	Account(playerID string) *players.Account
	Open(playerID string, trusted, admin bool, ttl time.Duration) *players.Session
	Close(sessionID string)
}

// Service handles authentication and session issuance.
type Service struct {
	jwtSecret   []byte
	adminSecret string
	sessions    Sessions
	now         func() time.Time
}

// NewService creates an auth service. An empty adminSecret disables admin
// logins.
func NewService(jwtSecret, adminSecret string, sessions Sessions) *Service {
	return &Service{
		jwtSecret:   []byte(jwtSecret),
		adminSecret: adminSecret,
		sessions:    sessions,
		now:         time.Now,
	}
}

// Login verifies creds, opens a session and returns a token bound to it.
// Admins authenticate with the admin secret and trade as trusted players.
func (s *Service) Login(creds Credentials) (*TokenResponse, error) {
	admin := s.adminSecret != "" && subtle.ConstantTimeCompare([]byte(creds.Secret), []byte(s.adminSecret)) == 1
	if !admin && !s.validateCredentials(creds) {
		return nil, ErrInvalidCredentials
	}

	session := s.sessions.Open(creds.PlayerID, admin, admin, TokenTTL)
	session.SetStreamOnly(creds.Stream)

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   creds.PlayerID,
			ID:        session.SessionID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
		PlayerID:  creds.PlayerID,
		SessionID: session.SessionID,
		Admin:     admin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.sessions.Close(session.SessionID)
		return nil, ErrTokenGeneration
	}

	return &TokenResponse{
		Token:      tokenString,
		SessionID:  session.SessionID,
		Admin:      admin,
		StreamOnly: creds.Stream,
		Expiration: session.ExpiresAt,
	}, nil
}

// Logout closes the session behind a token.
func (s *Service) Logout(sessionID string) {
	s.sessions.Close(sessionID)
}

// ValidateToken validates a JWT token and returns the claims
// Verifies token signature and expiration
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.PlayerID != "" && claims.SessionID != "" {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// validateCredentials checks the secret against the account's stored hash,
// or claims the secret for an account that has none. A concurrent first
// login that loses the claim is checked against the winner's hash.
func (s *Service) validateCredentials(creds Credentials) bool {
	if creds.PlayerID == "" || creds.Secret == "" {
		return false
	}
	account := s.sessions.Account(creds.PlayerID)
	if account.SecretHash() == "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(creds.Secret), bcrypt.DefaultCost)
		if err != nil {
			log.Warn().Err(err).Str("service", "auth").Str("player_id", creds.PlayerID).Msg("cannot hash secret")
			return false
		}
		if account.ClaimSecret(string(hash)) {
			return true
		}
	}
	return bcrypt.CompareHashAndPassword([]byte(account.SecretHash()), []byte(creds.Secret)) == nil
}

// GinHandlers contains HTTP handlers for authentication endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GenerateTokenHandler handles POST requests to log in and obtain a token
func (h *GinHandlers) GenerateTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var creds Credentials
		if err := c.ShouldBindJSON(&creds); err != nil {
			response.BadRequest(c, "Invalid request body")
			return
		}

		token, err := h.service.Login(creds)
		if errors.Is(err, ErrInvalidCredentials) {
			log.Warn().Str("service", "auth").Str("player_id", creds.PlayerID).Msg("rejected login")
			response.Unauthorized(c, err.Error())
			return
		}
		response.Handle(c, token, err)
	}
}

// LogoutHandler closes the caller's session. It runs behind JWT auth, which
// puts the session id in the context.
func (h *GinHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetString("sessionID")
		if sessionID == "" {
			response.Unauthorized(c, "Missing session")
			return
		}
		h.service.Logout(sessionID)
		response.Success(c, gin.H{"session_id": sessionID, "closed": true})
	}
}
