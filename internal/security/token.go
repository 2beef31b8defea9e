package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/airportops/assetapi/internal/rbac"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 30 * time.Minute

// TokenTypeBearer is the token_type reported to clients.
const TokenTypeBearer = "bearer"

// TokenConfig is the process-wide signing configuration. It is read once at
// startup and never mutated.
type TokenConfig struct {
	Secret    []byte
	Algorithm string
	TTL       time.Duration
	Issuer    string
}

// Token is an issued access token.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Role     rbac.Role `json:"role"`
	Username string    `json:"username,omitempty"`
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// TokenService issues and validates signed access tokens.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService validates cfg and returns a ready service.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret required", ErrInvalidConfig)
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported signing algorithm %q", ErrInvalidConfig, alg)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: append([]byte(nil), cfg.Secret...),
		method: method,
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	s.parser = jwt.NewParser(parserOpts...)
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the identity, expiring TTL after now.
func (s *TokenService) Issue(id rbac.Identity) (Token, error) {
	if id.PrincipalID <= 0 {
		return Token{}, errors.New("security: issue token: principal id required")
	}
	if !id.Role.Valid() {
		return Token{}, fmt.Errorf("security: issue token: invalid role %q", id.Role)
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.PrincipalID, 10),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Role:     id.Role,
		Username: id.Username,
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("security: sign token: %w", err)
	}
	return Token{AccessToken: signed, TokenType: TokenTypeBearer, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Validate verifies raw and returns the identity it carries. Failures are
// ErrInvalidSignature, ErrExpired or ErrMalformed.
func (s *TokenService) Validate(raw string) (rbac.Identity, error) {
	if raw == "" {
		return rbac.Identity{}, ErrMalformed
	}
	var claims Claims
	token, err := s.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return rbac.Identity{}, classify(err)
	}
	if !token.Valid {
		return rbac.Identity{}, ErrInvalidSignature
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return rbac.Identity{}, fmt.Errorf("%w: subject", ErrMalformed)
	}
	if !claims.Role.Valid() {
		return rbac.Identity{}, fmt.Errorf("%w: role", ErrMalformed)
	}
	identity := rbac.Identity{
		PrincipalID: id,
		Username:    claims.Username,
		Role:        claims.Role,
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time.UTC()
	}
	return identity, nil
}

// classify maps parser errors onto the three reported kinds. Signature and
// algorithm problems win over claim problems because the parser verifies the
// signature before it validates claims.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
