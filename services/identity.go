package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Dosada05/pong-arena/game"
)

const (
	jwtClaimUserID = "user_id"
	jwtClaimAlias  = "alias"
)

// IdentityResolver turns an incoming request into a stable identity. A valid
// bearer token yields a user identity keyed "user:<id>"; anyone else plays as
// a guest keyed "guest:<alias>", with the alias taken from the request or
// generated. The key is what makes reconnection work: the same person
// resolves to the same key on every connection.
type IdentityResolver struct {
	secret []byte
}

func NewIdentityResolver(jwtSecret string) *IdentityResolver {
	return &IdentityResolver{secret: []byte(jwtSecret)}
}

// Resolve inspects the Authorization header (or, for websocket clients that
// cannot set headers, the token query parameter) and falls back to a guest
// identity. An invalid token is an error, not a silent guest downgrade.
func (r *IdentityResolver) Resolve(req *http.Request) (game.Identity, error) {
	token := bearerToken(req)
	if token != "" {
		return r.FromToken(token)
	}

	alias := strings.TrimSpace(req.URL.Query().Get("guest"))
	if alias == "" {
		alias = "guest-" + uuid.NewString()[:8]
	}
	return game.Identity{Key: "guest:" + alias, Alias: alias}, nil
}

// FromToken validates a signed token and builds the user identity from its
// claims.
func (r *IdentityResolver) FromToken(tokenString string) (game.Identity, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid {
		return game.Identity{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return game.Identity{}, fmt.Errorf("%w: unexpected claims type", ErrAuthenticationFailed)
	}

	userID, err := userIDFromClaims(claims)
	if err != nil {
		return game.Identity{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	identity := game.Identity{
		Key:    fmt.Sprintf("user:%d", userID),
		UserID: &userID,
	}
	if alias, ok := claims[jwtClaimAlias].(string); ok {
		identity.Alias = alias
	}
	return identity, nil
}

func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	raw, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing %q claim", jwtClaimUserID)
	}
	asFloat, ok := raw.(float64)
	if !ok || asFloat != float64(int(asFloat)) {
		return 0, fmt.Errorf("invalid %q claim: %v", jwtClaimUserID, raw)
	}
	userID := int(asFloat)
	if userID <= 0 {
		return 0, errors.New("user id must be positive")
	}
	return userID, nil
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return req.URL.Query().Get("token")
}
