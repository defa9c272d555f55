package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hrattendance/internal/org"
)

// Claims is the JWT payload carrying the verified identity tuple.
type Claims struct {
	Role        org.Role `json:"role"`
	CreatedBy   string   `json:"createdBy,omitempty"`
	IsMainAdmin bool     `json:"isMainAdmin"`
	jwt.RegisteredClaims
}

// Identity converts claims to the identity used by the services.
func (c Claims) Identity() org.Identity {
	return org.Identity{ID: c.Subject, Role: c.Role, CreatedBy: c.CreatedBy, IsMainAdmin: c.IsMainAdmin}
}

// Issue signs an access token for ident.
func Issue(ident org.Identity, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Role:        ident.Role,
		CreatedBy:   ident.CreatedBy,
		IsMainAdmin: ident.IsMainAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   ident.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if claims.Subject == "" || claims.Role == "" {
		return Claims{}, errors.New("token missing subject or role")
	}
	return *claims, nil
}
