// internal/utils/jwt.go
package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

var (
	ErrTokenIssuer  = errors.New("unexpected token issuer")
	ErrTokenSubject = errors.New("token subject is not a user id")
)

// JWTClaims are issued by the account service; this backend only verifies them.
// Older tokens carry the id only in "sub".
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type jwtSettings struct {
	secret []byte
	issuer string
}

var (
	jwtMu  sync.RWMutex
	jwtCfg = jwtSettings{secret: []byte("your-secret-key-change-in-production")}
	parser = jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
)

func SetJWTConfig(secret, issuer string) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtCfg = jwtSettings{secret: []byte(secret), issuer: issuer}
}

func currentJWTSettings() jwtSettings {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return jwtCfg
}

// GenerateJWT signs a token the way the account service does. Used by tests
// and local tooling.
func GenerateJWT(userID uuid.UUID, username string, ttl time.Duration) (string, error) {
	cfg := currentJWTSettings()
	now := time.Now()
	claims := JWTClaims{
		UserID:   userID.String(),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    cfg.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.secret)
}

func ValidateJWT(tokenString string) (*JWTClaims, error) {
	cfg := currentJWTSettings()
	claims := &JWTClaims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if cfg.issuer != "" && !claims.VerifyIssuer(cfg.issuer, true) {
		return nil, ErrTokenIssuer
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrTokenSubject
	}
	return claims, nil
}
