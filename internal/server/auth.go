package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type teamSession struct {
	TeamID string
	GameID string
}

var errNoSession = errors.New("no valid session")

type teamClaims struct {
	GameID string `json:"gid"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 team tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (ti *TokenIssuer) Issue(teamID, gameID string) (string, time.Time, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)
	claims := teamClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   teamID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing team token: %w", err)
	}
	return signed, exp, nil
}

func (ti *TokenIssuer) Parse(token string) (teamSession, error) {
	var claims teamClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return ti.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(ti.now))
	if err != nil || claims.Subject == "" || claims.GameID == "" {
		return teamSession{}, errNoSession
	}
	return teamSession{TeamID: claims.Subject, GameID: claims.GameID}, nil
}

func teamFromRequest(r *http.Request, tokens *TokenIssuer) (teamSession, error) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return teamSession{}, errNoSession
	}
	return tokens.Parse(token)
}
