package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const headerBearer = "Bearer"

var ErrNoIdentity = errors.New("token carries no user identity")

type User struct {
	ID        int64  `json:"id,omitempty"`
	Username  string `json:"username"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
}

type JWTClaims struct {
	Username  string `json:"user_name"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// FromToken reads the user out of a bearer token without verifying its
// signature. The token is only attached to outgoing requests; the server is the
// one that validates it.
func FromToken(token string) (*User, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), headerBearer))
	if token == "" {
		return nil, ErrNoIdentity
	}

	claims := &JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return nil, ErrNoIdentity
	}

	return &User{
		Username:  username,
		Firstname: claims.Firstname,
		Lastname:  claims.Lastname,
		Email:     claims.Email,
	}, nil
}

// AuthorizationHeader formats token as a bearer Authorization value.
func AuthorizationHeader(token string) string {
	if token == "" {
		return ""
	}
	if strings.HasPrefix(token, headerBearer+" ") {
		return token
	}
	return headerBearer + " " + token
}
