package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"keydesk/internal/session"
)

// Sign issues a bearer token for a fresh console session. The token lifetime
// matches the session deadline; the gate's countdown remains the enforcement
// the dashboard reacts to.
func Sign(secret string, role session.Role, managerID string, ttl time.Duration) (string, error) {
	sub := "admin"
	if role == session.RoleManager {
		sub = managerID
	}
	claims := jwt.MapClaims{
		"sub":  sub,
		"role": string(role),
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}
	if managerID != "" {
		claims["mgr"] = managerID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Verify(secret, tokenStr string) (Claims, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, errors.New("invalid token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	sub, _ := mapc["sub"].(string)
	role, _ := mapc["role"].(string)
	mgr, _ := mapc["mgr"].(string)
	return Claims{Subject: sub, Role: session.Role(role), ManagerID: mgr}, nil
}
