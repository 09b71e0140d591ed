package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"docvault/internal/domain"
)

var jwtSecret []byte

// Init сохраняет секрет для проверки токенов. Вызывается один раз при старте.
func Init(cfg *Config) {
	jwtSecret = []byte(cfg.JWTSecret)
}

// Identity — подтвержденная личность запроса. Ядро доверяет этим данным
// как есть и не выводит права доступа повторно.
type Identity struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	DimensionID int64  `json:"dimension_id"`
}

// VerifyToken проверяет bearer-токен запроса и возвращает личность вызывающего
func VerifyToken(r *http.Request) (*Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, fmt.Errorf("no authorization header: %w", domain.ErrUnauthorized)
	}

	tokenStr := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}

	identity := &Identity{}
	if sub, ok := claims["sub"].(string); ok {
		identity.UserID = sub
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = role
	}
	if dim, ok := claims["dimension_id"].(float64); ok {
		identity.DimensionID = int64(dim)
	}

	if identity.UserID == "" || identity.DimensionID == 0 {
		return nil, fmt.Errorf("token missing required claims: %w", domain.ErrUnauthorized)
	}

	return identity, nil
}
