package backend

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims — claims access-токена бэкенда, которые нам нужны.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenExpiry читает exp без проверки подписи. Подпись проверяет сам бэкенд.
func TokenExpiry(token string) (time.Time, error) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("в токене нет exp")
	}
	return claims.ExpiresAt.Time, nil
}

// VerifyToken проверяет подпись HS256 и срок действия локально, до похода в сеть.
// С пустым секретом проверка не выполняется и возвращается nil, nil.
func VerifyToken(token, secret string) (*AccessClaims, error) {
	if secret == "" {
		return nil, nil
	}
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}
