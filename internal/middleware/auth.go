// Package middleware содержит HTTP middleware сервиса передачи пожертвований.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/foodrescue/internal/authz"
	"github.com/mmeshcher/foodrescue/internal/model"
)

const bearerPrefix = "Bearer "

// ErrMissingToken возвращается, если в запросе нет токена идентификации.
var ErrMissingToken = errors.New("missing bearer token")

// Claims: утверждения токена идентификации: subject и роль участника.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware проверяет токен идентификации и помещает участника в контекст запроса.
type AuthMiddleware struct {
	secretKey []byte

	// Unauthorized формирует ответ на запрос без действительного токена.
	Unauthorized func(w http.ResponseWriter, r *http.Request, err error)
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом HS256.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey: []byte(secret),
		Unauthorized: func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		},
	}
}

// Middleware проверяет заголовок Authorization и добавляет участника в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.principalFromRequest(r)
		if err != nil {
			a.Unauthorized(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(authz.WithPrincipal(r.Context(), p)))
	})
}

// IssueToken подписывает токен идентификации для участника.
func (a *AuthMiddleware) IssueToken(subject string, role model.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *AuthMiddleware) principalFromRequest(r *http.Request) (authz.Principal, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return authz.Anonymous, ErrMissingToken
	}

	raw := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if raw == "" {
		return authz.Anonymous, ErrMissingToken
	}

	return a.parseToken(raw)
}

func (a *AuthMiddleware) parseToken(raw string) (authz.Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return a.secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return authz.Anonymous, fmt.Errorf("parse token: %w", err)
	}

	p := authz.Principal{Subject: claims.Subject, Role: model.Role(claims.Role)}
	if err := authz.Authenticate(p); err != nil {
		return authz.Anonymous, err
	}
	return p, nil
}
