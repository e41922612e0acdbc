package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceRole роль, которой разрешено запускать обработку автоплатежей
const ServiceRole = "service"

type contextKey string

const subjectKey contextKey = "subject"

// ServiceClaims claims сервисного токена
type ServiceClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ServiceAuthMiddleware проверяет JWT токен, подписанный сервисным ключом, и роль service
func ServiceAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflight-запросы не содержат заголовка Authorization
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// Получаем токен из заголовка
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeError(w, http.StatusUnauthorized, "Authorization header must use the Bearer scheme")
				return
			}

			claims, err := ParseServiceToken(secret, tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			if claims.Role != ServiceRole {
				writeError(w, http.StatusForbidden, "Service role required")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ParseServiceToken проверяет подпись HS256 и срок действия токена
func ParseServiceToken(secret []byte, tokenString string) (*ServiceClaims, error) {
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IssueServiceToken выпускает токен для вызова API планировщиком
func IssueServiceToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := ServiceClaims{
		Role: ServiceRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// SubjectFromContext возвращает subject проверенного токена
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok
}
