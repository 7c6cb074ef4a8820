package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"todoTracker/internal/auth"
	"todoTracker/internal/logger"

	"go.uber.org/zap"
)

type AccessTokenValidator interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// Auth пропускает запрос только с действительным Bearer access токеном
// и кладёт id пользователя в контекст.
func Auth(validator AccessTokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				writeJSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "требуется заголовок Authorization: Bearer <token>", nil)
				return
			}

			claims, err := validator.ValidateAccessToken(strings.TrimSpace(token))
			if err != nil {
				message := "недействительный токен"
				if errors.Is(err, auth.ErrExpiredToken) {
					message = "срок действия токена истёк"
				}
				logger.Warn("HTTP: Отклонён токен",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				writeJSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				writeJSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "недействительный токен", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok && id > 0
}
