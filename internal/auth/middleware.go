package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/angeloszaimis/edge-gateway/internal/apierror"
	"github.com/angeloszaimis/edge-gateway/pkg/pathutil"
)

const bearerPrefix = "bearer "

type claimsKey struct{}

// Middleware requires a valid bearer token on every path under one of the
// protected prefixes. Other paths pass through.
func Middleware(tokens *TokenManager, prefixes []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pathutil.LongestMatch(r.URL.Path, prefixes) < 0 {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				apierror.Unauthorized("Authorization header required").WriteJSON(w)
				return
			}

			if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
				apierror.Unauthorized("Bearer token required").WriteJSON(w)
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(header[len(bearerPrefix):]))
			if err != nil {
				logger.Info("Rejected bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				apierror.Unauthorized(rejectionMessage(err)).WriteJSON(w)
				return
			}

			logger.Debug("Bearer token accepted", slog.String("client_id", claims.ClientID))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "Invalid token signature"
	default:
		return "Invalid token: " + err.Error()
	}
}
