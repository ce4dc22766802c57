package auth

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/edge-gateway/internal/apierror"
)

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	TokenType string `json:"tokenType"`
}

// TokenHandler serves POST /auth/token, issuing a token for clientID.
func TokenHandler(tokens *TokenManager, clientID string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			apierror.ErrMethodNotAllowed.WriteJSON(w)
			return
		}

		token, _, err := tokens.Issue(clientID)
		if err != nil {
			logger.Error("Failed to issue token", slog.String("error", err.Error()))
			apierror.WriteJSON(w, http.StatusInternalServerError, map[string]string{"message": "Error: " + err.Error()})
			return
		}

		apierror.WriteJSON(w, http.StatusOK, tokenResponse{
			Token:     token,
			ExpiresIn: int(tokens.TTL().Seconds()),
			TokenType: "Bearer",
		})
	}
}
