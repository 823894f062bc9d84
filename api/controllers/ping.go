package controllers

import (
	"net/http"

	"github.com/teahaven/teahaven-backend/api/responses"
	"github.com/teahaven/teahaven-backend/pkg/logger"
)

// PublicPing is an unauthenticated smoke-test endpoint.
func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"message": "pong"})
	}
}

// PrivatePing echoes the authenticated caller's identity, useful for
// verifying a token end to end.
func PrivatePing(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role, err := actorRole(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"message": "pong",
			"user_id": userID.String(),
			"role":    string(role),
		})
	}
}
