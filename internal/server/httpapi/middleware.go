package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/vterekhov/recordsync/internal/server/auth"
)

type ctxKey string

// actorKey carries the authenticated actor ID through the request context.
const actorKey ctxKey = "actor"

func actorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey).(string)
	return actor
}

// withAuth validates the bearer token and stores the actor ID in the request
// context. Auth endpoints are left open.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/auth/") {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actorID, err := auth.GetActorIDFromToken(token, s.secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
