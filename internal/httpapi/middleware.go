package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"questboard/internal/auth"
	"questboard/internal/session"
)

type sessionKey struct{}

// sessionState carries the request's session; discard skips the write-back
// after the handler, e.g. on logout.
type sessionState struct {
	sess    *session.Session
	discard bool
}

func withSession(ctx context.Context, state *sessionState) context.Context {
	return context.WithValue(ctx, sessionKey{}, state)
}

func sessionFromContext(ctx context.Context) *session.Session {
	if state, ok := ctx.Value(sessionKey{}).(*sessionState); ok {
		return state.sess
	}
	return nil
}

func discardSession(ctx context.Context) {
	if state, ok := ctx.Value(sessionKey{}).(*sessionState); ok {
		state.discard = true
	}
}

// authMiddleware resolves the bearer token to a stored session and saves the
// session back once the handler returns.
func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.TokenFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing token")
			return
		}
		claims, err := a.Auth.ParseToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}

		sess, err := a.Sessions.Get(r.Context(), claims.SessionID)
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired")
			return
		case err != nil:
			log.Printf("load session %s: %v", claims.SessionID, err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Internal error")
			return
		}
		if !sess.LoggedIn() || sess.Email != claims.Email {
			writeError(w, http.StatusUnauthorized, "SESSION_EXPIRED", "Session expired")
			return
		}

		state := &sessionState{sess: sess}
		ctx := auth.WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(withSession(ctx, state)))

		if !state.discard {
			if err := a.Sessions.Save(context.WithoutCancel(r.Context()), sess); err != nil {
				log.Printf("save session %s: %v", sess.ID, err)
			}
		}
	})
}
