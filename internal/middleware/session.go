package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/RynoXLI/annex/internal/auth"
	"github.com/RynoXLI/annex/internal/session"
)

// SessionConfig configures the Sessions middleware
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Sessions attaches a session to every request. The session ID travels in a
// signed cookie; a missing, tampered or expired cookie starts a new session.
func Sessions(
	store *session.Store,
	signer *auth.Signer,
	cfg SessionConfig,
	logger *slog.Logger,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := lookupSession(r, store, signer, cfg.CookieName, logger)
			if sess == nil {
				sess = store.Create()
			}

			// Reissue on every request so the cookie expiry slides with the store
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CookieName,
				Value:    signer.GenerateToken(sess.ID(), cfg.TTL),
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}

func lookupSession(
	r *http.Request,
	store *session.Store,
	signer *auth.Signer,
	name string,
	logger *slog.Logger,
) *session.Session {
	cookie, err := r.Cookie(name)
	if err != nil {
		return nil
	}
	id, err := signer.VerifyToken(cookie.Value)
	if err != nil {
		logger.DebugContext(r.Context(), "Rejected session cookie", "error", err)
		return nil
	}
	sess, ok := store.Get(id)
	if !ok {
		return nil
	}
	return sess
}
