package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/RynoXLI/annex/internal/session"
)

// errBadSubject is returned when a token subject is not a user ID
var errBadSubject = errors.New("token subject is not a user id")

// BearerAuth verifies an optional "Authorization: Bearer" JWT and attaches its
// subject as the authenticated user of the request session. Requests without
// the header pass through anonymously; an invalid token is rejected with 401.
//
// Must run after Sessions.
func BearerAuth(secret, issuer string, logger *slog.Logger) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				http.Error(w, "Unsupported authorization scheme", http.StatusUnauthorized)
				return
			}

			userID, err := verifySubject(parser, key, strings.TrimSpace(raw))
			if err != nil {
				logger.InfoContext(r.Context(), "Rejected bearer token", "error", err)
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			if sess, ok := session.FromContext(r.Context()); ok {
				sess.SetUserID(userID)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func verifySubject(parser *jwt.Parser, key []byte, raw string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(claims.Subject, 10, 32); err != nil {
		return "", errBadSubject
	}
	return claims.Subject, nil
}
