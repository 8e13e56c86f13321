package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/onnwee/gratitude/internal/auth"
)

// ViewerResolver maps a bearer token to the viewer it identifies.
// *auth.JWTService satisfies it.
type ViewerResolver interface {
	ViewerID(token string) (string, error)
}

// Auth resolves an optional "Authorization: Bearer <token>" header into a
// viewer id, stored with SetUserID. Requests without the header continue
// anonymously; a header that is present but unusable is rejected with 401
// so a client never silently gets a logged-out feed. metrics may be nil.
func Auth(resolver ViewerResolver, metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				rejectAuth(w, r, metrics, "malformed_header", "Authorization header must be a Bearer token")
				return
			}

			viewerID, err := resolver.ViewerID(token)
			if err != nil {
				reason, message := authFailure(err)
				rejectAuth(w, r, metrics, reason, message)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), viewerID)))
		})
	}
}

// bearerToken extracts the token from a Bearer authorization header.
// The scheme is case-insensitive (RFC 7235).
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func authFailure(err error) (reason, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired", "Token has expired"
	case errors.Is(err, auth.ErrWrongTokenType):
		return "wrong_type", "Access token required"
	case errors.Is(err, auth.ErrMissingSubject):
		return "missing_subject", "Token does not identify a viewer"
	default:
		return "invalid", "Invalid token"
	}
}

func rejectAuth(w http.ResponseWriter, r *http.Request, metrics *Metrics, reason, message string) {
	metrics.IncAuthFailures(reason)
	SetErrorCode(r.Context(), "auth_failed")
	w.Header().Set("WWW-Authenticate", `Bearer realm="feed"`)
	writeError(w, http.StatusUnauthorized, "auth_failed", message)
}
