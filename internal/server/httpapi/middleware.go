package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ktb-community/community-be-main/internal/logging"
	"github.com/ktb-community/community-be-main/internal/server/auth"
	"github.com/ktb-community/community-be-main/internal/server/sessions"
)

type contextKey string

const contextPrincipalKey contextKey = "principal"

// SessionCookieName is the cookie carrying the session id in session mode.
const SessionCookieName = "session_id"

// Principal is the authenticated caller, placed into the request context by
// whichever auth middleware the process runs. SessionID is set in session
// mode only.
type Principal struct {
	UserID    int64
	Email     string
	Nickname  string
	Role      string
	SessionID string
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextPrincipalKey).(Principal)
	return p, ok
}

func withPrincipal(r *http.Request, p Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), contextPrincipalKey, p))
}

// BearerAuth authenticates requests by the Authorization header. The token
// must use the Bearer scheme and verify against the access codec; anything
// else is 401 with no further detail.
func BearerAuth(codec *auth.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			claims, err := codec.Verify(strings.TrimSpace(token))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, withPrincipal(r, Principal{
				UserID:   claims.UserID,
				Email:    claims.Email,
				Nickname: claims.Nickname,
				Role:     claims.Role,
			}))
		})
	}
}

// SessionAuth authenticates requests by the session cookie. Expiry is lazy:
// an expired session is destroyed on first sight, the cookie cleared, and
// the request rejected. Destroying is idempotent, so two racing requests on
// the same dead session both get a clean 401.
func SessionAuth(store sessions.Store, logger logging.Logger) func(http.Handler) http.Handler {
	log := logger.With("module", "session_auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			session, err := store.Get(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if session.Expired(time.Now()) {
				if err := store.Destroy(r.Context(), session.ID); err != nil {
					log.Warn(r.Context(), "destroying expired session", "error", err)
				}
				clearSessionCookie(w)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, withPrincipal(r, Principal{
				UserID:    session.UserID,
				Email:     session.Email,
				Nickname:  session.Nickname,
				Role:      session.Role,
				SessionID: session.ID,
			}))
		})
	}
}

func setSessionCookie(w http.ResponseWriter, id string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
