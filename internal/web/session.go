package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/datadash/internal/logging"
	"github.com/JonMunkholm/datadash/internal/session"
)

type ctxKey int

const sessionCtxKey ctxKey = iota

type sessionCtx struct {
	sess  *session.Session
	fresh bool // created by this request
}

// withSession resolves the browser session from its cookie, minting a new
// one when the cookie is absent or names an expired session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.opts.Session.CookieName); err == nil {
			id = c.Value
		}
		sess, created := s.sessions.GetOrCreate(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     s.opts.Session.CookieName,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.opts.Session.Secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), sessionCtxKey, sessionCtx{sess: sess, fresh: created})
		ctx = logging.WithSession(ctx, sess.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom returns the request's session. Handlers behind withSession
// always have one.
func sessionFrom(r *http.Request) *session.Session {
	sc, _ := r.Context().Value(sessionCtxKey).(sessionCtx)
	return sc.sess
}

// freshSession reports whether the session was created by this request.
func freshSession(r *http.Request) bool {
	sc, _ := r.Context().Value(sessionCtxKey).(sessionCtx)
	return sc.fresh
}
