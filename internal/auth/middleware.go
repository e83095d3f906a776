package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"ProductManager/pkg/kit"
)

type ctxKey string

const subjectKey ctxKey = "subject"

func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(subjectKey).(string)
	return s, ok
}

// RequireToken rejects requests without a valid write token. A nil maker
// lets every request through.
func RequireToken(tm *TokenMaker, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		if tm == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing token", nil)
				return
			}

			claims, err := tm.Parse(raw)
			if err != nil || claims.Subject == "" {
				log.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid token", nil)
				return
			}
			if claims.Scope != ScopeWrite {
				kit.WriteError(w, r, http.StatusForbidden, "insufficient scope", nil)
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
