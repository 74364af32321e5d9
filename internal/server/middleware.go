package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/hackutd/harp-sub000/internal/config"
)

type ctxKey int

const adminCtxKey ctxKey = iota

// requireAdmin resolves the bearer token against the current allowlist.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.unauthorizedResponse(w, r, errors.New("missing bearer token"))
			return
		}
		admin, ok := s.configs.Config().AdminByToken(token)
		if !ok {
			s.unauthorizedResponse(w, r, errors.New("unknown token"))
			return
		}
		ctx := context.WithValue(r.Context(), adminCtxKey, admin)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func adminFromContext(ctx context.Context) config.Admin {
	admin, _ := ctx.Value(adminCtxKey).(config.Admin)
	return admin
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
