package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// Headers set by the authenticating proxy in front of the API
const (
	HeaderUserID   = "X-User-ID"
	HeaderChurchID = "X-Church-ID"
	HeaderUserRole = "X-User-Role"
)

// RequestLogger writes one access log line per request
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(started)),
					zap.String("request_id", chimiddleware.GetReqID(r.Context())),
					zap.String("remote_addr", r.RemoteAddr),
				}
				if status >= http.StatusInternalServerError {
					logger.Warn("Request failed", fields...)
				} else {
					logger.Info("Request", fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// actorFrom reads the caller's identity. Missing headers produce an actor that
// Authorize rejects.
func actorFrom(r *http.Request) model.Actor {
	return model.Actor{
		UserID:   r.Header.Get(HeaderUserID),
		ChurchID: r.Header.Get(HeaderChurchID),
		Role:     model.ManagerRole(r.Header.Get(HeaderUserRole)),
	}
}
