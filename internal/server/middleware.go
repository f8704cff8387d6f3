package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/sdc/pkg/constants"
	"github.com/inferloop/sdc/pkg/errors"
)

type ctxKey struct{}

// Fixed response headers, applied in order
var (
	corsHeaders = [][2]string{
		{"Access-Control-Allow-Origin", "*"},
		{"Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS"},
		{"Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, " + constants.HeaderRequestID},
		{"Access-Control-Expose-Headers", constants.HeaderRequestID + ", Content-Disposition"},
		{"Access-Control-Max-Age", "3600"},
	}

	hardeningHeaders = [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Content-Security-Policy", "default-src 'none'"},
		{constants.HeaderCacheControl, "no-store"},
	}
)

func setHeaders(w http.ResponseWriter, headers [][2]string) {
	h := w.Header()
	for _, kv := range headers {
		h.Set(kv[0], kv[1])
	}
}

// middlewareChain lists the router middleware outermost first
func (s *Server) middlewareChain() []mux.MiddlewareFunc {
	chain := []mux.MiddlewareFunc{s.tagRequest, s.accessLog, s.recoverPanics}
	if s.config.EnableCORS {
		chain = append(chain, s.allowCrossOrigin)
	}
	chain = append(chain, s.limitBody, s.hardenResponse)
	if s.config.RequestTimeout > 0 {
		chain = append(chain, withDeadline(s.config.RequestTimeout))
	}
	return chain
}

// tagRequest propagates or assigns the X-Request-ID
func (s *Server) tagRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(constants.HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(constants.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// accessLog emits one entry per request and feeds the HTTP metrics
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		began := time.Now()
		next.ServeHTTP(rec, r)
		elapsed := time.Since(began)

		status := rec.Status()
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, routeLabel(r), strconv.Itoa(status), elapsed)
		}

		entry := s.logger.WithFields(logrus.Fields{
			"request_id":  requestIDFrom(r),
			"method":      r.Method,
			"route":       routeLabel(r),
			"path":        r.URL.Path,
			"status":      status,
			"bytes_out":   rec.bytes,
			"duration_ms": elapsed.Milliseconds(),
			"client":      clientAddr(r),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Warn("request failed")
		case status >= http.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request served")
		}
	})
}

// recoverPanics turns a handler panic into a 500 response
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			s.logger.WithFields(logrus.Fields{
				"request_id": requestIDFrom(r),
				"panic":      fmt.Sprint(v),
				"stack":      string(debug.Stack()),
			}).Error("handler panicked")
			s.writeError(w, r, errors.NewInternalError("Internal server error"))
		}()
		next.ServeHTTP(w, r)
	})
}

// allowCrossOrigin answers preflight requests directly
func (s *Server) allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setHeaders(w, corsHeaders)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody rejects declared oversize bodies up front and caps the rest while reading
func (s *Server) limitBody(next http.Handler) http.Handler {
	limit := s.config.MaxRequestSize
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > limit {
			s.writeError(w, r, requestTooLarge(limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) hardenResponse(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setHeaders(w, hardeningHeaders)
		next.ServeHTTP(w, r)
	})
}

// withDeadline bounds the request context; engine loops observe cancellation
func withDeadline(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder remembers the first status written and counts body bytes
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status != 0 {
		return
	}
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.WriteHeader(http.StatusOK)
	}
	n, err := rec.ResponseWriter.Write(p)
	rec.bytes += n
	return n, err
}

// Status reports 200 when nothing was written
func (rec *statusRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// routeLabel is the matched path template, so operation IDs stay out of metric labels
func routeLabel(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return tpl
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

func requestTooLarge(limit int64) *errors.AppError {
	appErr := errors.InvalidArgument(errors.ErrInvalidInputData, errors.CodeRequestTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
	appErr.HTTPStatus = http.StatusRequestEntityTooLarge
	return appErr.WithContext("limit_bytes", limit)
}
